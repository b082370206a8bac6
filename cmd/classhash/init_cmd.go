package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .classhash.yaml config file",
	Long:  `Create a .classhash.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(".classhash.yaml"); err == nil && !force {
			return fmt.Errorf(".classhash.yaml already exists (use --force to overwrite)")
		}

		if err := os.WriteFile(".classhash.yaml", []byte(defaultConfig), 0644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Created .classhash.yaml")
		return nil
	},
}

const defaultConfig = `# classhash configuration
# Docs: https://github.com/yacobolo/classhash

# Set the salt through CLASSHASH_SALT (or OBFUSCATION_SALT) to keep it out
# of version control.
# salt: ""
hash: md5                 # md5 | sha256

source: src               # template sources scanned before the build
output: dist              # build output rewritten in place
# map-file: dist/obfuscation-map.json
# seed-map: ""
mailbox: temp-obfuscation-map.json

scan:
  include:
    - "**/*.{astro,html,htm,jsx,tsx,vue,svelte,templ}"
  exclude:
    - "**/node_modules"
    - "**/.git"

css:
  include:
    - "**/*.css"

html:
  include:
    - "**/*.{html,htm}"

exclude: []

skip:
  scan: false
  css: false
  html: false
  persist: false
  verify: false

verify:
  full: false

# Output settings
strict: false
output-format: issues     # issues | summary | full | json
max-issues-per-stage: 0   # 0 = unlimited
max-same-issues: 0        # 0 = unlimited
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
