package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "classhash",
	Short: "Obfuscate CSS class names in a built site",
	Long: `Rewrite every CSS class name in the stylesheets and HTML documents of a
build output into a short salted hash, consistently across files.
The mapping is written to obfuscation-map.json under the output directory.`,
	// Default behavior: run the whole pipeline when no subcommand is given.
	// loadConfig is called here because PreRunE of runCmd is not triggered
	// when delegating via rootCmd.RunE.
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runPipeline(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", ".classhash.yaml", "Config file path")
	pf.String("salt", "", "Salt mixed into every obfuscated token")
	pf.BoolP("verbose", "v", false, "Enable verbose logging")
	pf.Bool("quiet", false, "Suppress all output (exit code only)")
	pf.Bool("color", false, "Force color output")
	pf.String("output-format", "", "Output format: issues|summary|full|json")
	pf.Bool("strict", false, "Exit 1 on any warning (CI mode)")
	pf.Int("max-issues-per-stage", 0, "Max issues to show per stage (0=unlimited)")
	pf.Int("max-same-issues", 0, "Max repeated issues to show (0=unlimited)")

	addPipelineFlags(pf)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cssCmd)
	rootCmd.AddCommand(htmlCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}
