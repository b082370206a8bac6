package main

import (
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Seed the registry from template sources",
	Long: `Collect class names from the template sources before the build runs and
append them to the mailbox for the html command.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, _, err := newPipeline(jsonOutput())
		if err != nil {
			return err
		}

		_, err = p.Scan()
		return finish(cmd.OutOrStdout(), p.Finish(), err)
	},
}
