package main

import (
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that documents and stylesheets agree",
	Long: `Sample one document and one stylesheet of the output directory and warn
when none of the obfuscated classes in the document is selected by the
stylesheet. With --verify-full every document is checked against every
stylesheet.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, _, err := newPipeline(jsonOutput())
		if err != nil {
			return err
		}

		_, err = p.Verify()
		return finish(cmd.OutOrStdout(), p.Finish(), err)
	},
}
