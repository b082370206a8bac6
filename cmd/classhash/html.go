package main

import (
	"github.com/spf13/cobra"

	"github.com/yacobolo/classhash"
)

var htmlCmd = &cobra.Command{
	Use:   "html",
	Short: "Rewrite class attributes in the built documents",
	Long: `Merge the mailbox left by the scan and css commands, rewrite the class
attributes of every document under the output directory, then write the
obfuscation map and verify the output.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, config, err := newPipeline(jsonOutput())
		if err != nil {
			return err
		}

		steps := []struct {
			stage classhash.Stage
			run   func() (classhash.StageResult, error)
		}{
			{classhash.StageHTML, p.TransformHTML},
			{classhash.StagePersist, p.Persist},
			{classhash.StageVerify, p.Verify},
		}
		for _, step := range steps {
			if config.Skips(step.stage) {
				continue
			}
			if _, err := step.run(); err != nil {
				return finish(cmd.OutOrStdout(), p.Finish(), err)
			}
		}
		return finish(cmd.OutOrStdout(), p.Finish(), nil)
	},
}
