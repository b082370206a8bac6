package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var cssCmd = &cobra.Command{
	Use:   "css [files...]",
	Short: "Rewrite class selectors in stylesheets",
	Long: `Rewrite the class selectors of the named stylesheets in place, or of every
stylesheet under the output directory when none is named. With "-" the
stylesheet is read from stdin and written to stdout. New class names are
appended to the mailbox for the html command.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		stdin := len(args) == 1 && args[0] == "-"

		p, _, err := newPipeline(stdin || jsonOutput())
		if err != nil {
			return err
		}

		switch {
		case stdin:
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), p.TransformCSS(string(data))); err != nil {
				return fmt.Errorf("write stdout: %w", err)
			}
			return finish(cmd.ErrOrStderr(), p.Finish(), nil)

		case len(args) > 0:
			for _, file := range args {
				if _, err := p.TransformCSSFile(file); err != nil {
					return finish(cmd.OutOrStdout(), p.Finish(), err)
				}
			}
			return finish(cmd.OutOrStdout(), p.Finish(), nil)

		default:
			_, err := p.TransformCSSFiles()
			return finish(cmd.OutOrStdout(), p.Finish(), err)
		}
	},
}
