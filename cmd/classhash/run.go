package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/classhash"
)

// errIssues fails the command after the report was printed.
var errIssues = errors.New("issues found")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage over the source and output trees",
	Long: `Scan template sources, rewrite stylesheets and HTML documents under the
output directory, write the obfuscation map and verify the result, in one
process.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runPipeline,
}

// addPipelineFlags registers the flags every stage command understands.
func addPipelineFlags(f *pflag.FlagSet) {
	f.String("hash", "md5", "Hash algorithm: md5|sha256")
	f.String("source", "src", "Template source directory scanned for class names")
	f.String("output", "dist", "Build output directory rewritten in place")
	f.String("map-file", "", "Obfuscation map path (default <output>/obfuscation-map.json)")
	f.String("seed-map", "", "Obfuscation map loaded before the first stage")
	f.String("mailbox", classhash.DefaultMailbox("."), "Hand-off file between stage commands")
	f.StringSlice("scan-include", nil, "Glob patterns for template sources")
	f.StringSlice("scan-exclude", nil, "Glob patterns excluded from scanning")
	f.StringSlice("css-include", nil, "Glob patterns for stylesheets in the output")
	f.StringSlice("html-include", nil, "Glob patterns for documents in the output")
	f.StringSlice("exclude", nil, "Glob patterns excluded from the output")
	f.StringSlice("skip", nil, "Stages to skip: scan|css|html|persist|verify")
	f.Bool("verify-full", false, "Check every document against every stylesheet")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	p, _, err := newPipeline(jsonOutput())
	if err != nil {
		return err
	}

	result, err := p.Run()
	return finish(cmd.OutOrStdout(), result, err)
}

// newPipeline builds a pipeline from koanf state.
func newPipeline(logToStderr bool) (*classhash.Pipeline, classhash.Config, error) {
	config, err := buildPipelineConfig(newLogger(logToStderr))
	if err != nil {
		return nil, config, err
	}
	p, err := classhash.New(config)
	return p, config, err
}

func jsonOutput() bool {
	return getStringWithFallback("output-format", "output-format", "") == string(classhash.OutputJSON)
}

// finish prints the result and turns it into the command error. A fatal
// stage error wins; otherwise strict mode fails on any warning.
func finish(w io.Writer, result *classhash.Result, runErr error) error {
	quiet := getBoolWithFallback("quiet", "quiet", false)
	format := classhash.DetermineOutputFormat(getStringWithFallback("output-format", "output-format", ""), quiet)

	if !quiet {
		classhash.WriteOutput(w, result, format, buildOutputOptions())
	}
	if runErr != nil {
		return runErr
	}

	if getBoolWithFallback("strict", "strict", false) && result.HasWarnings() {
		return errIssues
	}
	return nil
}
