package classhash

import (
	"io"

	"github.com/yacobolo/classhash/internal/report"
)

// OutputFormat selects how a result is written.
type OutputFormat = report.OutputFormat

// Output formats
const (
	OutputIssues  = report.OutputIssues
	OutputSummary = report.OutputSummary
	OutputFull    = report.OutputFull
	OutputJSON    = report.OutputJSON
)

// OutputOptions tunes WriteOutput.
type OutputOptions struct {
	ForceColors       bool
	MaxIssuesPerStage int // 0 = unlimited (default)
	MaxSameIssues     int // 0 = unlimited (default)
}

// DetermineOutputFormat selects the appropriate output format based on flags.
func DetermineOutputFormat(formatFlag string, quiet bool) OutputFormat {
	return report.DetermineOutputFormat(formatFlag, quiet)
}

// WriteOutput writes result in the specified format.
func WriteOutput(w io.Writer, result *Result, format OutputFormat, opts OutputOptions) {
	s := result.Summary()
	s.Issues, s.Truncated = report.Limit(s.Issues, opts.MaxIssuesPerStage, opts.MaxSameIssues)
	report.Write(w, s, format, opts.ForceColors)
}
