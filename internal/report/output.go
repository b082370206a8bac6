package report

import (
	"fmt"
	"io"
	"os"
)

// OutputFormat selects how results are written.
type OutputFormat string

// Output formats
const (
	OutputIssues  OutputFormat = "issues"  // Issues and counts
	OutputSummary OutputFormat = "summary" // Statistics only
	OutputFull    OutputFormat = "full"    // Issues and statistics
	OutputJSON    OutputFormat = "json"
)

// Formats lists the accepted --output-format values.
func Formats() []OutputFormat {
	return []OutputFormat{OutputIssues, OutputSummary, OutputFull, OutputJSON}
}

// DetermineOutputFormat selects the output format from flags. Unknown
// formats fall back to issues.
func DetermineOutputFormat(formatFlag string, quiet bool) OutputFormat {
	// Explicit -quiet flag wins (exit code only)
	if quiet {
		return OutputIssues
	}

	switch OutputFormat(formatFlag) {
	case OutputSummary, OutputFull, OutputJSON:
		return OutputFormat(formatFlag)
	}
	return OutputIssues
}

// Write renders s to w in the given format.
func Write(w io.Writer, s Summary, format OutputFormat, forceColors bool) {
	switch format {
	case OutputIssues:
		reporter := NewReporter(w, forceColors)
		reporter.PrintIssues(s.Issues)
		reporter.PrintSummary(s.Issues, s.Truncated)

	case OutputSummary:
		stats := NewStatsReporter(w, ShouldUseColors(forceColors))
		stats.PrintStatistics(s)
		stats.PrintVerification(s)

	case OutputFull:
		reporter := NewReporter(w, forceColors)
		reporter.PrintIssues(s.Issues)
		reporter.PrintSummary(s.Issues, s.Truncated)

		stats := NewStatsReporter(w, reporter.UseColors())
		stats.PrintStatistics(s)
		stats.PrintVerification(s)

	case OutputJSON:
		if err := WriteJSON(w, s); err != nil {
			// Log error but don't crash
			fmt.Fprintln(os.Stderr, "Error writing JSON:", err)
		}
	}
}
