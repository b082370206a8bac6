package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/yacobolo/classhash/internal/logging"
)

// Reporter prints issues in golangci-lint format.
type Reporter struct {
	w          io.Writer
	useColors  bool
	printLines bool
}

// NewReporter creates a reporter. forceColors enables colors even when
// stdout is not a terminal.
func NewReporter(w io.Writer, forceColors bool) *Reporter {
	return &Reporter{
		w:          w,
		useColors:  ShouldUseColors(forceColors),
		printLines: true,
	}
}

// ShouldUseColors determines if colors should be enabled.
func ShouldUseColors(force bool) bool {
	// Explicit flag wins
	if force {
		return true
	}

	// FORCE_COLOR is set by GitHub Actions and friends
	if os.Getenv("FORCE_COLOR") != "" || os.Getenv("GITHUB_ACTIONS") == "true" {
		return true
	}

	return logging.ColorEnabled(os.Stdout)
}

// PrintIssues outputs issues sorted by file, line and column.
func (r *Reporter) PrintIssues(issues []Issue) {
	sorted := append([]Issue(nil), issues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Pos.Filename != sorted[j].Pos.Filename {
			return sorted[i].Pos.Filename < sorted[j].Pos.Filename
		}
		if sorted[i].Pos.Line != sorted[j].Pos.Line {
			return sorted[i].Pos.Line < sorted[j].Pos.Line
		}
		return sorted[i].Pos.Column < sorted[j].Pos.Column
	})

	for _, issue := range sorted {
		r.printIssue(issue)
	}
}

// printIssue formats a single issue in golangci-lint style
func (r *Reporter) printIssue(issue Issue) {
	// Format: file:line:col: message (stage)
	var location string
	switch {
	case issue.Pos.Filename == "":
		location = issue.Severity + ":"
	case issue.Pos.Line == 0:
		location = issue.Pos.Filename + ":"
	default:
		location = fmt.Sprintf("%s:%d:%d:", issue.Pos.Filename, issue.Pos.Line, issue.Pos.Column)
	}

	style := StyleCyan
	if issue.Severity == SeverityError {
		style = StyleRed
	}

	fmt.Fprintf(r.w, "%s %s%s\n",
		RenderStyle(style, location, r.useColors),
		issue.Text,
		RenderStyle(StyleGray, fmt.Sprintf(" (%s)", issue.Stage), r.useColors))

	// Print source lines with caret indicator
	if r.printLines && len(issue.SourceLines) > 0 {
		for _, line := range issue.SourceLines {
			fmt.Fprintf(r.w, "\t%s\n", line)
		}

		caret := r.buildCaretIndicator(issue.SourceLines[0], issue.Pos.Column)
		fmt.Fprintf(r.w, "\t%s\n", RenderStyle(StyleYellow, caret, r.useColors))
	}
}

// buildCaretIndicator creates the "^" indicator aligned with the column,
// copying tabs from the source line so the caret lines up.
func (r *Reporter) buildCaretIndicator(sourceLine string, column int) string {
	if column <= 0 {
		return "^"
	}

	prefixLen := column - 1
	if prefixLen > len(sourceLine) {
		prefixLen = len(sourceLine)
	}

	var padding strings.Builder
	for _, ch := range sourceLine[:prefixLen] {
		if ch == '\t' {
			padding.WriteRune('\t')
		} else {
			padding.WriteRune(' ')
		}
	}

	return padding.String() + "^"
}

// PrintSummary outputs the issue count summary. truncated is the number of
// issues dropped by Limit.
func (r *Reporter) PrintSummary(issues []Issue, truncated int) {
	total := len(issues)
	errors, warnings := Count(issues)

	fmt.Fprintln(r.w, "")
	switch {
	case errors > 0 && warnings > 0 && truncated > 0:
		fmt.Fprintf(r.w, "%s (%s, %s; %s truncated):\n",
			pluralizeCount(total, "issue", "issues"),
			pluralizeCount(errors, "error", "errors"),
			pluralizeCount(warnings, "warning", "warnings"),
			pluralizeCount(truncated, "issue", "issues"))
	case errors > 0 && warnings > 0:
		fmt.Fprintf(r.w, "%s (%s, %s):\n",
			pluralizeCount(total, "issue", "issues"),
			pluralizeCount(errors, "error", "errors"),
			pluralizeCount(warnings, "warning", "warnings"))
	case truncated > 0:
		fmt.Fprintf(r.w, "%s (%s truncated):\n",
			pluralizeCount(total, "issue", "issues"),
			pluralizeCount(truncated, "issue", "issues"))
	default:
		fmt.Fprintf(r.w, "%s:\n", pluralizeCount(total, "issue", "issues"))
	}

	// Group by stage, in first-seen order
	var stages []string
	counts := make(map[string]int)
	for _, issue := range issues {
		if counts[issue.Stage] == 0 {
			stages = append(stages, issue.Stage)
		}
		counts[issue.Stage]++
	}
	for _, stage := range stages {
		fmt.Fprintf(r.w, "* %s: %d\n", stage, counts[stage])
	}

	if total > 0 {
		fmt.Fprintln(r.w, "")
		fmt.Fprintln(r.w, RenderStyle(StyleGray, "Hint: Run with --output-format full to see stage statistics", r.useColors))
	}
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// UseColors returns whether colors are enabled
func (r *Reporter) UseColors() bool {
	return r.useColors
}
