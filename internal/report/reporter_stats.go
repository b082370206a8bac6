package report

import (
	"fmt"
	"io"
)

// StageSummary holds the counters of one pipeline stage.
type StageSummary struct {
	Name           string
	Skipped        bool
	FilesVisited   int
	FilesRewritten int
	Tokens         int // Tokens seen
	Rewritten      int // Tokens replaced
	NewEntries     int // Registry growth
}

// VerifySummary holds the outcome of the verify stage.
type VerifySummary struct {
	Ran      bool
	HTMLFile string
	CSSFile  string
	Tokens   int
	Matched  int
	OK       bool
}

// Summary is everything the statistics reporter prints.
type Summary struct {
	Stages     []StageSummary
	Entries    int
	Collisions int
	MapFile    string
	Verify     VerifySummary
	Issues     []Issue
	Truncated  int // Issues dropped by Limit
}

// StatsReporter prints per-stage statistics.
type StatsReporter struct {
	w         io.Writer
	useColors bool
}

// NewStatsReporter creates a statistics reporter.
func NewStatsReporter(w io.Writer, useColors bool) *StatsReporter {
	return &StatsReporter{
		w:         w,
		useColors: useColors,
	}
}

// PrintStatistics outputs one line per stage and the registry totals.
func (r *StatsReporter) PrintStatistics(s Summary) {
	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Obfuscation Statistics", r.useColors))
	fmt.Fprintln(r.w, "----------------------")

	for _, st := range s.Stages {
		if st.Skipped {
			fmt.Fprintf(r.w, "%-8s %s\n", st.Name, RenderStyle(StyleGray, "skipped", r.useColors))
			continue
		}
		fmt.Fprintf(r.w, "%-8s files %d, rewritten %d, tokens %d, replaced %d, new %d\n",
			st.Name, st.FilesVisited, st.FilesRewritten, st.Tokens, st.Rewritten, st.NewEntries)
	}

	fmt.Fprintf(r.w, "Registry entries:        %d\n", s.Entries)
	fmt.Fprintf(r.w, "Collisions:              %d\n", s.Collisions)
	if s.MapFile != "" {
		fmt.Fprintf(r.w, "Map file:                %s\n", s.MapFile)
	}
}

// PrintVerification shows the verify stage outcome.
func (r *StatsReporter) PrintVerification(s Summary) {
	if !s.Verify.Ran {
		return
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintln(r.w, RenderStyle(StyleCyan, "Verification", r.useColors))
	fmt.Fprintln(r.w, "------------")

	v := s.Verify
	if v.HTMLFile == "" || v.CSSFile == "" {
		fmt.Fprintln(r.w, "Nothing to compare")
		return
	}
	fmt.Fprintf(r.w, "%s vs %s: %d of %d classes matched\n", v.HTMLFile, v.CSSFile, v.Matched, v.Tokens)
	if v.OK {
		fmt.Fprintln(r.w, RenderStyle(StyleGreen, "Markup and stylesheet agree", r.useColors))
	} else {
		fmt.Fprintln(r.w, RenderStyle(StyleYellow, "Markup and stylesheet disagree", r.useColors))
	}
}
