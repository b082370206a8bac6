package classhash

import (
	"github.com/yacobolo/classhash/internal/registry"
	"github.com/yacobolo/classhash/internal/report"
	"github.com/yacobolo/classhash/internal/verify"
)

// StageResult holds the counters of one stage.
type StageResult struct {
	Stage          Stage
	Skipped        bool
	FilesVisited   int // Files the stage walked to
	FilesRewritten int // Files whose content changed
	FilesFailed    int // Files that could not be read or written
	Tokens         int // Class tokens seen, duplicates included
	Rewritten      int // Class tokens replaced
	NewEntries     int // Registry growth during the stage
}

func (s *StageResult) add(o StageResult) {
	s.Skipped = s.Skipped && o.Skipped
	s.FilesVisited += o.FilesVisited
	s.FilesRewritten += o.FilesRewritten
	s.FilesFailed += o.FilesFailed
	s.Tokens += o.Tokens
	s.Rewritten += o.Rewritten
	s.NewEntries += o.NewEntries
}

// Result is the outcome of a pipeline run.
type Result struct {
	Stages     []StageResult // In execution order
	Entries    int           // Registry size at the end
	Collisions []registry.Collision
	MapFile    string         // Written obfuscation map, empty if none
	Verify     *verify.Report // nil unless the verify stage ran
	Issues     []Issue
}

// Stage returns the counters of stage s.
func (r *Result) Stage(s Stage) (StageResult, bool) {
	for _, st := range r.Stages {
		if st.Stage == s {
			return st, true
		}
	}
	return StageResult{}, false
}

// HasWarnings reports whether any issue is a warning or an error.
func (r *Result) HasWarnings() bool {
	errors, warnings := report.Count(r.Issues)
	return errors+warnings > 0
}

// record merges st into the entry for its stage.
func (r *Result) record(st StageResult) {
	for i := range r.Stages {
		if r.Stages[i].Stage == st.Stage {
			r.Stages[i].add(st)
			return
		}
	}
	r.Stages = append(r.Stages, st)
}

// Summary converts r for the reporters.
func (r *Result) Summary() report.Summary {
	s := report.Summary{
		Entries:    r.Entries,
		Collisions: len(r.Collisions),
		MapFile:    r.MapFile,
		Issues:     r.Issues,
	}
	for _, st := range r.Stages {
		s.Stages = append(s.Stages, report.StageSummary{
			Name:           st.Stage.String(),
			Skipped:        st.Skipped,
			FilesVisited:   st.FilesVisited,
			FilesRewritten: st.FilesRewritten,
			Tokens:         st.Tokens,
			Rewritten:      st.Rewritten,
			NewEntries:     st.NewEntries,
		})
	}
	if r.Verify != nil {
		s.Verify = report.VerifySummary{
			Ran:      true,
			HTMLFile: r.Verify.HTMLFile,
			CSSFile:  r.Verify.CSSFile,
			Tokens:   r.Verify.Tokens,
			Matched:  r.Verify.Matched,
			OK:       r.Verify.OK(),
		}
	}
	return s
}
