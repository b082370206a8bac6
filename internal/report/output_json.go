package report

import (
	"encoding/json"
	"io"
	"time"
)

// JSONOutput represents the structured JSON export schema
type JSONOutput struct {
	Version   string      `json:"version"`
	Timestamp string      `json:"timestamp"`
	Summary   JSONSummary `json:"summary"`
	Stages    []JSONStage `json:"stages"`
	Verify    *JSONVerify `json:"verify,omitempty"`
	Issues    []JSONIssue `json:"issues"`
}

// JSONSummary contains high-level counts
type JSONSummary struct {
	TotalIssues int    `json:"total_issues"`
	Truncated   int    `json:"truncated"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	Entries     int    `json:"entries"`
	Collisions  int    `json:"collisions"`
	MapFile     string `json:"map_file,omitempty"`
}

// JSONStage contains the counters of one stage
type JSONStage struct {
	Name           string `json:"name"`
	Skipped        bool   `json:"skipped"`
	FilesVisited   int    `json:"files_visited"`
	FilesRewritten int    `json:"files_rewritten"`
	Tokens         int    `json:"tokens"`
	Rewritten      int    `json:"rewritten"`
	NewEntries     int    `json:"new_entries"`
}

// JSONVerify contains the verification outcome
type JSONVerify struct {
	HTMLFile string `json:"html_file"`
	CSSFile  string `json:"css_file"`
	Tokens   int    `json:"tokens"`
	Matched  int    `json:"matched"`
	OK       bool   `json:"ok"`
}

// JSONIssue represents a single issue
type JSONIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Stage    string `json:"stage"`
	Source   string `json:"source,omitempty"` // Optional source line
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(s))
}

func buildJSONOutput(s Summary) JSONOutput {
	errors, warnings := Count(s.Issues)

	issues := make([]JSONIssue, len(s.Issues))
	for i, issue := range s.Issues {
		source := ""
		if len(issue.SourceLines) > 0 {
			source = issue.SourceLines[0]
		}
		issues[i] = JSONIssue{
			File:     issue.Pos.Filename,
			Line:     issue.Pos.Line,
			Column:   issue.Pos.Column,
			Severity: issue.Severity,
			Message:  issue.Text,
			Stage:    issue.Stage,
			Source:   source,
		}
	}

	stages := make([]JSONStage, len(s.Stages))
	for i, st := range s.Stages {
		stages[i] = JSONStage(st)
	}

	var verify *JSONVerify
	if s.Verify.Ran {
		verify = &JSONVerify{
			HTMLFile: s.Verify.HTMLFile,
			CSSFile:  s.Verify.CSSFile,
			Tokens:   s.Verify.Tokens,
			Matched:  s.Verify.Matched,
			OK:       s.Verify.OK,
		}
	}

	return JSONOutput{
		Version:   "1.0",
		Timestamp: time.Now().Format(time.RFC3339),
		Summary: JSONSummary{
			TotalIssues: len(s.Issues),
			Truncated:   s.Truncated,
			Errors:      errors,
			Warnings:    warnings,
			Entries:     s.Entries,
			Collisions:  s.Collisions,
			MapFile:     s.MapFile,
		},
		Stages: stages,
		Verify: verify,
		Issues: issues,
	}
}
