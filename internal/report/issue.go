// Package report renders pipeline issues and statistics for terminals and
// machines.
package report

// Issue is a single problem found while running a stage, in golangci-lint
// shape.
type Issue struct {
	Stage       string   `json:"Stage"`       // "html"
	Text        string   `json:"Text"`        // "unterminated class attribute value"
	Severity    string   `json:"Severity"`    // "error", "warning", "info"
	SourceLines []string `json:"SourceLines"` // Lines of markup with the issue
	Pos         Pos      `json:"Pos"`
}

// Pos specifies the location of an issue. Line and Column are zero for
// file-level issues.
type Pos struct {
	Filename string `json:"Filename"`
	Line     int    `json:"Line"`
	Column   int    `json:"Column"` // 1-based
}

// Severity constants
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue texts
const (
	IssueMalformedClass = "unterminated class attribute value, left unchanged"
	IssueUnreadable     = "cannot read file: %v"
	IssueUnwritable     = "cannot write file: %v"
	IssueCollision      = "classes %q and %q share obfuscated token %s"
	IssueNoSelector     = "%d obfuscated classes have no selector: %s"
	IssueMailbox        = "mailbox ignored: %v"
	IssueSeedMap        = "seed map ignored: %v"
	IssueStaleEntries   = "%d entries written with a different salt were dropped"
	IssuePersist        = "cannot write obfuscation map: %v"
)

// Count returns the number of errors and warnings in issues.
func Count(issues []Issue) (errors, warnings int) {
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}
