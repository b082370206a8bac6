package classhash

import (
	"fmt"

	"github.com/yacobolo/classhash/internal/report"
)

// Issue is a problem found by a stage, in golangci-lint format.
type Issue = report.Issue

// IssuePos specifies the location of an issue.
type IssuePos = report.Pos

// IssueSeverity constants
const (
	SeverityError   = report.SeverityError
	SeverityWarning = report.SeverityWarning
	SeverityInfo    = report.SeverityInfo
)

func newIssue(stage Stage, severity, file, format string, args ...any) Issue {
	return Issue{
		Stage:    stage.String(),
		Severity: severity,
		Text:     fmt.Sprintf(format, args...),
		Pos:      IssuePos{Filename: file},
	}
}
