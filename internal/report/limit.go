package report

// Limit truncates issues the way golangci-lint does. maxPerStage caps the
// issues of each stage and maxSame caps repeats of the same message; zero
// means unlimited. It returns the kept issues and how many were dropped.
func Limit(issues []Issue, maxPerStage, maxSame int) ([]Issue, int) {
	originalCount := len(issues)

	if maxPerStage > 0 {
		perStage := make(map[string]int)
		var kept []Issue
		for _, issue := range issues {
			if perStage[issue.Stage] < maxPerStage {
				kept = append(kept, issue)
				perStage[issue.Stage]++
			}
		}
		issues = kept
	}

	// Apply max-same-issues (deduplication by message text)
	if maxSame > 0 {
		issues = deduplicateSameIssues(issues, maxSame)
	}

	return issues, originalCount - len(issues)
}

// deduplicateSameIssues limits how many times the same message appears
func deduplicateSameIssues(issues []Issue, maxSame int) []Issue {
	messageCounts := make(map[string]int)
	var filtered []Issue

	for _, issue := range issues {
		count := messageCounts[issue.Text]
		if count < maxSame {
			filtered = append(filtered, issue)
			messageCounts[issue.Text]++
		}
	}

	return filtered
}
