package formats

import (
	"sort"
	"strings"

	"checkdelta/internal/core/model"
)

// escapeCell keeps free text from breaking a Markdown table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// priorityLevel maps an issue priority to a SARIF result level.
func priorityLevel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "error"
	case model.PriorityNormal:
		return "warning"
	default:
		return "note"
	}
}

// sortedIssues orders issues by file, line and rule without touching the
// input.
func sortedIssues(issues []model.Issue) []model.Issue {
	out := append([]model.Issue(nil), issues...)
	sortIssues(out)
	return out
}

func sortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.Type < b.Type
	})
}
