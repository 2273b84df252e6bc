package formats

import (
	"fmt"
	"strings"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
)

type TSVGenerator struct {
	projectRoot string
}

func NewTSVGenerator(projectRoot string) *TSVGenerator {
	return &TSVGenerator{projectRoot: projectRoot}
}

// Generate lists every current and fixed issue with its delta status.
func (t *TSVGenerator) Generate(res ports.AnalyzeResult) (string, error) {
	var buf strings.Builder

	buf.WriteString("Status\tPriority\tRule\tCategory\tModule\tPackage\tFile\tLine\tColumn\tMessage\n")
	isNew := make(map[model.Key]int, len(res.New))
	for _, issue := range res.New {
		isNew[issue.Key()]++
	}
	for _, issue := range sortedIssues(res.Issues) {
		status := "unchanged"
		if isNew[issue.Key()] > 0 {
			isNew[issue.Key()]--
			status = "new"
		}
		t.writeRow(&buf, status, issue)
	}
	for _, issue := range sortedIssues(res.Fixed) {
		t.writeRow(&buf, "fixed", issue)
	}

	return buf.String(), nil
}

func (t *TSVGenerator) writeRow(buf *strings.Builder, status string, issue model.Issue) {
	buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
		status,
		issue.Priority,
		issue.Type,
		issue.Category,
		issue.ModuleName,
		issue.PackageName,
		relPath(t.projectRoot, issue.FileName),
		issue.LineStart,
		issue.Column,
		tsvField(issue.Message),
	))
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
