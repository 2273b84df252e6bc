package formats

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/engine/threshold"
)

type MarkdownReportOptions struct {
	ProjectRoot         string
	Version             string
	GeneratedAt         time.Time
	Verbosity           string
	TableOfContents     bool
	CollapsibleSections bool
	// Rules supplies rule descriptions for the rule summary; may be nil.
	Rules ports.RuleMetadataProvider
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(res ports.AnalyzeResult, opts MarkdownReportOptions) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	verbosity := normalizeReportVerbosity(opts.Verbosity)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Checkstyle Delta Report\n")
	b.WriteString("project: " + nonEmpty(res.Project, "default") + "\n")
	b.WriteString(fmt.Sprintf("build: %d\n", res.Number))
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Checkstyle Report\n\n")
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Executive Summary](#executive-summary)\n")
		if len(res.Reasons) > 0 {
			b.WriteString("- [Threshold Breaches](#threshold-breaches)\n")
		}
		b.WriteString("- [New Warnings](#new-warnings)\n")
		b.WriteString("- [Fixed Warnings](#fixed-warnings)\n")
		if verbosity != "summary" {
			b.WriteString("- [Warnings by Rule](#warnings-by-rule)\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Executive Summary\n")
	b.WriteString(Summary(len(res.Issues), res.Reports) + "\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Verdict | %s |\n", nonEmpty(res.VerdictName, res.Verdict.String())))
	b.WriteString(fmt.Sprintf("| Total Warnings | %d |\n", res.Totals.Total()))
	b.WriteString(fmt.Sprintf("| High / Normal / Low | %d / %d / %d |\n", res.Totals.High, res.Totals.Normal, res.Totals.Low))
	b.WriteString(fmt.Sprintf("| New Warnings | %d |\n", len(res.New)))
	b.WriteString(fmt.Sprintf("| Fixed Warnings | %d |\n", len(res.Fixed)))
	if res.HealthEnabled {
		b.WriteString(fmt.Sprintf("| Health | %d%% (%s) |\n", res.Health, threshold.Describe(res.Totals.Total())))
	}
	b.WriteString(fmt.Sprintf("| Zero-Warnings Streak | %d (high score %d) |\n\n", res.ZeroStreak, res.HighScore))

	if len(res.Reasons) > 0 {
		b.WriteString("## Threshold Breaches\n")
		for _, reason := range res.Reasons {
			b.WriteString("- " + reason + "\n")
		}
		b.WriteString("\n")
	}

	m.writeIssues(&b, "New Warnings", "No new warnings.", res.New, opts.ProjectRoot, opts.CollapsibleSections, verbosity)
	m.writeIssues(&b, "Fixed Warnings", "No fixed warnings.", res.Fixed, opts.ProjectRoot, opts.CollapsibleSections, verbosity)
	if verbosity != "summary" {
		m.writeRules(&b, res.Issues, opts.Rules, opts.CollapsibleSections)
	}
	return b.String(), nil
}

func (m *MarkdownGenerator) writeIssues(b *strings.Builder, title, empty string, issues []model.Issue, projectRoot string, collapsible bool, verbosity string) {
	b.WriteString("## " + title + "\n")
	if len(issues) == 0 {
		b.WriteString(empty + "\n\n")
		return
	}
	rendered := make([]string, 0, len(issues))
	for _, issue := range issues {
		location := fmt.Sprintf("%s:%d", relPath(projectRoot, issue.FileName), issue.LineStart)
		if verbosity == "summary" {
			rendered = append(rendered, fmt.Sprintf("| `%s` | `%s` | %s |\n", issue.Type, location, escapeCell(issue.Message)))
			continue
		}
		rendered = append(rendered, fmt.Sprintf(
			"| %s | `%s` | `%s` | `%s` | `%s` | %s |\n",
			issue.Priority,
			issue.Type,
			nonEmpty(issue.ModuleName, "-"),
			nonEmpty(issue.PackageName, "-"),
			location,
			escapeCell(issue.Message),
		))
	}
	header := []string{"| Priority | Rule | Module | Package | Location | Message |\n", "| --- | --- | --- | --- | --- | --- |\n"}
	if verbosity == "summary" {
		header = []string{"| Rule | Location | Message |\n", "| --- | --- | --- |\n"}
	}
	m.writeTableWithCollapse(b, title+" details", collapsible, len(rendered) > 10, header, rendered)
}

func (m *MarkdownGenerator) writeRules(b *strings.Builder, issues []model.Issue, rules ports.RuleMetadataProvider, collapsible bool) {
	b.WriteString("## Warnings by Rule\n")
	if len(issues) == 0 {
		b.WriteString("No warnings.\n\n")
		return
	}
	counts := make(map[string]int)
	for _, issue := range issues {
		counts[issue.Type]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	rendered := make([]string, 0, len(names))
	for _, name := range names {
		desc := ""
		if rules != nil {
			desc = rules.Description(name)
		}
		rendered = append(rendered, fmt.Sprintf("| `%s` | %d | %s |\n", name, counts[name], escapeCell(desc)))
	}
	m.writeTableWithCollapse(
		b,
		"Rule details",
		collapsible,
		len(rendered) > 15,
		[]string{"| Rule | Warnings | Description |\n", "| --- | --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}

func relPath(root, path string) string {
	root = strings.TrimSpace(root)
	path = strings.TrimSpace(path)
	if root == "" || path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func normalizeReportVerbosity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "summary":
		return "summary"
	case "detailed":
		return "detailed"
	default:
		return "standard"
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
