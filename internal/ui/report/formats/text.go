package formats

import (
	"fmt"
	"strings"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/engine/threshold"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	unstableStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	stableStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// Summary is the one-line result text, e.g.
// "Checkstyle: 5 warnings in 1 Checkstyle file."
func Summary(warnings, reports int) string {
	return fmt.Sprintf("Checkstyle: %s in %s.", plural(warnings, "warning"), plural(reports, "Checkstyle file"))
}

// DeltaLines lists the new and fixed warning counts; zero counts are
// omitted.
func DeltaLines(newWarnings, fixedWarnings int) []string {
	var lines []string
	if newWarnings > 0 {
		lines = append(lines, plural(newWarnings, "new warning"))
	}
	if fixedWarnings > 0 {
		lines = append(lines, plural(fixedWarnings, "fixed warning"))
	}
	return lines
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

type TextOptions struct {
	ProjectRoot string
	// Color styles headings and the verdict for a terminal.
	Color bool
	// ListIssues prints every new and fixed issue.
	ListIssues bool
	// Rules supplies descriptions for listed issues; may be nil.
	Rules ports.RuleMetadataProvider
	// Context adds source lines around listed new issues; may be nil.
	Context func(issue model.Issue) []string
}

type TextGenerator struct {
	opts TextOptions
}

func NewTextGenerator(opts TextOptions) *TextGenerator {
	return &TextGenerator{opts: opts}
}

func (g *TextGenerator) Generate(res ports.AnalyzeResult) string {
	var b strings.Builder

	b.WriteString(g.style(titleStyle, Summary(len(res.Issues), res.Reports)))
	b.WriteString("\n")
	for _, line := range DeltaLines(len(res.New), len(res.Fixed)) {
		b.WriteString("  " + line + "\n")
	}

	verdict := res.VerdictName
	if verdict == "" {
		verdict = res.Verdict.String()
	}
	fmt.Fprintf(&b, "Build #%d of %s: %s\n", res.Number, nonEmpty(res.Project, "default"), g.verdict(res.Verdict, verdict))
	for _, reason := range res.Reasons {
		b.WriteString("  - " + reason + "\n")
	}
	if res.HealthEnabled {
		fmt.Fprintf(&b, "Health: %d%% (%s)\n", res.Health, threshold.Describe(res.Totals.Total()))
	}
	if res.ZeroStreak > 0 || res.HighScore > 0 {
		fmt.Fprintf(&b, "Zero-warnings streak: %s (high score %d)\n", plural(res.ZeroStreak, "build"), res.HighScore)
	}
	if res.ReferenceID != "" {
		b.WriteString(g.style(statusStyle, "Reference build "+res.ReferenceID))
		b.WriteString("\n")
	}

	if g.opts.ListIssues {
		g.writeIssues(&b, "New warnings", res.New, true)
		g.writeIssues(&b, "Fixed warnings", res.Fixed, false)
	}
	return b.String()
}

func (g *TextGenerator) writeIssues(b *strings.Builder, title string, issues []model.Issue, withContext bool) {
	if len(issues) == 0 {
		return
	}
	b.WriteString("\n" + g.style(titleStyle, title) + "\n")
	for _, issue := range issues {
		fmt.Fprintf(b, "  %-6s %s:%d %s: %s\n",
			issue.Priority, relPath(g.opts.ProjectRoot, issue.FileName), issue.LineStart, issue.Type, issue.Message)
		if g.opts.Rules != nil {
			if desc := g.opts.Rules.Description(issue.Type); desc != "" {
				b.WriteString(g.style(statusStyle, "         "+desc) + "\n")
			}
		}
		if withContext && g.opts.Context != nil {
			for _, line := range g.opts.Context(issue) {
				b.WriteString("         " + line + "\n")
			}
		}
	}
}

func (g *TextGenerator) verdict(v model.Verdict, name string) string {
	switch v {
	case model.VerdictFailed:
		return g.style(failedStyle, name)
	case model.VerdictUnstable:
		return g.style(unstableStyle, name)
	default:
		return g.style(stableStyle, name)
	}
}

func (g *TextGenerator) style(s lipgloss.Style, text string) string {
	if !g.opts.Color {
		return text
	}
	return s.Render(text)
}
