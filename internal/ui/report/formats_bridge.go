package report

import (
	"fmt"
	"io"
	"strings"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/shared/version"
	"checkdelta/internal/ui/report/formats"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatSARIF    Format = "sarif"
	FormatTSV      Format = "tsv"
)

var Formats = []Format{FormatText, FormatMarkdown, FormatJSON, FormatSARIF, FormatTSV}

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	case "tsv":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q", value)
	}
}

// Options tune every format; fields a format does not use are ignored.
type Options struct {
	ProjectRoot string
	Color       bool
	ListIssues  bool
	Verbosity   string
	Rules       ports.RuleMetadataProvider
	// Sources enables source snippets around new issues in text output.
	Sources ports.SourceResolver
}

// Render writes res to w in format. SARIF carries the new issues only.
func Render(w io.Writer, format Format, res ports.AnalyzeResult, opts Options) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatText:
		textOpts := formats.TextOptions{
			ProjectRoot: opts.ProjectRoot,
			Color:       opts.Color,
			ListIssues:  opts.ListIssues,
			Rules:       opts.Rules,
		}
		if opts.Sources != nil {
			textOpts.Context = func(issue model.Issue) []string {
				return IssueContext(opts.Sources, issue).Lines
			}
		}
		out = []byte(formats.NewTextGenerator(textOpts).Generate(res))
	case FormatMarkdown:
		var md string
		md, err = formats.NewMarkdownGenerator().Generate(res, formats.MarkdownReportOptions{
			ProjectRoot:         opts.ProjectRoot,
			Version:             version.Version,
			Verbosity:           opts.Verbosity,
			TableOfContents:     true,
			CollapsibleSections: true,
			Rules:               opts.Rules,
		})
		out = []byte(md)
	case FormatJSON:
		out, err = formats.GenerateJSON(res)
		out = append(out, '\n')
	case FormatSARIF:
		out, err = formats.GenerateSARIF(opts.ProjectRoot, res.New, opts.Rules)
		out = append(out, '\n')
	case FormatTSV:
		var tsv string
		tsv, err = formats.NewTSVGenerator(opts.ProjectRoot).Generate(res)
		out = []byte(tsv)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	_, err = w.Write(out)
	return err
}
