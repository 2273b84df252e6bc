package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreapp "checkdelta/internal/core/app"
	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/data/history"
	"checkdelta/internal/ui/report"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	format      string
	output      string
	project     string
	buildNumber int
	timestamp   string
	reports     []string
	dryRun      bool
	list        bool
	context     bool
	verbosity   string
	failOn      string
	inject      string
	marker      string
}

func newAnalyzeCommand(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [report.xml...]",
		Short: "Analyze the Checkstyle reports of a build and record it in history",
		Long: `Analyze collects the Checkstyle reports of the workspace (or the given files),
compares them with the reference build, evaluates thresholds and stores the build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.reports = append(opts.reports, args...)
			return runAnalyze(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "text", "output format (text|markdown|json|sarif|tsv)")
	flags.StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	flags.StringVarP(&opts.project, "project", "p", "", "project key (default: config project)")
	flags.IntVar(&opts.buildNumber, "build-number", 0, "build number (default: previous + 1)")
	flags.StringVar(&opts.timestamp, "timestamp", "", "build timestamp, RFC3339 (default: now)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "analyze without recording the build")
	flags.BoolVar(&opts.list, "list", false, "list new and fixed warnings in text output")
	flags.BoolVar(&opts.context, "context", false, "show source lines around new warnings in text output")
	flags.StringVar(&opts.verbosity, "verbosity", "standard", "markdown detail (summary|standard|detailed)")
	flags.StringVar(&opts.failOn, "fail-on", "none", "exit with code 2 when the verdict is at least (none|unstable|failed)")
	flags.StringVar(&opts.inject, "inject", "", "write the summary into the checkdelta marker section of this Markdown file, adding the section when absent")
	flags.StringVar(&opts.marker, "marker", "checkstyle", "marker name used with --inject")
	return cmd
}

func runAnalyze(cmd *cobra.Command, global *globalOptions, opts *analyzeOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	threshold, err := parseFailOn(opts.failOn)
	if err != nil {
		return err
	}
	req := ports.AnalyzeRequest{
		Project:     opts.project,
		Reports:     opts.reports,
		BuildNumber: opts.buildNumber,
		DryRun:      opts.dryRun,
	}
	if opts.timestamp != "" {
		ts, err := time.Parse(time.RFC3339, opts.timestamp)
		if err != nil {
			return fmt.Errorf("invalid --timestamp: %w", err)
		}
		req.Timestamp = ts.UTC()
	}

	ctx := cmd.Context()
	var deps coreapp.Dependencies
	if opts.dryRun {
		// a dry run never touches the history database
		deps.Store = history.NewMemoryStore()
	}
	sess, err := openSession(ctx, global, deps)
	if err != nil {
		return err
	}
	defer closeSession(cmd, sess)

	res, err := sess.app.AnalysisService().Run(ctx, req)
	if err != nil {
		return err
	}
	for _, entry := range res.Log {
		slog.Debug("analysis", "level", entry.Level, "message", entry.Message)
	}

	out, closeOut, err := openOutput(opts.output, global.stdout)
	if err != nil {
		return err
	}
	renderOpts := report.Options{
		ProjectRoot: sess.workspace,
		Color:       opts.output == "" && useColor(global.color, global.stdout),
		ListIssues:  opts.list || opts.context,
		Verbosity:   opts.verbosity,
		Rules:       sess.app.Rules,
	}
	if opts.context {
		renderOpts.Sources = sess.app.Resolver
	}
	if err := report.Render(out, format, res, renderOpts); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if opts.inject != "" {
		if err := report.InjectSummary(opts.inject, opts.marker, res); err != nil {
			return err
		}
	}

	if threshold >= 0 && res.Verdict >= threshold {
		return &exitError{code: 2, msg: fmt.Sprintf("build verdict %s", res.VerdictName)}
	}
	return nil
}

// parseFailOn returns the lowest failing verdict, or -1 for none.
func parseFailOn(value string) (model.Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return -1, nil
	default:
		return model.ParseVerdict(value)
	}
}
