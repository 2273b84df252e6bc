package cli

import (
	"context"
	"log/slog"
	"time"

	coreapp "checkdelta/internal/core/app"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/core/watcher"
	"checkdelta/internal/data/history"
	"checkdelta/internal/shared/util"
	"checkdelta/internal/ui/report"

	"github.com/spf13/cobra"
)

type watchOptions struct {
	format      string
	project     string
	dryRun      bool
	list        bool
	debounce    time.Duration
	minInterval time.Duration
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyze again whenever the build rewrites its Checkstyle reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "text", "output format (text|markdown|json|sarif|tsv)")
	flags.StringVarP(&opts.project, "project", "p", "", "project key (default: config project)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "analyze without recording builds")
	flags.BoolVar(&opts.list, "list", false, "list new and fixed warnings in text output")
	flags.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "quiet period after the last report write")
	flags.DurationVar(&opts.minInterval, "min-interval", 2*time.Second, "minimum time between two analyses")
	return cmd
}

func runWatch(cmd *cobra.Command, global *globalOptions, opts *watchOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var deps coreapp.Dependencies
	if opts.dryRun {
		deps.Store = history.NewMemoryStore()
	}
	sess, err := openSession(ctx, global, deps)
	if err != nil {
		return err
	}
	defer closeSession(cmd, sess)

	matcher, err := coreapp.NewReportMatcher(sess.workspace, sess.cfg.Reports.Pattern, sess.cfg.Reports.Exclude)
	if err != nil {
		return err
	}
	triggers := make(chan []string, 1)
	w, err := watcher.NewWatcher(opts.debounce, coreapp.SkippedDirs(), matcher.Match, func(paths []string) {
		select {
		case triggers <- paths:
		default:
			// an analysis is already pending and rescans every report
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch([]string{sess.workspace}); err != nil {
		return err
	}
	slog.Info("watching reports", "workspace", sess.workspace, "pattern", sess.cfg.Reports.Pattern)

	analyze := func(ctx context.Context) {
		res, err := sess.app.AnalysisService().Run(ctx, ports.AnalyzeRequest{Project: opts.project, DryRun: opts.dryRun})
		if err != nil {
			slog.Error("analysis failed", "error", err)
			return
		}
		renderOpts := report.Options{
			ProjectRoot: sess.workspace,
			Color:       useColor(global.color, global.stdout),
			ListIssues:  opts.list,
			Rules:       sess.app.Rules,
		}
		if err := report.Render(global.stdout, format, res, renderOpts); err != nil {
			slog.Error("render failed", "error", err)
		}
	}
	return watchLoop(ctx, triggers, util.NewThrottle(opts.minInterval), analyze)
}

// watchLoop analyzes once, then once per trigger, until ctx is done.
func watchLoop(ctx context.Context, triggers <-chan []string, throttle *util.Throttle, analyze func(context.Context)) error {
	throttle.Allow()
	analyze(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-triggers:
			slog.Debug("reports changed", "files", paths)
			if err := throttle.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			analyze(ctx)
		}
	}
}
