package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/engine/baseline"
	"checkdelta/internal/engine/diff"
	"checkdelta/internal/engine/fingerprint"
	"checkdelta/internal/engine/report"
	"checkdelta/internal/engine/threshold"
	"checkdelta/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

func NewAnalysisService(app *App) ports.AnalysisService {
	return &analysisService{app: app}
}

// Run analyzes one build: it parses the reports, compares them with the
// reference build, evaluates thresholds and records the build in history.
func (s *analysisService) Run(ctx context.Context, req ports.AnalyzeRequest) (ports.AnalyzeResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.Run",
		trace.WithAttributes(attribute.String("project", s.project(req))))
	defer span.End()
	started := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("run").Observe(time.Since(started).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return ports.AnalyzeResult{}, err
	}
	if s.app == nil || s.app.Config == nil {
		return ports.AnalyzeResult{}, fmt.Errorf("app is required")
	}

	run := &runState{
		req: req,
		result: ports.AnalyzeResult{
			Project: s.project(req),
			Health:  -1,
		},
	}

	reports, err := s.collect(ctx, run)
	if err != nil {
		return ports.AnalyzeResult{}, err
	}
	issues, parsed, err := s.parse(ctx, run, reports)
	if err != nil {
		return ports.AnalyzeResult{}, err
	}
	run.result.Reports = parsed
	run.result.Issues = issues

	previous, err := s.app.Store.Latest(ctx, run.result.Project)
	if err != nil {
		return ports.AnalyzeResult{}, errors.AddContext(err, errors.CtxOperation, "load_previous_build")
	}

	aborted := len(reports) > 0 && parsed == 0
	var reference *model.BuildRecord
	if aborted {
		run.log(ports.LogError, "no report could be parsed, analysis aborted")
		run.result.Verdict = model.VerdictFailed
	} else {
		reference, err = s.selectReference(ctx, run.result.Project)
		if err != nil {
			return ports.AnalyzeResult{}, err
		}
		s.compare(ctx, run, reference)
		s.evaluate(run, reference)
	}

	record := s.record(run, previous, reference, !aborted)
	if !req.DryRun {
		if err := s.app.Store.Save(ctx, record); err != nil {
			return ports.AnalyzeResult{}, errors.AddContext(err, errors.CtxOperation, "save_build")
		}
	}
	s.publishMetrics(run)

	span.SetAttributes(
		attribute.String("verdict", run.result.Verdict.String()),
		attribute.Int("issues", len(run.result.Issues)),
		attribute.Int("new", len(run.result.New)),
		attribute.Int("fixed", len(run.result.Fixed)),
	)
	return run.result, nil
}

type runState struct {
	req    ports.AnalyzeRequest
	result ports.AnalyzeResult
}

func (r *runState) log(level ports.LogLevel, format string, args ...any) {
	r.result.Log = append(r.result.Log, ports.LogEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (s *analysisService) project(req ports.AnalyzeRequest) string {
	if req.Project != "" {
		return req.Project
	}
	return s.app.Config.Project
}

func (s *analysisService) collect(ctx context.Context, run *runState) ([]ReportFile, error) {
	_, span := observability.Tracer.Start(ctx, "analysisService.collect")
	defer span.End()

	cfg := s.app.Config.Reports
	workspace := run.req.Workspace
	if workspace == "" {
		workspace = s.app.Paths.Workspace
	}

	paths := run.req.Reports
	if len(paths) == 0 {
		found, err := FindReports(workspace, cfg.Pattern, cfg.Exclude)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxOperation, "find_reports")
		}
		paths = found
	}

	if len(paths) == 0 {
		msg := fmt.Sprintf("no Checkstyle reports matching %q found in %s", cfg.Pattern, workspace)
		if cfg.FailOnMissing {
			return nil, errors.AddContext(errors.New(errors.CodeMissingReports, msg), errors.CtxPath, workspace)
		}
		run.log(ports.LogWarn, "%s", msg)
		s.app.logger.Warn("no reports found", "pattern", cfg.Pattern, "workspace", workspace)
		return nil, nil
	}

	detector := NewModuleDetector(workspace)
	reports := make([]ReportFile, 0, len(paths))
	for _, path := range paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		module := cfg.Module
		if module == "" && cfg.ModulesDetected() {
			module = detector.Guess(path)
		}
		reports = append(reports, ReportFile{Path: path, Module: module})
	}
	run.log(ports.LogInfo, "found %d Checkstyle report(s)", len(reports))
	return reports, nil
}

// parse reads every report concurrently and merges the issues in report
// order. Reports that fail to parse are logged and skipped.
func (s *analysisService) parse(ctx context.Context, run *runState, reports []ReportFile) ([]model.Issue, int, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.parse")
	defer span.End()
	started := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("parse").Observe(time.Since(started).Seconds())
	}()

	parser := report.NewParser(s.app.Config.Reports.Encoding, report.NewPackageDetector(s.app.Resolver))
	results := make([][]model.Issue, len(reports))
	failures := make([]error, len(reports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.app.Config.Reports.Workers)
	for i, rf := range reports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], failures[i] = parser.ParseFile(rf.Path, rf.Module)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var issues []model.Issue
	parsed := 0
	for i, rf := range reports {
		if err := failures[i]; err != nil {
			observability.ReportsParsedTotal.WithLabelValues("failed").Inc()
			run.log(ports.LogError, "%v", err)
			s.app.logger.Warn("report skipped", "path", rf.Path, "error", err)
			continue
		}
		observability.ReportsParsedTotal.WithLabelValues("parsed").Inc()
		parsed++
		issues = append(issues, results[i]...)
		run.log(ports.LogInfo, "parsed %s (module %s): %d issue(s)", rf.Path, rf.Module, len(results[i]))
	}
	return issues, parsed, nil
}

func (s *analysisService) selectReference(ctx context.Context, project string) (*model.BuildRecord, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.selectReference")
	defer span.End()

	reference, err := s.app.selector.Select(ctx, s.app.Store, project)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "select_reference")
	}
	return reference, nil
}

// compare splits the current issues against the reference. Reference issues
// are matched by the fingerprints stored with them; current issues are
// fingerprinted from the workspace sources.
func (s *analysisService) compare(ctx context.Context, run *runState, reference *model.BuildRecord) {
	_, span := observability.Tracer.Start(ctx, "analysisService.compare")
	defer span.End()
	started := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("diff").Observe(time.Since(started).Seconds())
	}()

	var refIssues []model.Issue
	if reference != nil {
		refIssues = reference.Issues
		run.result.ReferenceID = reference.ID
		run.log(ports.LogInfo, "comparing with build #%d (%s)", reference.Number, reference.ID)
	} else {
		run.log(ports.LogInfo, "no reference build, every issue is new")
	}

	var opts diff.Options
	var session *fingerprint.Session
	fp := s.app.Config.Fingerprint
	if fp.IsEnabled() {
		session = fingerprint.NewSession(s.app.Resolver, s.app.Scopes, s.app.Locator, s.app.logger)
		defer session.Close()
		opts.Current = session
	}

	// Attached fingerprints flow into the partitions, which copy the issues.
	if session != nil && fp.Persisted() {
		session.Attach(run.result.Issues)
	}
	res := diff.Compute(run.result.Issues, refIssues, opts)
	run.result.New = res.New
	run.result.Fixed = res.Fixed
	run.result.Unchanged = res.Unchanged

	if misses := session.Misses(); len(misses) > 0 {
		run.log(ports.LogInfo, "%d issue(s) could not be fingerprinted", len(misses))
	}
}

func (s *analysisService) evaluate(run *runState, reference *model.BuildRecord) {
	result := &run.result
	result.Totals = model.CountIssues(result.Issues)
	result.NewCounts = model.CountIssues(result.New)
	result.FixedCounts = model.CountIssues(result.Fixed)

	if limits := s.app.Limits(); limits.Enabled() {
		eval := limits.Evaluate(threshold.Input{
			Totals:    result.Totals,
			New:       result.NewCounts,
			Reference: reference.Counts(),
		})
		result.Verdict = eval.Verdict
		result.Reasons = eval.Reasons
		for _, reason := range eval.Reasons {
			run.log(ports.LogWarn, "%s", reason)
		}
	} else {
		result.Verdict = model.VerdictStable
		s.app.logger.Debug("no thresholds configured, build stays stable", "project", result.Project)
	}

	if health := s.app.Health(); health.Enabled() {
		result.Health, _ = health.Score(result.Totals)
		result.HealthEnabled = true
	}
}

func (s *analysisService) record(run *runState, previous, reference *model.BuildRecord, analyzed bool) model.BuildRecord {
	result := &run.result
	now := run.req.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	number := run.req.BuildNumber
	if number <= 0 {
		number = 1
		if previous != nil {
			number = previous.Number + 1
		}
	}

	rec := model.BuildRecord{
		ID:        uuid.NewString(),
		Project:   result.Project,
		Number:    number,
		Timestamp: now,
		Issues:    result.Issues,
		Verdict:   result.Verdict,
		Health:    result.Health,
		Analyzed:  analyzed,
	}
	if previous != nil {
		rec.PreviousID = previous.ID
		rec.ZeroStreak = previous.ZeroStreak
		rec.ZeroSince = previous.ZeroSince
		rec.HighScore = previous.HighScore
	}
	if reference != nil {
		rec.ReferenceID = reference.ID
	}
	if analyzed {
		tracked := result.Totals.AtLeast(s.app.health.MinimumPriority)
		streak := baseline.NextStreak(previous, tracked, now)
		rec.ZeroStreak = streak.Count
		rec.ZeroSince = streak.Since
		rec.HighScore = streak.HighScore
	}

	result.BuildID = rec.ID
	result.Number = rec.Number
	result.VerdictName = rec.Verdict.String()
	result.ZeroStreak = rec.ZeroStreak
	result.HighScore = rec.HighScore
	return rec
}

func (s *analysisService) publishMetrics(run *runState) {
	result := run.result
	for _, p := range model.Priorities {
		observability.IssuesTotal.WithLabelValues(p.String()).Set(float64(result.Totals.Get(p)))
	}
	observability.DeltaIssues.WithLabelValues("new").Set(float64(len(result.New)))
	observability.DeltaIssues.WithLabelValues("fixed").Set(float64(len(result.Fixed)))
	if result.HealthEnabled {
		observability.HealthScore.Set(float64(result.Health))
	}
}
