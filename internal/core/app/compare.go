package app

import (
	"context"
	"fmt"

	"checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/engine/diff"
	"checkdelta/internal/engine/fingerprint"
	"checkdelta/internal/engine/report"
	"checkdelta/internal/shared/observability"
)

// CompareRequest compares two reports without touching history.
type CompareRequest struct {
	ReferenceReport string
	CurrentReport   string
	// ReferenceSources are the source roots the reference report was
	// produced from. Without them reference issues match by key only.
	ReferenceSources []string
}

// Compare diffs two Checkstyle reports and evaluates the configured
// thresholds on the result. The streak fields stay zero.
func (a *App) Compare(ctx context.Context, req CompareRequest) (ports.AnalyzeResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Compare")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.AnalyzeResult{}, err
	}
	parser := report.NewParser(a.Config.Reports.Encoding, report.NewPackageDetector(a.Resolver))
	detector := NewModuleDetector(a.Paths.Workspace)

	module := func(path string) string {
		if a.Config.Reports.Module != "" {
			return a.Config.Reports.Module
		}
		if a.Config.Reports.ModulesDetected() {
			return detector.Guess(path)
		}
		return ""
	}
	reference, err := parser.ParseFile(req.ReferenceReport, module(req.ReferenceReport))
	if err != nil {
		return ports.AnalyzeResult{}, errors.AddContext(err, errors.CtxOperation, "parse_reference")
	}
	current, err := parser.ParseFile(req.CurrentReport, module(req.CurrentReport))
	if err != nil {
		return ports.AnalyzeResult{}, errors.AddContext(err, errors.CtxOperation, "parse_current")
	}

	run := &runState{result: ports.AnalyzeResult{
		Project: a.Config.Project,
		Reports: 1,
		Health:  -1,
		Issues:  current,
	}}

	var opts diff.Options
	if a.Config.Fingerprint.IsEnabled() {
		cur := fingerprint.NewSession(a.Resolver, a.Scopes, a.Locator, a.logger)
		defer cur.Close()
		opts.Current = cur
		if len(req.ReferenceSources) > 0 {
			ref := fingerprint.NewSession(NewFileResolver(req.ReferenceSources...), a.Scopes, a.Locator, a.logger)
			defer ref.Close()
			opts.Reference = ref
		}
	}
	res := diff.Compute(current, reference, opts)
	run.result.New = res.New
	run.result.Fixed = res.Fixed
	run.result.Unchanged = res.Unchanged
	run.log(ports.LogInfo, "%d new, %d fixed, %d unchanged", len(res.New), len(res.Fixed), len(res.Unchanged))
	if byFP := countFingerprintMatches(res.Matches); byFP > 0 {
		run.log(ports.LogInfo, "%d issue(s) matched by fingerprint", byFP)
	}

	svc := &analysisService{app: a}
	svc.evaluate(run, &model.BuildRecord{Issues: reference})
	run.result.VerdictName = run.result.Verdict.String()
	a.logger.Debug("compared reports", "reference", req.ReferenceReport, "current", req.CurrentReport,
		"new", fmt.Sprint(len(res.New)), "fixed", fmt.Sprint(len(res.Fixed)))
	return run.result, nil
}

func countFingerprintMatches(matches []diff.Match) int {
	n := 0
	for _, m := range matches {
		if m.ByFingerprint {
			n++
		}
	}
	return n
}
