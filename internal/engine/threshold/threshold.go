// Package threshold turns issue counts into a build verdict and a health
// score.
package threshold

import (
	"fmt"
	"strconv"
	"strings"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
)

// Thresholds are the configured limits. Each value is a non-negative
// integer; an empty string disables the limit. A limit is breached only when
// the count is strictly greater than it, so a count equal to the limit still
// passes and a limit of 0 trips on the first issue.
type Thresholds struct {
	UnstableTotalAll    string `toml:"unstable_total_all"`
	UnstableTotalHigh   string `toml:"unstable_total_high"`
	UnstableTotalNormal string `toml:"unstable_total_normal"`
	UnstableTotalLow    string `toml:"unstable_total_low"`
	UnstableNewAll      string `toml:"unstable_new_all"`
	UnstableNewHigh     string `toml:"unstable_new_high"`
	UnstableNewNormal   string `toml:"unstable_new_normal"`
	UnstableNewLow      string `toml:"unstable_new_low"`
	FailedTotalAll      string `toml:"failed_total_all"`
	FailedTotalHigh     string `toml:"failed_total_high"`
	FailedTotalNormal   string `toml:"failed_total_normal"`
	FailedTotalLow      string `toml:"failed_total_low"`
	FailedNewAll        string `toml:"failed_new_all"`
	FailedNewHigh       string `toml:"failed_new_high"`
	FailedNewNormal     string `toml:"failed_new_normal"`
	FailedNewLow        string `toml:"failed_new_low"`
	// UseDeltaValues measures new issues as the growth of the total over the
	// reference build instead of the number of new issues.
	UseDeltaValues bool `toml:"use_delta_values"`
}

// Bucket selects which priorities a limit counts.
type Bucket int

const (
	BucketAll Bucket = iota
	BucketHigh
	BucketNormal
	BucketLow
)

func (b Bucket) String() string {
	switch b {
	case BucketHigh:
		return "high"
	case BucketNormal:
		return "normal"
	case BucketLow:
		return "low"
	default:
		return "all"
	}
}

func (b Bucket) count(c model.Counts) int {
	switch b {
	case BucketHigh:
		return c.High
	case BucketNormal:
		return c.Normal
	case BucketLow:
		return c.Low
	default:
		return c.Total()
	}
}

// Measure is the quantity a limit applies to.
type Measure int

const (
	MeasureTotal Measure = iota
	MeasureNew
)

func (m Measure) String() string {
	if m == MeasureNew {
		return "new"
	}
	return "total"
}

// Limit is one parsed threshold.
type Limit struct {
	Verdict model.Verdict
	Measure Measure
	Bucket  Bucket
	Value   int
}

// Name is the configuration key of the limit, e.g. "unstable_total_all".
func (l Limit) Name() string {
	return fmt.Sprintf("%s_%s_%s", strings.ToLower(l.Verdict.String()), l.Measure, l.Bucket)
}

// Limits is the validated form of Thresholds. Failed limits come first.
type Limits struct {
	Entries        []Limit
	UseDeltaValues bool
}

// ParseThresholds validates every configured limit. It returns a
// THRESHOLD_CONFIG error naming the first invalid value.
func ParseThresholds(t Thresholds) (Limits, error) {
	raw := []struct {
		verdict model.Verdict
		measure Measure
		bucket  Bucket
		value   string
	}{
		{model.VerdictFailed, MeasureTotal, BucketAll, t.FailedTotalAll},
		{model.VerdictFailed, MeasureTotal, BucketHigh, t.FailedTotalHigh},
		{model.VerdictFailed, MeasureTotal, BucketNormal, t.FailedTotalNormal},
		{model.VerdictFailed, MeasureTotal, BucketLow, t.FailedTotalLow},
		{model.VerdictFailed, MeasureNew, BucketAll, t.FailedNewAll},
		{model.VerdictFailed, MeasureNew, BucketHigh, t.FailedNewHigh},
		{model.VerdictFailed, MeasureNew, BucketNormal, t.FailedNewNormal},
		{model.VerdictFailed, MeasureNew, BucketLow, t.FailedNewLow},
		{model.VerdictUnstable, MeasureTotal, BucketAll, t.UnstableTotalAll},
		{model.VerdictUnstable, MeasureTotal, BucketHigh, t.UnstableTotalHigh},
		{model.VerdictUnstable, MeasureTotal, BucketNormal, t.UnstableTotalNormal},
		{model.VerdictUnstable, MeasureTotal, BucketLow, t.UnstableTotalLow},
		{model.VerdictUnstable, MeasureNew, BucketAll, t.UnstableNewAll},
		{model.VerdictUnstable, MeasureNew, BucketHigh, t.UnstableNewHigh},
		{model.VerdictUnstable, MeasureNew, BucketNormal, t.UnstableNewNormal},
		{model.VerdictUnstable, MeasureNew, BucketLow, t.UnstableNewLow},
	}

	limits := Limits{UseDeltaValues: t.UseDeltaValues}
	for _, r := range raw {
		l := Limit{Verdict: r.verdict, Measure: r.measure, Bucket: r.bucket}
		value := strings.TrimSpace(r.value)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			cause := err
			if cause == nil {
				cause = fmt.Errorf("negative limit %d", n)
			}
			return Limits{}, coreerrors.AddContext(
				coreerrors.Wrap(cause, coreerrors.CodeThresholdConfig,
					fmt.Sprintf("threshold %s must be a non-negative integer, got %q", l.Name(), r.value)),
				coreerrors.CtxField, l.Name())
		}
		l.Value = n
		limits.Entries = append(limits.Entries, l)
	}
	return limits, nil
}

// Enabled reports whether any limit is configured.
func (l Limits) Enabled() bool {
	return len(l.Entries) > 0
}

// Input holds the counts of one build.
type Input struct {
	Totals    model.Counts
	New       model.Counts
	Reference model.Counts
}

// Evaluation is the verdict of one build with the breached limits.
type Evaluation struct {
	Verdict model.Verdict
	Reasons []string
}

// Evaluate checks every limit. Any failed breach yields FAILED; otherwise
// any unstable breach yields UNSTABLE.
func (l Limits) Evaluate(in Input) Evaluation {
	newCounts := in.New
	if l.UseDeltaValues {
		newCounts = model.Counts{
			High:   max(0, in.Totals.High-in.Reference.High),
			Normal: max(0, in.Totals.Normal-in.Reference.Normal),
			Low:    max(0, in.Totals.Low-in.Reference.Low),
		}
	}

	eval := Evaluation{Verdict: model.VerdictStable}
	for _, limit := range l.Entries {
		counts := in.Totals
		if limit.Measure == MeasureNew {
			counts = newCounts
		}
		actual := limit.Bucket.count(counts)
		if actual <= limit.Value {
			continue
		}
		eval.Verdict = eval.Verdict.Worse(limit.Verdict)
		eval.Reasons = append(eval.Reasons, fmt.Sprintf("%s %s issues: %d exceeds %s limit %d",
			limit.Measure, limit.Bucket, actual, strings.ToLower(limit.Verdict.String()), limit.Value))
	}
	return eval
}
