// Package baseline selects the reference build a new build is compared
// against and carries the zero-issues streak forward.
package baseline

import (
	"context"
	"fmt"
	"time"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
)

// Selector walks the history chain backwards from the newest record of a
// project. UsePreviousBuild takes precedence over UseOnlyStableBuilds.
type Selector struct {
	UsePreviousBuild    bool
	UseOnlyStableBuilds bool
}

// Select returns the reference record, or nil when the history holds none.
func (s Selector) Select(ctx context.Context, store ports.HistoryStore, project string) (*model.BuildRecord, error) {
	rec, err := store.Latest(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("load latest build of %s: %w", project, err)
	}
	if s.UsePreviousBuild {
		return rec, nil
	}
	for rec != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.accepts(rec) {
			return rec, nil
		}
		rec, err = store.Previous(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("walk history of %s: %w", project, err)
		}
	}
	return nil, nil
}

func (s Selector) accepts(rec *model.BuildRecord) bool {
	if !rec.Analyzed {
		return false
	}
	return !s.UseOnlyStableBuilds || rec.Verdict == model.VerdictStable
}

// Streak is the zero-issues bookkeeping of one build.
type Streak struct {
	Count     int
	Since     time.Time
	HighScore int
}

// NextStreak derives the streak of a build with total issues from the
// previous record of the chain, which may be nil.
func NextStreak(previous *model.BuildRecord, total int, now time.Time) Streak {
	var next Streak
	if previous != nil {
		next.HighScore = previous.HighScore
	}
	if total == 0 {
		next.Count = 1
		next.Since = now
		if previous != nil && previous.ZeroStreak > 0 {
			next.Count = previous.ZeroStreak + 1
			if !previous.ZeroSince.IsZero() {
				next.Since = previous.ZeroSince
			}
		}
	}
	next.HighScore = max(next.HighScore, next.Count)
	return next
}
