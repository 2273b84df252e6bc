package model

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the stability classification of one build, ordered by severity.
type Verdict int

const (
	VerdictStable Verdict = iota
	VerdictUnstable
	VerdictFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictStable:
		return "STABLE"
	case VerdictUnstable:
		return "UNSTABLE"
	case VerdictFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Worse returns the more severe of v and other.
func (v Verdict) Worse(other Verdict) Verdict {
	if other > v {
		return other
	}
	return v
}

func ParseVerdict(value string) (Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "STABLE":
		return VerdictStable, nil
	case "UNSTABLE":
		return VerdictUnstable, nil
	case "FAILED":
		return VerdictFailed, nil
	default:
		return 0, fmt.Errorf("unknown verdict %q", value)
	}
}

// Counts holds per-priority issue counts.
type Counts struct {
	High   int `json:"high"`
	Normal int `json:"normal"`
	Low    int `json:"low"`
}

func (c *Counts) Add(p Priority, n int) {
	switch p {
	case PriorityHigh:
		c.High += n
	case PriorityNormal:
		c.Normal += n
	case PriorityLow:
		c.Low += n
	}
}

func (c Counts) Get(p Priority) int {
	switch p {
	case PriorityHigh:
		return c.High
	case PriorityNormal:
		return c.Normal
	case PriorityLow:
		return c.Low
	default:
		return 0
	}
}

func (c Counts) Total() int {
	return c.High + c.Normal + c.Low
}

// AtLeast sums the buckets at or above min.
func (c Counts) AtLeast(min Priority) int {
	total := 0
	for _, p := range Priorities {
		if p.AtLeast(min) {
			total += c.Get(p)
		}
	}
	return total
}

// BuildRecord is one persisted analysis run. Records are never modified
// after they are saved.
type BuildRecord struct {
	ID          string
	Project     string
	Number      int
	Timestamp   time.Time
	Issues      []Issue
	Verdict     Verdict
	Health      int
	Analyzed    bool
	ZeroStreak  int
	ZeroSince   time.Time
	HighScore   int
	PreviousID  string
	ReferenceID string
}

func (r *BuildRecord) Counts() Counts {
	if r == nil {
		return Counts{}
	}
	return CountIssues(r.Issues)
}
