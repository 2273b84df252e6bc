package model

import (
	"fmt"
	"strings"
)

// Priority buckets an issue by the severity the checker reported.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityNormal
	PriorityLow
)

// Priorities lists every bucket from most to least severe.
var Priorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// AtLeast reports whether p is as severe as min or more.
func (p Priority) AtLeast(min Priority) bool {
	return p <= min
}

// PriorityFromSeverity maps a report severity attribute. Unknown severities
// return false and must be dropped by the caller.
func PriorityFromSeverity(severity string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "error":
		return PriorityHigh, true
	case "warning":
		return PriorityNormal, true
	case "info":
		return PriorityLow, true
	default:
		return 0, false
	}
}

// ParsePriority accepts both priority names (high/normal/low) and report
// severities (error/warning/info).
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return PriorityHigh, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	if p, ok := PriorityFromSeverity(value); ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown priority %q", value)
}

// Issue is one diagnostic after parsing.
type Issue struct {
	Priority    Priority `msgpack:"priority" json:"priority"`
	Message     string   `msgpack:"message" json:"message"`
	Category    string   `msgpack:"category" json:"category"`
	Type        string   `msgpack:"type" json:"type"`
	FileName    string   `msgpack:"file" json:"file"`
	ModuleName  string   `msgpack:"module" json:"module"`
	PackageName string   `msgpack:"package" json:"package"`
	LineStart   int      `msgpack:"line_start" json:"line_start"`
	LineEnd     int      `msgpack:"line_end" json:"line_end"`
	Column      int      `msgpack:"column,omitempty" json:"column,omitempty"`
	Fingerprint string   `msgpack:"fingerprint,omitempty" json:"fingerprint,omitempty"`
}

// Key is the exact-equality identity of an issue.
type Key struct {
	FileName  string
	Type      string
	Message   string
	LineStart int
}

func (i Issue) Key() Key {
	return Key{
		FileName:  i.FileName,
		Type:      i.Type,
		Message:   i.Message,
		LineStart: i.LineStart,
	}
}

func (i Issue) HasFingerprint() bool {
	return i.Fingerprint != ""
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d [%s/%s] %s", i.FileName, i.LineStart, i.Priority, i.Type, i.Message)
}

// CountIssues buckets issues by priority.
func CountIssues(issues []Issue) Counts {
	var c Counts
	for _, issue := range issues {
		c.Add(issue.Priority, 1)
	}
	return c
}

// Files returns the distinct file names in first-seen order.
func Files(issues []Issue) []string {
	seen := make(map[string]bool, len(issues))
	out := make([]string, 0)
	for _, issue := range issues {
		if seen[issue.FileName] {
			continue
		}
		seen[issue.FileName] = true
		out = append(out, issue.FileName)
	}
	return out
}
