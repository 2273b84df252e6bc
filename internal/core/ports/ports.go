package ports

import (
	"checkdelta/internal/core/model"
	"context"
	"time"
)

// SourceResolver supplies source bytes for a file name found in a report.
// Implementations return an error wrapping os.ErrNotExist when the file is
// not available; callers treat that as a non-fatal miss.
type SourceResolver interface {
	Read(fileName string) ([]byte, error)
}

// RuleMetadataProvider returns a human-readable description for a rule
// type. It is only used for display.
type RuleMetadataProvider interface {
	Description(ruleType string) string
}

// HistoryStore abstracts BuildRecord persistence in history order. Latest
// and Previous return a nil record at the start of a chain; Load fails with
// NOT_FOUND for an unknown ID. List returns the newest records first.
type HistoryStore interface {
	Save(ctx context.Context, record model.BuildRecord) error
	Load(ctx context.Context, id string) (*model.BuildRecord, error)
	Latest(ctx context.Context, project string) (*model.BuildRecord, error)
	Previous(ctx context.Context, record *model.BuildRecord) (*model.BuildRecord, error)
	List(ctx context.Context, project string, limit int) ([]model.BuildRecord, error)
}

// AnalyzeRequest describes one analysis run.
type AnalyzeRequest struct {
	Project   string
	Workspace string
	// Reports bypasses discovery when set.
	Reports     []string
	BuildNumber int
	Timestamp   time.Time
	// DryRun skips persisting the BuildRecord.
	DryRun bool
}

// LogLevel classifies entries of the analysis log.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is one message of the per-run analysis log.
type LogEntry struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// AnalyzeResult is the outcome of one analysis run.
type AnalyzeResult struct {
	BuildID       string        `json:"build_id"`
	Project       string        `json:"project"`
	Number        int           `json:"number"`
	ReferenceID   string        `json:"reference_id,omitempty"`
	Verdict       model.Verdict `json:"-"`
	VerdictName   string        `json:"verdict"`
	Reasons       []string      `json:"reasons,omitempty"`
	Health        int           `json:"health"`
	HealthEnabled bool          `json:"health_enabled"`
	ZeroStreak    int           `json:"zero_streak"`
	HighScore     int           `json:"high_score"`
	Reports       int           `json:"reports"`
	Totals        model.Counts  `json:"totals"`
	NewCounts     model.Counts  `json:"new_counts"`
	FixedCounts   model.Counts  `json:"fixed_counts"`
	Issues        []model.Issue `json:"issues"`
	New           []model.Issue `json:"new"`
	Fixed         []model.Issue `json:"fixed"`
	Unchanged     []model.Issue `json:"unchanged"`
	Log           []LogEntry    `json:"log,omitempty"`
}

// AnalysisService is the driving port for a single analysis run.
type AnalysisService interface {
	Run(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error)
}
