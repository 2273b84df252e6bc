package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"checkdelta/internal/shared/observability"

	_ "modernc.org/sqlite"
)

const (
	driverName     = "sqlite"
	maxAttempts    = 5
	defaultProject = "default"
)

const buildColumns = `
  id, project, number, ts_utc, verdict, health, analyzed, zero_streak, zero_since_utc, high_score,
  previous_id, reference_id, issues`

// Store persists BuildRecords in SQLite. It implements ports.HistoryStore.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts when parallel jobs share a file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts record. Records are immutable, so saving an existing ID fails.
func (s *Store) Save(ctx context.Context, record model.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(record.ID) == "" {
		return coreerrors.New(coreerrors.CodeValidationError, "build record needs an id")
	}
	record.Project = normalizeProject(record.Project)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	blob, err := encodeIssues(record.Issues)
	if err != nil {
		return err
	}
	zeroSince := ""
	if !record.ZeroSince.IsZero() {
		zeroSince = record.ZeroSince.UTC().Format(time.RFC3339Nano)
	}

	query := `
INSERT INTO builds (` + buildColumns + `, issue_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	return s.withRetry("save build", func() error {
		_, err := s.db.ExecContext(ctx,
			query,
			record.ID,
			record.Project,
			record.Number,
			record.Timestamp.UTC().Format(time.RFC3339Nano),
			record.Verdict.String(),
			record.Health,
			boolToInt(record.Analyzed),
			record.ZeroStreak,
			zeroSince,
			record.HighScore,
			record.PreviousID,
			record.ReferenceID,
			blob,
			len(record.Issues),
		)
		return err
	})
}

// Load returns the record with id, or a NOT_FOUND error.
func (s *Store) Load(ctx context.Context, id string) (*model.BuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.query(ctx, "load build", `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNotFound, fmt.Sprintf("build %s not found", id)),
			coreerrors.CtxOperation, "load build")
	}
	return &records[0], nil
}

// Latest returns the newest record of project, or nil.
func (s *Store) Latest(ctx context.Context, project string) (*model.BuildRecord, error) {
	records, err := s.List(ctx, project, 1)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// Previous follows the predecessor link of record, returning nil at the
// start of the chain.
func (s *Store) Previous(ctx context.Context, record *model.BuildRecord) (*model.BuildRecord, error) {
	if record == nil || record.PreviousID == "" {
		return nil, nil
	}
	prev, err := s.Load(ctx, record.PreviousID)
	if coreerrors.IsCode(err, coreerrors.CodeNotFound) {
		return nil, nil
	}
	return prev, err
}

// List returns up to limit records of project, newest first. A limit of 0
// or less returns all of them.
func (s *Store) List(ctx context.Context, project string, limit int) ([]model.BuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + buildColumns + ` FROM builds WHERE project = ? ORDER BY number DESC, ts_utc DESC, rowid DESC`
	args := []any{normalizeProject(project)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, "list builds", query, args...)
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]model.BuildRecord, error) {
	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.BuildRecord, 0)
	for rows.Next() {
		var (
			tsRaw        string
			verdictRaw   string
			analyzed     int
			zeroSinceRaw string
			blob         []byte
			record       model.BuildRecord
		)
		if err := rows.Scan(
			&record.ID,
			&record.Project,
			&record.Number,
			&tsRaw,
			&verdictRaw,
			&record.Health,
			&analyzed,
			&record.ZeroStreak,
			&zeroSinceRaw,
			&record.HighScore,
			&record.PreviousID,
			&record.ReferenceID,
			&blob,
		); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build timestamp %q: %w", tsRaw, err)
		}
		record.Timestamp = ts.UTC()

		if zeroSinceRaw != "" {
			since, err := time.Parse(time.RFC3339Nano, zeroSinceRaw)
			if err != nil {
				return nil, fmt.Errorf("parse zero-since timestamp %q: %w", zeroSinceRaw, err)
			}
			record.ZeroSince = since.UTC()
		}

		if record.Verdict, err = model.ParseVerdict(verdictRaw); err != nil {
			return nil, fmt.Errorf("build %s: %w", record.ID, err)
		}
		record.Analyzed = analyzed != 0
		if record.Issues, err = decodeIssues(blob); err != nil {
			return nil, fmt.Errorf("build %s: %w", record.ID, err)
		}

		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build rows: %w", err)
	}

	return records, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		observability.HistoryRetryTotal.Inc()
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func normalizeProject(project string) string {
	project = strings.TrimSpace(project)
	if project == "" {
		return defaultProject
	}
	return project
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
