package history

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
)

// MemoryStore keeps BuildRecords in process. It is used for dry runs and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]model.BuildRecord
	ordered map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]model.BuildRecord),
		ordered: make(map[string][]string),
	}
}

func (m *MemoryStore) Save(ctx context.Context, record model.BuildRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return coreerrors.New(coreerrors.CodeValidationError, "build record needs an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[record.ID]; exists {
		return fmt.Errorf("save build: id %s already exists", record.ID)
	}
	record.Project = normalizeProject(record.Project)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	record.Issues = slices.Clone(record.Issues)
	m.byID[record.ID] = record
	m.ordered[record.Project] = append(m.ordered[record.Project], record.ID)
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*model.BuildRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, coreerrors.New(coreerrors.CodeNotFound, fmt.Sprintf("build %s not found", id))
	}
	record.Issues = slices.Clone(record.Issues)
	return &record, nil
}

func (m *MemoryStore) Latest(ctx context.Context, project string) (*model.BuildRecord, error) {
	records, err := m.List(ctx, project, 1)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (m *MemoryStore) Previous(ctx context.Context, record *model.BuildRecord) (*model.BuildRecord, error) {
	if record == nil || record.PreviousID == "" {
		return nil, nil
	}
	prev, err := m.Load(ctx, record.PreviousID)
	if coreerrors.IsCode(err, coreerrors.CodeNotFound) {
		return nil, nil
	}
	return prev, err
}

// List returns records newest first, in save order.
func (m *MemoryStore) List(ctx context.Context, project string, limit int) ([]model.BuildRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.ordered[normalizeProject(project)]
	out := make([]model.BuildRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		record := m.byID[ids[i]]
		record.Issues = slices.Clone(record.Issues)
		out = append(out, record)
	}
	return out, nil
}
