package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.HistoryStore = (*Store)(nil)
	_ ports.HistoryStore = (*MemoryStore)(nil)
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(id, previous string, number int) model.BuildRecord {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return model.BuildRecord{
		ID:         id,
		Project:    "core",
		Number:     number,
		Timestamp:  base.Add(time.Duration(number) * time.Hour),
		Verdict:    model.VerdictUnstable,
		Health:     60,
		Analyzed:   true,
		ZeroStreak: 0,
		HighScore:  4,
		PreviousID: previous,
		Issues: []model.Issue{
			{
				Priority: model.PriorityHigh, Message: "'3' is a magic number.", Category: "Coding",
				Type: "MagicNumber", FileName: "src/A.java", ModuleName: "core", PackageName: "a",
				LineStart: 10, LineEnd: 10, Column: 7, Fingerprint: "abc",
			},
			{Priority: model.PriorityLow, Message: "m", Type: "LineLength", FileName: "src/B.java", LineStart: 1, LineEnd: 1},
		},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	rec := sampleRecord("b1", "", 1)
	rec.ZeroSince = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
}

func TestStore_SaveRejectsDuplicateAndEmptyID(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Save(ctx, sampleRecord("b1", "", 1)))
	assert.Error(t, store.Save(ctx, sampleRecord("b1", "", 2)))

	err := store.Save(ctx, sampleRecord("", "", 3))
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeValidationError))
}

func TestStore_LoadUnknownIsNotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.Load(context.Background(), "missing")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))
}

func TestStore_ChainTraversal(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Save(ctx, sampleRecord("b1", "", 1)))
	require.NoError(t, store.Save(ctx, sampleRecord("b2", "b1", 2)))
	require.NoError(t, store.Save(ctx, sampleRecord("b3", "b2", 3)))
	other := sampleRecord("x1", "", 9)
	other.Project = "other"
	require.NoError(t, store.Save(ctx, other))

	latest, err := store.Latest(ctx, "core")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b3", latest.ID)

	prev, err := store.Previous(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, "b2", prev.ID)

	first, err := store.Load(ctx, "b1")
	require.NoError(t, err)
	none, err := store.Previous(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := store.List(ctx, "core", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b3", list[0].ID)
	assert.Equal(t, "b2", list[1].ID)

	all, err := store.List(ctx, "core", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_LatestOfEmptyProject(t *testing.T) {
	store := openStore(t)
	rec, err := store.Latest(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_EmptyProjectUsesDefault(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	rec := sampleRecord("b1", "", 1)
	rec.Project = "  "
	require.NoError(t, store.Save(ctx, rec))

	latest, err := store.Latest(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, defaultProject, latest.Project)
}

func TestOpen_RejectsDirectoryAndEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	_, err = Open(t.TempDir())
	assert.Error(t, err)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleRecord("b1", "", 1)))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, got.Issues, 2)
}

func TestEnsureSchema_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, EnsureSchema(db))
	_, err = db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1)
	require.NoError(t, err)

	assert.Error(t, EnsureSchema(db))
}

func TestIsCorruptError(t *testing.T) {
	assert.False(t, IsCorruptError(nil))
	assert.True(t, IsCorruptError(os.ErrInvalid))
	assert.False(t, IsCorruptError(assert.AnError))
}

func TestMemoryStore_Chain(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, sampleRecord("b1", "", 1)))
	require.NoError(t, store.Save(ctx, sampleRecord("b2", "b1", 2)))
	assert.Error(t, store.Save(ctx, sampleRecord("b2", "b1", 2)))

	latest, err := store.Latest(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.ID)

	prev, err := store.Previous(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, "b1", prev.ID)

	latest.Issues[0].Message = "mutated"
	again, err := store.Load(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, "'3' is a magic number.", again.Issues[0].Message)

	_, err = store.Load(ctx, "nope")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))
}
