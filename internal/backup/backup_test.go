package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/storage/sqlite"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "factcheck.db")
	store, err := sqlite.NewStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "community/g1", []byte(`{"patterns":{}}`)))
	require.NoError(t, store.Close())
	return path
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService("", t.TempDir())
	assert.Error(t, err)
	_, err = NewService("x.db", "")
	assert.Error(t, err)
}

func TestSnapshotAndRestore(t *testing.T) {
	ctx := context.Background()
	dbPath := seedDatabase(t)
	dir := filepath.Join(t.TempDir(), "backups")

	svc, err := NewService(dbPath, dir)
	require.NoError(t, err)

	res, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
	assert.Positive(t, res.Size)
	assert.NoError(t, Verify(ctx, res.Path))

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Path, list[0].Path)

	target := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, Restore(ctx, res.Path, target))

	restored, err := sqlite.NewStore(target, nil)
	require.NoError(t, err)
	defer restored.Close()
	got, err := restored.Get(ctx, "community/g1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"patterns":{}}`, string(got))
}

func TestVerify_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database at all, just text"), 0o600))
	assert.Error(t, Verify(context.Background(), path))
}

func TestSnapshot_AppliesRetention(t *testing.T) {
	ctx := context.Background()
	dbPath := seedDatabase(t)
	dir := t.TempDir()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc, err := NewService(dbPath, dir,
		WithClock(clock),
		WithRetention(Retention{Hourly: 2, Daily: 0, Weekly: 0, Monthly: 0}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Snapshot(ctx)
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC), list[0].Timestamp)
	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), list[1].Timestamp)
}

func TestListSnapshots_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"readme.txt", "other.db", "factcheck-notatime.db", "factcheck-20260301T120000Z.db"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "factcheck-20260301T130000Z.db"), 0o700))

	list, err := listSnapshots(dir)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, filepath.Join(dir, "factcheck-20260301T120000Z.db"), list[0].Path)

	_, err = listSnapshots(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) Info {
		return Info{Path: d.String(), Timestamp: now.Add(-d)}
	}
	// Three hourly, two daily, one weekly, one monthly, one past a year.
	snapshots := []Info{
		at(time.Hour), at(2 * time.Hour), at(3 * time.Hour),
		at(2 * 24 * time.Hour), at(3 * 24 * time.Hour),
		at(10 * 24 * time.Hour),
		at(60 * 24 * time.Hour),
		at(400 * 24 * time.Hour),
	}

	drop := expired(snapshots, Retention{Hourly: 2, Daily: 1, Weekly: 1, Monthly: 1}, now)

	var paths []string
	for _, b := range drop {
		paths = append(paths, b.Path)
	}
	assert.ElementsMatch(t, []string{
		(400 * 24 * time.Hour).String(),
		(3 * time.Hour).String(),
		(3 * 24 * time.Hour).String(),
	}, paths)
}
