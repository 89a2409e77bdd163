package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/backup"
	"github.com/mangomango3x/Discord-fact-check/internal/community"
	"github.com/mangomango3x/Discord-fact-check/internal/patterns"
	"github.com/mangomango3x/Discord-fact-check/internal/ratelimit"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/memory"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/sqlite"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

func TestAdd_Validation(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("a", "@daily", noop))
	assert.Error(t, s.Add("a", "@hourly", noop), "duplicate name")
	assert.Error(t, s.Add("b", "not a spec", noop))
	assert.Len(t, s.Status(), 1)
}

func TestRunNow_RecordsStatus(t *testing.T) {
	s := New(nil)
	fail := true
	require.NoError(t, s.Add("job", "@daily", func(context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}))

	assert.EqualError(t, s.RunNow("job"), "boom")
	st := s.Status()[0]
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, "boom", st.LastError)
	assert.False(t, st.LastRun.IsZero())

	fail = false
	require.NoError(t, s.RunNow("job"))
	st = s.Status()[0]
	assert.Equal(t, 2, st.Runs)
	assert.Empty(t, st.LastError)

	assert.Error(t, s.RunNow("missing"))
}

func TestStart_RunsOnSchedule(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestPanickingJobIsRecovered(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	require.NoError(t, s.Add("panics", "@every 1s", func(context.Context) error {
		runs.Add(1)
		panic("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestFlushJob(t *testing.T) {
	kv := memory.NewStore()
	auto := ratelimit.New("auto", ratelimit.WithStore(kv))
	cmd := ratelimit.New("command", ratelimit.WithStore(kv))
	require.True(t, auto.Allow("u1", time.Minute, 2))
	require.True(t, cmd.Allow("u2", time.Minute, 2))

	require.NoError(t, FlushJob(auto, cmd)(context.Background()))

	keys, err := kv.List(context.Background(), "ratelimit/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ratelimit/auto", "ratelimit/command"}, keys)
}

func TestPruneJob(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-60 * 24 * time.Hour)
	store := patterns.NewStore(community.NewStore(memory.NewStore(), nil),
		patterns.WithClock(func() time.Time { return clock }))

	_, err := store.RecordAndQuery(context.Background(), "g1", []types.KeyPhrase{"moon landing"}, "x", 2)
	require.NoError(t, err)

	clock = now
	require.NoError(t, PruneJob(store, 30*24*time.Hour)(context.Background()))

	top, err := store.Top(context.Background(), "g1", 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestBackupJob(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "factcheck.db")
	db, err := sqlite.NewStore(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, db.Put(context.Background(), "ratelimit/auto", []byte("{}")))
	require.NoError(t, db.Close())

	svc, err := backup.NewService(dbPath, filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)

	s := New(nil)
	require.NoError(t, s.Add(JobBackup, "@hourly", BackupJob(svc)))
	require.NoError(t, s.RunNow(JobBackup))

	list, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
