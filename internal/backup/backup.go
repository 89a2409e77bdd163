// Package backup snapshots the SQLite store and prunes old snapshots with a
// tiered retention policy.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mangomango3x/Discord-fact-check/internal/logging"
)

const (
	filePrefix = "factcheck-"
	fileSuffix = ".db"
	timeLayout = "20060102T150405Z"
)

// Retention is how many snapshots to keep in each age tier. Snapshots older
// than a year are always removed.
type Retention struct {
	Hourly  int `yaml:"hourly"`
	Daily   int `yaml:"daily"`
	Weekly  int `yaml:"weekly"`
	Monthly int `yaml:"monthly"`
}

// DefaultRetention keeps a day of hourly snapshots, a week of dailies, a
// month of weeklies and a year of monthlies.
func DefaultRetention() Retention {
	return Retention{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12}
}

// Info describes one snapshot file.
type Info struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Result is the outcome of one Snapshot call.
type Result struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"duration"`
	Removed  int           `json:"removed"`
}

// Service writes snapshots of a single database file.
type Service struct {
	dbPath    string
	dir       string
	retention Retention
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRetention overrides DefaultRetention.
func WithRetention(r Retention) Option {
	return func(s *Service) { s.retention = r }
}

// WithClock sets the clock used to name snapshots and age them.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(logger) }
}

// NewService creates the snapshot directory if needed.
func NewService(dbPath, dir string, opts ...Option) (*Service, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	s := &Service{
		dbPath:    dbPath,
		dir:       dir,
		retention: DefaultRetention(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Snapshot copies the database with VACUUM INTO, checks the copy's
// integrity and then applies retention. A copy that fails the check is
// removed.
func (s *Service) Snapshot(ctx context.Context) (Result, error) {
	start := s.now()
	dest := filepath.Join(s.dir, filePrefix+start.UTC().Format(timeLayout)+fileSuffix)

	if err := vacuumInto(ctx, s.dbPath, dest); err != nil {
		return Result{}, err
	}
	if err := Verify(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return Result{}, err
	}

	st, err := os.Stat(dest)
	if err != nil {
		return Result{}, fmt.Errorf("stat snapshot: %w", err)
	}

	removed, err := s.applyRetention()
	res := Result{Path: dest, Size: st.Size(), Duration: time.Since(start), Removed: removed}
	if err != nil {
		return res, err
	}

	s.logger.Info("database snapshot written",
		zap.String("path", dest),
		zap.Int64("size", res.Size),
		zap.Int("removed", removed))
	return res, nil
}

// List returns the snapshots in the backup directory, newest first.
func (s *Service) List() ([]Info, error) {
	return listSnapshots(s.dir)
}

func vacuumInto(ctx context.Context, src, dest string) error {
	db, err := sql.Open("sqlite", "file:"+src+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping source database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

// Verify runs SQLite's integrity check against a snapshot.
func Verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Restore verifies a snapshot and copies it over target. The target
// database must not be open.
func Restore(ctx context.Context, snapshot, target string) error {
	if err := Verify(ctx, snapshot); err != nil {
		return fmt.Errorf("snapshot verification failed: %w", err)
	}

	src, err := os.Open(snapshot)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to sync target file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return err
	}

	// Stale WAL files would be replayed over the restored copy.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(target + suffix)
	}
	return Verify(ctx, target)
}
