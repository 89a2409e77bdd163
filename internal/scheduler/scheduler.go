// Package scheduler runs the periodic maintenance jobs: pattern expiry and
// rate-window persistence.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/logging"
)

// JobFunc is the body of a job.
type JobFunc func(ctx context.Context) error

// JobStatus reports the last run of a job.
type JobStatus struct {
	Name      string        `json:"name"`
	Spec      string        `json:"spec"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Runs      int           `json:"runs"`
}

type job struct {
	spec   string
	fn     JobFunc
	status JobStatus
}

// Scheduler runs named jobs on cron specs. Standard five-field specs and
// descriptors such as "@daily" or "@every 1m" are accepted. A job that is
// still running when its next tick fires is skipped.
type Scheduler struct {
	cron   *rcron.Cron
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a scheduler.
func New(logger *zap.Logger) *Scheduler {
	logger = logging.OrNop(logger)
	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   rcron.New(rcron.WithChain(rcron.Recover(cl), rcron.SkipIfStillRunning(cl))),
		logger: logger,
		jobs:   make(map[string]*job),
		ctx:    ctx,
		stop:   cancel,
	}
}

// Add registers a job. Names must be unique.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name) }); err != nil {
		return fmt.Errorf("scheduler: job %q: invalid spec %q: %w", name, spec, err)
	}
	s.jobs[name] = &job{spec: spec, fn: fn, status: JobStatus{Name: name, Spec: spec}}
	return nil
}

// Start begins running jobs until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("scheduler: started", zap.Int("jobs", len(s.Status())))
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop halts the scheduler and waits up to five seconds for running jobs.
func (s *Scheduler) Stop() {
	s.stop()
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("scheduler: stop timeout waiting for running jobs")
	}
}

// RunNow runs a job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	return s.run(name)
}

// Status returns every job's last run, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.status)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (s *Scheduler) run(name string) error {
	s.mu.Lock()
	j := s.jobs[name]
	s.mu.Unlock()

	start := time.Now()
	err := j.fn(s.ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	j.status.LastRun = start
	j.status.Duration = elapsed
	j.status.Runs++
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduler: job failed", zap.String("job", name), zap.Error(err))
	} else {
		s.logger.Debug("scheduler: job done", zap.String("job", name), zap.Duration("elapsed", elapsed))
	}
	return err
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
