// Package scheduler runs a task on a cron schedule, skipping ticks while a previous run is in progress.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/lokalapp/notiflow/internal/logging"
)

// DefaultSchedule runs the refresh check every 15 minutes.
const DefaultSchedule = "@every 15m"

// Task is the work run on each tick.
type Task func(ctx context.Context) error

// Scheduler owns a cron instance with a single job.
type Scheduler struct {
	mu       sync.Mutex
	parser   cron.Parser
	schedule cron.Schedule
	spec     string
	task     Task
	log      logging.Logger

	c      *cron.Cron
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New parses spec and returns a stopped Scheduler. An empty spec uses DefaultSchedule.
func New(spec string, task Task, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		task:   task,
		log:    logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "scheduler")

	s.spec = strings.TrimSpace(spec)
	if s.spec == "" {
		s.spec = DefaultSchedule
	}
	sched, err := s.parser.Parse(s.spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", s.spec, err)
	}
	s.schedule = sched
	return s, nil
}

// Spec returns the schedule expression in use.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Start begins ticking. Each run receives a context derived from ctx that is
// cancelled by Stop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	logger := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.c.Schedule(s.schedule, cron.FuncJob(func() { s.run(runCtx) }))
	s.c.Start()
	s.log.Info("scheduler started", "schedule", s.spec)
}

// Stop halts ticking and waits for a running task to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	s.cancel()
	<-s.c.Stop().Done()
	s.c = nil
	s.cancel = nil
	s.log.Info("scheduler stopped")
}

// RunOnce runs the task immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.task(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.task(ctx); err != nil {
		s.log.Warn("scheduled task failed", "error", err)
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
