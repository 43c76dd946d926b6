// Package hooks runs user scripts when the notification core emits an event.
//
// Scripts live in <dir>/<event>/ and run in name order. Each receives HOOK_EVENT,
// HOOK_TIMESTAMP and one NOTIFLOW_<PROPERTY> variable per event property.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
)

// DefaultTimeout bounds a single script.
const DefaultTimeout = 5 * time.Second

// EventException is the hook point for recorded exceptions.
const EventException = "exception"

// Runner executes hook scripts.
type Runner struct {
	dir     string
	timeout time.Duration
	now     func() time.Time
	log     logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-script timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithClock sets the clock used for HOOK_TIMESTAMP.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New returns a Runner reading scripts from dir.
func New(dir string, opts ...Option) *Runner {
	r := &Runner{
		dir:     dir,
		timeout: DefaultTimeout,
		now:     time.Now,
		log:     logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "hooks")
	return r
}

// Scripts lists the executable scripts for event in run order.
// A missing directory yields no scripts.
func (r *Runner) Scripts(event string) ([]string, error) {
	if r.dir == "" {
		return nil, nil
	}
	dir := filepath.Join(r.dir, event)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hooks: read %s: %w", dir, err)
	}
	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}
		scripts = append(scripts, filepath.Join(dir, e.Name()))
	}
	sort.Strings(scripts)
	return scripts, nil
}

// Run executes every script for event. All scripts run; failures are joined.
func (r *Runner) Run(ctx context.Context, event string, env map[string]string) error {
	scripts, err := r.Scripts(event)
	if err != nil || len(scripts) == 0 {
		return err
	}
	vars := r.environ(event, env)
	var errs []error
	for _, script := range scripts {
		if err := r.exec(ctx, script, vars); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) exec(ctx context.Context, script string, vars []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, script)
	cmd.Env = vars
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	name := filepath.Base(script)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", r.timeout)
		}
		r.log.Warn("hook failed", "hook", name, "error", err, "output", strings.TrimSpace(string(out)))
		return fmt.Errorf("hooks: %s: %w", name, err)
	}
	r.log.Debug("hook completed", "hook", name, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (r *Runner) environ(event string, env map[string]string) []string {
	vars := append(os.Environ(),
		"HOOK_EVENT="+event,
		"HOOK_TIMESTAMP="+r.now().UTC().Format(time.RFC3339),
	)
	if exe, err := os.Executable(); err == nil {
		vars = append(vars, "NOTIFLOW_BINARY="+exe)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vars = append(vars, k+"="+env[k])
	}
	return vars
}

// Sink forwards analytics to next and runs the matching hooks.
type Sink struct {
	next   ports.AnalyticsSink
	runner *Runner
}

var _ ports.AnalyticsSink = (*Sink)(nil)

// NewSink wraps next.
func NewSink(next ports.AnalyticsSink, runner *Runner) *Sink {
	return &Sink{next: next, runner: runner}
}

// Track forwards the event and runs its hooks. Hook failures are logged only.
func (s *Sink) Track(ctx context.Context, event string, properties map[string]any) {
	s.next.Track(ctx, event, properties)
	env := make(map[string]string, len(properties))
	for k, v := range properties {
		env[EnvName(k)] = fmt.Sprint(v)
	}
	_ = s.runner.Run(ctx, event, env)
}

// RecordException forwards err and runs the exception hooks.
func (s *Sink) RecordException(ctx context.Context, err error) {
	s.next.RecordException(ctx, err)
	if err == nil {
		return
	}
	_ = s.runner.Run(ctx, EventException, map[string]string{"NOTIFLOW_ERROR": err.Error()})
}

// EnvName maps a property name to its environment variable, e.g. notification_id
// to NOTIFLOW_NOTIFICATION_ID.
func EnvName(property string) string {
	var b strings.Builder
	b.WriteString("NOTIFLOW_")
	for _, c := range strings.ToUpper(property) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
