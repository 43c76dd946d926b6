// Package refresher re-surfaces visible notifications so the newest stay on top of the tray.
//
// A refresh pass is gated by a persisted cooldown marker. Devices whose tray honours
// timestamp updates get a cheap re-post; other devices cancel and recreate each
// notification from its persisted record.
package refresher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lokalapp/notiflow/internal/analytics"
	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/recreator"
	"github.com/lokalapp/notiflow/internal/remoteconfig"
	"github.com/lokalapp/notiflow/internal/storage"
)

// Defaults for pacing and the silent window.
const (
	DefaultPacing      = 300 * time.Millisecond
	DefaultSilentReset = 30 * time.Second
	recordWindow       = 24 * time.Hour
)

// Pacer delays each step of a refresh pass.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer returns a pacer factory yielding one token per interval. The first
// token is consumed up front so every step waits.
func RatePacer(interval time.Duration) func() Pacer {
	return func() Pacer {
		l := rate.NewLimiter(rate.Every(interval), 1)
		l.Allow()
		return l
	}
}

// Callbacks observe refresh passes. Nil fields are skipped.
type Callbacks struct {
	OnRefreshStarted   func()
	OnRefreshCompleted func(refreshed int)
	OnRefreshFailed    func(err error)
}

// Refresher re-posts or recreates visible notifications.
type Refresher struct {
	platform  ports.PlatformNotifier
	config    *remoteconfig.Store
	device    ports.DeviceClassifier
	analytics ports.AnalyticsSink
	kv        ports.KeyValueStore
	records   *storage.Records
	recreator *recreator.Recreator
	log       logging.Logger

	now         func() time.Time
	newPacer    func() Pacer
	silentReset time.Duration

	gate sync.Mutex

	mu         sync.Mutex
	callbacks  Callbacks
	resetTimer *time.Timer
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Refresher) { r.log = l }
}

// WithClock sets the clock used for the cooldown gate and new timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// WithPacer sets the pacer factory. One pacer is created per pass.
func WithPacer(newPacer func() Pacer) Option {
	return func(r *Refresher) { r.newPacer = newPacer }
}

// WithSilentReset sets how long recreated notifications stay silent after a pass.
func WithSilentReset(d time.Duration) Option {
	return func(r *Refresher) { r.silentReset = d }
}

// Deps groups the collaborators of a Refresher.
type Deps struct {
	Platform  ports.PlatformNotifier
	Config    *remoteconfig.Store
	Device    ports.DeviceClassifier
	Analytics ports.AnalyticsSink
	Store     ports.KeyValueStore
	Records   *storage.Records
	Recreator *recreator.Recreator
}

// New returns a Refresher.
func New(d Deps, opts ...Option) *Refresher {
	r := &Refresher{
		platform:    d.Platform,
		config:      d.Config,
		device:      d.Device,
		analytics:   d.Analytics,
		kv:          d.Store,
		records:     d.Records,
		recreator:   d.Recreator,
		log:         logging.GetGlobal(),
		now:         time.Now,
		newPacer:    RatePacer(DefaultPacing),
		silentReset: DefaultSilentReset,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "refresher")
	return r
}

// SetCallbacks replaces the registered callbacks.
func (r *Refresher) SetCallbacks(cb Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = cb
}

// Refresh runs one pass and returns how many notifications were refreshed.
// Calls within the cooldown of the last admitted pass return immediately.
// The marker is advanced before any platform call, so a failed pass is not retried early.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	if !r.admit(ctx) {
		return 0, nil
	}
	log := r.log.With("pass_id", uuid.NewString())
	if !r.platform.IsBulkEnumerationSupported() {
		log.Debug("bulk enumeration unsupported, skipping refresh")
		return 0, nil
	}

	visible, err := r.platform.ListVisible(ctx, r.device.PackageName())
	if err != nil {
		return 0, r.fail(ctx, log, fmt.Errorf("refresher: list visible: %w", err))
	}
	own := domain.FilterByPackage(visible, r.device.PackageName())
	trigger := r.config.RefreshTriggerLimit(ctx)
	if len(own) < trigger {
		log.Debug("too few notifications to refresh", "visible", len(own), "trigger", trigger)
		return 0, nil
	}

	log.Info("refresh started", "visible", len(own))
	cb := r.currentCallbacks()
	if cb.OnRefreshStarted != nil {
		cb.OnRefreshStarted()
	}

	order := domain.Reverse(domain.SortNewestFirst(own))
	lowFidelity := r.device.IsLowFidelityRefreshDevice()
	var refreshed int
	if lowFidelity {
		refreshed, err = r.repostAll(ctx, order)
	} else {
		refreshed, err = r.recreateAll(ctx, order)
	}
	r.scheduleSilentReset()
	if err != nil {
		return refreshed, r.fail(ctx, log, fmt.Errorf("refresher: %w", err))
	}

	log.Info("refresh completed", "refreshed", refreshed, "visible", len(own), "low_fidelity", lowFidelity)
	r.analytics.Track(ctx, analytics.EventRefreshCompleted, map[string]any{
		"refreshed":    refreshed,
		"visible":      len(own),
		"low_fidelity": lowFidelity,
	})
	if cb.OnRefreshCompleted != nil {
		cb.OnRefreshCompleted(refreshed)
	}
	return refreshed, nil
}

// Stop cancels a pending silent reset and restores normal alerting.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}
	r.mu.Unlock()
	r.recreator.ResetSilent()
}

// LastRefresh returns the persisted marker, or the zero time when none is stored.
func (r *Refresher) LastRefresh(ctx context.Context) time.Time {
	ms := r.marker(ctx)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// admit checks the cooldown and advances the marker under one lock.
func (r *Refresher) admit(ctx context.Context) bool {
	r.gate.Lock()
	defer r.gate.Unlock()

	now := r.now().UnixMilli()
	cooldown := r.config.RefreshTimeout(ctx).Milliseconds()
	if elapsed := now - r.marker(ctx); elapsed < cooldown {
		r.log.Debug("refresh within cooldown", "elapsed_ms", elapsed, "cooldown_ms", cooldown)
		return false
	}
	if err := r.kv.Set(ctx, storage.KeyLastRefresh, strconv.FormatInt(now, 10)); err != nil {
		r.log.Warn("failed to write refresh marker", "error", err)
	}
	return true
}

func (r *Refresher) marker(ctx context.Context) int64 {
	raw, ok, err := r.kv.Get(ctx, storage.KeyLastRefresh)
	if err != nil {
		r.log.Warn("failed to read refresh marker", "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.log.Warn("ignoring corrupt refresh marker", "value", raw)
		return 0
	}
	return ms
}

func (r *Refresher) repostAll(ctx context.Context, order []domain.ActiveNotification) (int, error) {
	pacer := r.newPacer()
	refreshed := 0
	for _, n := range order {
		if n.RefreshKey == 0 {
			r.log.Debug("notification has no refresh id, skipping", "notification_id", n.ID)
			continue
		}
		if err := pacer.Wait(ctx); err != nil {
			return refreshed, err
		}
		now := r.now().UnixMilli()
		n.Timestamp = now
		n.Content.Silent = true
		n.Content = n.Content.WithExtra(domain.ExtraTimestamp, strconv.FormatInt(now, 10))
		if err := r.platform.Repost(ctx, n); err != nil {
			r.log.Warn("failed to repost notification", "notification_id", n.ID, "error", err)
			continue
		}
		r.touch(ctx, n.RefreshKey, now)
		refreshed++
	}
	return refreshed, nil
}

func (r *Refresher) recreateAll(ctx context.Context, order []domain.ActiveNotification) (int, error) {
	cutoff := r.now().Add(-recordWindow).UnixMilli()
	records, err := r.records.Since(ctx, cutoff)
	if err != nil {
		r.log.Warn("failed to load records, nothing to recreate", "error", err)
		records = nil
	}
	byID := domain.IndexByID(records)

	pacer := r.newPacer()
	refreshed := 0
	for _, n := range order {
		if err := pacer.Wait(ctx); err != nil {
			return refreshed, err
		}
		rec, ok := byID[n.RefreshKey]
		if !ok {
			r.log.Debug("no record for notification, skipping", "notification_id", n.ID, "refresh_key", n.RefreshKey)
			continue
		}
		if err := r.platform.Cancel(ctx, n.ID); err != nil {
			r.log.Warn("failed to cancel before recreate", "notification_id", n.ID, "error", err)
			continue
		}
		if err := r.recreator.Recreate(ctx, rec); err != nil {
			r.log.Warn("failed to recreate notification", "notification_id", n.ID, "error", err)
			continue
		}
		r.touch(ctx, rec.NotificationID, r.now().UnixMilli())
		refreshed++
	}
	return refreshed, nil
}

func (r *Refresher) touch(ctx context.Context, id int, ts int64) {
	if err := r.records.Touch(ctx, id, ts); err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		r.log.Warn("failed to touch record", "notification_id", id, "error", err)
	}
}

func (r *Refresher) scheduleSilentReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resetTimer != nil {
		r.resetTimer.Stop()
	}
	r.resetTimer = time.AfterFunc(r.silentReset, r.recreator.ResetSilent)
}

func (r *Refresher) fail(ctx context.Context, log logging.Logger, err error) error {
	log.Error("refresh failed", "error", err)
	r.analytics.RecordException(ctx, err)
	if cb := r.currentCallbacks(); cb.OnRefreshFailed != nil {
		cb.OnRefreshFailed(err)
	}
	return err
}

func (r *Refresher) currentCallbacks() Callbacks {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callbacks
}
