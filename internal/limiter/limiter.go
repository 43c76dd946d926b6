// Package limiter keeps the number of visible notifications under the configured cap
// by cancelling the oldest ones.
package limiter

import (
	"context"
	"fmt"
	"sync"

	"github.com/lokalapp/notiflow/internal/analytics"
	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/remoteconfig"
)

// Callbacks observe limiter passes. Nil fields are skipped.
type Callbacks struct {
	OnNotificationsLimited func(removed int)
	OnLimitCheckCompleted  func(activeCount, limit int)
}

// Limiter evicts visible notifications beyond the configured cap.
type Limiter struct {
	platform  ports.PlatformNotifier
	config    *remoteconfig.Store
	device    ports.DeviceClassifier
	analytics ports.AnalyticsSink
	log       logging.Logger

	mu        sync.RWMutex
	callbacks Callbacks
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(lim *Limiter) { lim.log = l }
}

// New returns a Limiter.
func New(platform ports.PlatformNotifier, cfg *remoteconfig.Store, device ports.DeviceClassifier, sink ports.AnalyticsSink, opts ...Option) *Limiter {
	l := &Limiter{
		platform:  platform,
		config:    cfg,
		device:    device,
		analytics: sink,
		log:       logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With("component", "limiter")
	return l
}

// SetCallbacks replaces the registered callbacks.
func (l *Limiter) SetCallbacks(cb Callbacks) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = cb
}

// EffectiveLimit converts the configured cap into the number of notifications kept.
// A cap above one keeps one slot free for the notification about to be posted.
func EffectiveLimit(configured int) int {
	if configured > 1 {
		return configured - 1
	}
	return configured
}

// Evictions returns the views to cancel so that only the limit newest remain, oldest first.
// Views with equal timestamps keep their enumeration order.
func Evictions(views []domain.ActiveNotification, limit int) []domain.ActiveNotification {
	if limit <= 0 || len(views) <= limit {
		return nil
	}
	newest := domain.SortNewestFirst(views)
	return domain.Reverse(newest[limit:])
}

// Limit cancels the oldest visible notifications of this package beyond the effective limit
// and returns how many were cancelled. It is a no-op unless keep-at-top is enabled and the
// platform can enumerate notifications.
func (l *Limiter) Limit(ctx context.Context) (int, error) {
	if !l.config.KeepAtTop(ctx) || !l.platform.IsBulkEnumerationSupported() {
		return 0, nil
	}

	configured := l.config.NotificationLimit(ctx)
	if configured == 0 {
		l.log.Debug("limit is 0, not removing older notifications")
		return 0, nil
	}
	limit := EffectiveLimit(configured)

	visible, err := l.platform.ListVisible(ctx, l.device.PackageName())
	if err != nil {
		err = fmt.Errorf("limiter: list visible: %w", err)
		l.log.Error("failed to enumerate notifications", "error", err)
		l.analytics.RecordException(ctx, err)
		return 0, err
	}
	own := domain.FilterByPackage(visible, l.device.PackageName())

	evict := Evictions(own, limit)
	if len(evict) == 0 {
		l.log.Debug("active notifications within limit", "active", len(own), "limit", limit)
		l.completed(len(own), limit)
		return 0, nil
	}

	removed := 0
	for _, n := range evict {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := l.platform.Cancel(ctx, n.ID); err != nil {
			err = fmt.Errorf("limiter: cancel %d: %w", n.ID, err)
			l.log.Warn("failed to cancel notification", "notification_id", n.ID, "error", err)
			l.analytics.RecordException(ctx, err)
			continue
		}
		removed++
	}

	l.log.Info("limited notifications", "removed", removed, "active", len(own)-removed, "limit", limit)
	l.analytics.Track(ctx, analytics.EventNotificationsLimited, map[string]any{
		"removed": removed,
		"limit":   limit,
	})
	l.mu.RLock()
	cb := l.callbacks
	l.mu.RUnlock()
	if cb.OnNotificationsLimited != nil {
		cb.OnNotificationsLimited(removed)
	}
	l.completed(len(own)-removed, limit)
	return removed, nil
}

func (l *Limiter) completed(active, limit int) {
	l.mu.RLock()
	fn := l.callbacks.OnLimitCheckCompleted
	l.mu.RUnlock()
	if fn != nil {
		fn(active, limit)
	}
}
