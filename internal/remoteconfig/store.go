// Package remoteconfig provides typed access to remotely controlled settings
// with built-in defaults.
package remoteconfig

import (
	"context"
	"math"
	"time"

	"github.com/lokalapp/notiflow/internal/ports"
)

// Remote config keys.
const (
	KeyKeepAtTop           = "notification_keep_at_top"
	KeyNotificationLimit   = "notification_limit"
	KeyRefreshTimeoutMs    = "notification_unlock_at_top_timeout_ms"
	KeyRefreshTriggerLimit = "notification_unlock_at_top_limit"
	KeyGroupingActive      = "is_notification_grouping_active"
	KeyNotificationVersion = "notification_version"
	KeyCricketActive       = "is_cricket_notification_active"
	KeyCricketInterval     = "cricket_notification_interval"
	KeyCommentActive       = "is_comment_notification_active"
	KeyCommentGrouping     = "comment_notification_grouping"
	KeyStickyActive        = "is_sticky_notification_active"
	KeyStickyInterval      = "sticky_notification_time_interval"
	KeyMaxCancelCount      = "notification_max_cancel_count"
	KeyUIVersion           = "notification_ui_version"
	KeyUnifiedFeedActive   = "is_unified_feed_active"
)

// Snapshot is an immutable set of remote config values.
type Snapshot struct {
	KeepAtTop           bool
	NotificationLimit   int
	RefreshTimeout      time.Duration
	RefreshTriggerLimit int
	GroupingActive      bool
	NotificationVersion int
	CricketActive       bool
	CricketInterval     time.Duration
	CommentActive       bool
	CommentGrouping     bool
	StickyActive        bool
	StickyInterval      time.Duration
	MaxCancelCount      int
	UIVersion           string
	UnifiedFeedActive   bool
}

// Defaults returns the values used when the provider has nothing better.
func Defaults() Snapshot {
	return Snapshot{
		KeepAtTop:           false,
		NotificationLimit:   10,
		RefreshTimeout:      5 * time.Minute,
		RefreshTriggerLimit: 3,
		GroupingActive:      true,
		NotificationVersion: 1,
		CricketActive:       false,
		CricketInterval:     30 * time.Second,
		CommentActive:       true,
		CommentGrouping:     true,
		StickyActive:        false,
		StickyInterval:      time.Hour,
		MaxCancelCount:      5,
		UIVersion:           "1",
		UnifiedFeedActive:   false,
	}
}

// Store reads typed values through a ConfigProvider. A nil provider serves defaults.
type Store struct {
	provider ports.ConfigProvider
	defaults Snapshot
}

// New returns a Store reading from provider.
func New(provider ports.ConfigProvider) *Store {
	return &Store{provider: provider, defaults: Defaults()}
}

// Snapshot reads every value at once.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	d := s.defaults
	return Snapshot{
		KeepAtTop:           s.boolean(ctx, KeyKeepAtTop, d.KeepAtTop),
		NotificationLimit:   s.count(ctx, KeyNotificationLimit, d.NotificationLimit),
		RefreshTimeout:      s.millis(ctx, KeyRefreshTimeoutMs, d.RefreshTimeout),
		RefreshTriggerLimit: s.count(ctx, KeyRefreshTriggerLimit, d.RefreshTriggerLimit),
		GroupingActive:      s.boolean(ctx, KeyGroupingActive, d.GroupingActive),
		NotificationVersion: s.count(ctx, KeyNotificationVersion, d.NotificationVersion),
		CricketActive:       s.boolean(ctx, KeyCricketActive, d.CricketActive),
		CricketInterval:     s.millis(ctx, KeyCricketInterval, d.CricketInterval),
		CommentActive:       s.boolean(ctx, KeyCommentActive, d.CommentActive),
		CommentGrouping:     s.boolean(ctx, KeyCommentGrouping, d.CommentGrouping),
		StickyActive:        s.boolean(ctx, KeyStickyActive, d.StickyActive),
		StickyInterval:      s.millis(ctx, KeyStickyInterval, d.StickyInterval),
		MaxCancelCount:      s.count(ctx, KeyMaxCancelCount, d.MaxCancelCount),
		UIVersion:           s.text(ctx, KeyUIVersion, d.UIVersion),
		UnifiedFeedActive:   s.boolean(ctx, KeyUnifiedFeedActive, d.UnifiedFeedActive),
	}
}

// KeepAtTop reports whether limiting and refreshing are enabled.
func (s *Store) KeepAtTop(ctx context.Context) bool {
	return s.boolean(ctx, KeyKeepAtTop, s.defaults.KeepAtTop)
}

// NotificationLimit is the configured visible cap. Zero disables limiting.
func (s *Store) NotificationLimit(ctx context.Context) int {
	return s.count(ctx, KeyNotificationLimit, s.defaults.NotificationLimit)
}

// RefreshTimeout is the refresh cooldown.
func (s *Store) RefreshTimeout(ctx context.Context) time.Duration {
	return s.millis(ctx, KeyRefreshTimeoutMs, s.defaults.RefreshTimeout)
}

// RefreshTriggerLimit is the minimum visible count that triggers a refresh.
func (s *Store) RefreshTriggerLimit(ctx context.Context) int {
	return s.count(ctx, KeyRefreshTriggerLimit, s.defaults.RefreshTriggerLimit)
}

func (s *Store) boolean(ctx context.Context, key string, def bool) bool {
	if s.provider == nil {
		return def
	}
	return s.provider.GetBool(ctx, key, def)
}

func (s *Store) text(ctx context.Context, key, def string) string {
	if s.provider == nil {
		return def
	}
	return s.provider.GetString(ctx, key, def)
}

// count reads a non-negative integer; negative, NaN or infinite values fall back to def.
func (s *Store) count(ctx context.Context, key string, def int) int {
	if s.provider == nil {
		return def
	}
	v := s.provider.GetNumber(ctx, key, float64(def))
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > math.MaxInt32 {
		return def
	}
	return int(v)
}

func (s *Store) millis(ctx context.Context, key string, def time.Duration) time.Duration {
	n := s.count(ctx, key, int(def/time.Millisecond))
	return time.Duration(n) * time.Millisecond
}
