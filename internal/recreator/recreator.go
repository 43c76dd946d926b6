// Package recreator rebuilds a visible notification from its persisted record.
package recreator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/render"
)

// DefaultChannel is the channel recreated notifications are posted to.
const DefaultChannel = "default"

// Recreator re-posts records silently. It bypasses dedup, limiting and analytics.
type Recreator struct {
	renderer *render.Renderer
	now      func() time.Time
	log      logging.Logger
	silent   atomic.Bool
}

// Option configures a Recreator.
type Option func(*Recreator)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Recreator) { r.log = l }
}

// WithClock sets the clock used to stamp recreated notifications.
func WithClock(now func() time.Time) Option {
	return func(r *Recreator) { r.now = now }
}

// New returns a Recreator posting through renderer.
func New(renderer *render.Renderer, opts ...Option) *Recreator {
	r := &Recreator{renderer: renderer, now: time.Now, log: logging.GetGlobal()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "recreator")
	return r
}

// IsSilent reports whether a refresh burst is in progress.
func (r *Recreator) IsSilent() bool {
	return r.silent.Load()
}

// ResetSilent restores normal alerting.
func (r *Recreator) ResetSilent() {
	if r.silent.Swap(false) {
		r.log.Debug("silent mode reset")
	}
}

// Recreate posts rec again with a fresh timestamp. Imagery is re-fetched and degrades
// through the render tiers.
func (r *Recreator) Recreate(ctx context.Context, rec domain.Record) error {
	r.silent.Store(true)

	content := ContentFor(rec).Stamp(r.now().UnixMilli())
	content.Silent = true

	res, err := r.renderer.Render(ctx, content, rec.PostImageURL)
	if err != nil {
		return fmt.Errorf("recreator: notification %d: %w", rec.NotificationID, err)
	}
	r.log.Debug("notification recreated", "notification_id", res.ID, "tier", string(res.Tier))
	return nil
}

// ContentFor builds platform content from rec. Body and category name fall back to the
// values carried in the record extra when the record's own fields are empty.
func ContentFor(rec domain.Record) domain.Content {
	extra := rec.ExtraFields()
	kind := domain.KindPlain
	if rec.PostImageURL != "" {
		kind = domain.KindImage
	}
	c := domain.Content{
		ID:           rec.NotificationID,
		Kind:         kind,
		Channel:      DefaultChannel,
		Title:        rec.Title,
		Body:         fallback(rec.Body, extra["body"]),
		URI:          rec.URI,
		Action:       rec.Action,
		CategoryID:   rec.CategoryID,
		CategoryName: fallback(rec.CategoryName, extra["categoryName"]),
		Tag:          rec.Tag,
		Extras:       map[string]string{},
	}
	if g := rec.GroupNumber(); g > 0 {
		c.GroupKey = rec.GroupID
	}
	for k, v := range extra {
		if s, ok := v.(string); ok {
			c.Extras[k] = s
		}
	}
	return c
}

func fallback(value string, alt any) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	if s, ok := alt.(string); ok {
		return s
	}
	return value
}
