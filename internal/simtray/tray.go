// Package simtray is a PlatformNotifier that keeps the notification tray in a key/value store.
// It backs the developer CLI and end-to-end tests where no real platform is available.
package simtray

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
)

// Storage keys.
const (
	KeyTray     = "sim_tray"
	KeyChannels = "sim_tray_channels"
)

// MinBulkEnumerationVersion is the first platform version able to list visible notifications.
const MinBulkEnumerationVersion = 23

// ErrInvalidID is returned when content without an ID is posted.
var ErrInvalidID = errors.New("simtray: notification id must not be zero")

// Entry is one posted notification. Image payloads are reduced to their sizes.
type Entry struct {
	Package    string            `json:"package"`
	ID         int               `json:"id"`
	Kind       string            `json:"kind"`
	Channel    string            `json:"channel"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	URI        string            `json:"uri,omitempty"`
	GroupKey   string            `json:"groupKey,omitempty"`
	Silent     bool              `json:"silent"`
	Ongoing    bool              `json:"ongoing,omitempty"`
	ImageBytes int               `json:"imageBytes,omitempty"`
	BlurBytes  int               `json:"blurBytes,omitempty"`
	Extras     map[string]string `json:"extras,omitempty"`
	PostedAt   int64             `json:"postedAt"`
}

func (e Entry) content() domain.Content {
	return domain.Content{
		ID:       e.ID,
		Kind:     domain.RequestKind(e.Kind),
		Channel:  e.Channel,
		Title:    e.Title,
		Body:     e.Body,
		URI:      e.URI,
		GroupKey: e.GroupKey,
		Silent:   e.Silent,
		Ongoing:  e.Ongoing,
		Extras:   e.Extras,
	}
}

// Tray simulates the platform notification tray.
type Tray struct {
	mu      sync.Mutex
	kv      ports.KeyValueStore
	pkg     string
	version int
	bulk    bool
	now     func() time.Time
	log     logging.Logger
}

// Option configures a Tray.
type Option func(*Tray)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(t *Tray) { t.log = l }
}

// WithClock sets the clock used for PostedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Tray) { t.now = now }
}

// WithBulkEnumeration switches enumeration off regardless of the platform version.
func WithBulkEnumeration(enabled bool) Option {
	return func(t *Tray) { t.bulk = enabled }
}

// New returns a tray posting as device.PackageName().
func New(kv ports.KeyValueStore, device ports.DeviceClassifier, opts ...Option) *Tray {
	t := &Tray{
		kv:      kv,
		pkg:     device.PackageName(),
		version: device.PlatformVersion(),
		bulk:    true,
		now:     time.Now,
		log:     logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "simtray")
	return t
}

// Create posts c, replacing any entry with the same ID.
func (t *Tray) Create(ctx context.Context, c domain.Content) (int, error) {
	if c.ID == 0 {
		return 0, ErrInvalidID
	}
	entry := Entry{
		Package:    t.pkg,
		ID:         c.ID,
		Kind:       c.Kind.String(),
		Channel:    c.Channel,
		Title:      c.Title,
		Body:       c.Body,
		URI:        c.URI,
		GroupKey:   c.GroupKey,
		Silent:     c.Silent,
		Ongoing:    c.Ongoing,
		ImageBytes: len(c.Image),
		BlurBytes:  len(c.BlurredImage),
		Extras:     c.Extras,
		PostedAt:   t.now().UnixMilli(),
	}
	err := t.mutate(ctx, func(entries []Entry) []Entry {
		return append(without(entries, t.pkg, c.ID), entry)
	})
	if err != nil {
		return 0, err
	}
	t.log.Debug("notification posted", "notification_id", c.ID, "silent", c.Silent, "image_bytes", len(c.Image))
	return c.ID, nil
}

// Cancel removes the entry for id. Unknown IDs are ignored.
func (t *Tray) Cancel(ctx context.Context, id int) error {
	return t.mutate(ctx, func(entries []Entry) []Entry {
		return without(entries, t.pkg, id)
	})
}

// ListVisible returns the entries posted by packageFilter in posting order.
// An empty filter lists every package.
func (t *Tray) ListVisible(ctx context.Context, packageFilter string) ([]domain.ActiveNotification, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActiveNotification, 0, len(entries))
	for _, e := range entries {
		if packageFilter != "" && e.Package != packageFilter {
			continue
		}
		out = append(out, domain.ViewOf(e.Package, e.content()))
	}
	return out, nil
}

// IsBulkEnumerationSupported reports whether the simulated platform version can list notifications.
func (t *Tray) IsBulkEnumerationSupported() bool {
	return t.bulk && t.version >= MinBulkEnumerationVersion
}

// Repost moves n to the top of the tray with its new extras.
func (t *Tray) Repost(ctx context.Context, n domain.ActiveNotification) error {
	c := n.Content
	c.ID = n.ID
	if _, err := t.Create(ctx, c); err != nil {
		return fmt.Errorf("simtray: repost %d: %w", n.ID, err)
	}
	return nil
}

// EnsureChannel records the default channel as created.
func (t *Tray) EnsureChannel(ctx context.Context) error {
	if err := t.kv.Set(ctx, KeyChannels, `["default"]`); err != nil {
		return fmt.Errorf("simtray: ensure channel: %w", err)
	}
	return nil
}

// Entries returns every posted entry in posting order.
func (t *Tray) Entries(ctx context.Context) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

// Clear removes every entry.
func (t *Tray) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.kv.Remove(ctx, KeyTray); err != nil {
		return fmt.Errorf("simtray: clear: %w", err)
	}
	return nil
}

func (t *Tray) mutate(ctx context.Context, fn func([]Entry) []Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries, err := t.load(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fn(entries))
	if err != nil {
		return fmt.Errorf("simtray: encode: %w", err)
	}
	if err := t.kv.Set(ctx, KeyTray, string(data)); err != nil {
		return fmt.Errorf("simtray: save: %w", err)
	}
	return nil
}

func (t *Tray) load(ctx context.Context) ([]Entry, error) {
	raw, ok, err := t.kv.Get(ctx, KeyTray)
	if err != nil {
		return nil, fmt.Errorf("simtray: load: %w", err)
	}
	entries := []Entry{}
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.log.Warn("discarding corrupt tray state", "error", err)
		return []Entry{}, nil
	}
	return entries, nil
}

func without(entries []Entry, pkg string, id int) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Package == pkg && e.ID == id {
			continue
		}
		out = append(out, e)
	}
	return out
}
