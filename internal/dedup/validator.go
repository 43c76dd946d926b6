package dedup

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/storage"
)

// Validator admits or rejects notifications by ID and group.
type Validator struct {
	mu       sync.Mutex
	kv       ports.KeyValueStore
	log      logging.Logger
	capacity int
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for storage failures.
func WithLogger(l logging.Logger) Option {
	return func(v *Validator) { v.log = l }
}

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(v *Validator) { v.capacity = n }
}

// NewValidator returns a Validator persisting its histories in kv.
func NewValidator(kv ports.KeyValueStore, opts ...Option) *Validator {
	v := &Validator{kv: kv, log: logging.GetGlobal(), capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(v)
	}
	v.log = v.log.With("component", "validator")
	return v
}

// IsValid reports whether a notification may be shown.
// The group history is only consulted when the ID is admitted, and group 0 means ungrouped.
func (v *Validator) IsValid(ctx context.Context, notificationID, groupID int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.admit(ctx, storage.KeyIDHistory, notificationID) {
		v.log.Debug("duplicate notification rejected", "notification_id", notificationID)
		return false
	}
	if groupID == 0 {
		return true
	}
	if !v.admit(ctx, storage.KeyGroupHistory, groupID) {
		v.log.Debug("duplicate group rejected", "notification_id", notificationID, "group_id", groupID)
		return false
	}
	return true
}

// Histories returns the current ID and group histories, oldest first.
func (v *Validator) Histories(ctx context.Context) (ids, groups []int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.load(ctx, storage.KeyIDHistory).Values(), v.load(ctx, storage.KeyGroupHistory).Values()
}

func (v *Validator) admit(ctx context.Context, key string, value int) bool {
	h := v.load(ctx, key)
	if !h.Admit(value) {
		return false
	}
	if value > 0 {
		v.save(ctx, key, h)
	}
	return true
}

// load treats unreadable history as empty.
func (v *Validator) load(ctx context.Context, key string) *History {
	raw, ok, err := v.kv.Get(ctx, key)
	if err != nil {
		v.log.Warn("failed to read history, treating as empty", "key", key, "error", err)
		return NewHistory(v.capacity)
	}
	if !ok || raw == "" {
		return NewHistory(v.capacity)
	}
	var values []int
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		v.log.Warn("failed to decode history, treating as empty", "key", key, "error", err)
		return NewHistory(v.capacity)
	}
	return NewHistory(v.capacity, values...)
}

func (v *Validator) save(ctx context.Context, key string, h *History) {
	data, err := json.Marshal(h.Values())
	if err != nil {
		v.log.Error("failed to encode history", "key", key, "error", err)
		return
	}
	if err := v.kv.Set(ctx, key, string(data)); err != nil {
		v.log.Warn("failed to write history", "key", key, "error", err)
	}
}
