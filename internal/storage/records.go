// Package storage provides backend selection and the repositories persisted
// on top of a key/value store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/ports"
)

// Persisted keys.
const (
	KeyNotifications = "notifications"
	KeyIDHistory     = "prev_notifs_list"
	KeyGroupHistory  = "prev_notifs_sample_groups_list"
	KeyLastRefresh   = "last_refresh_time"
)

// ErrCorruptValue indicates a stored value that cannot be decoded.
var ErrCorruptValue = errors.New("corrupt stored value")

// Records persists notification records as a JSON array under KeyNotifications.
// Each read-modify-write runs under a mutex.
type Records struct {
	mu sync.Mutex
	kv ports.KeyValueStore
}

// NewRecords returns a record repository backed by kv.
func NewRecords(kv ports.KeyValueStore) *Records {
	return &Records{kv: kv}
}

// List returns all records in stored order.
func (r *Records) List(ctx context.Context) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Get returns the record for id, or domain.ErrRecordNotFound.
func (r *Records) Get(ctx context.Context, id int) (domain.Record, error) {
	records, err := r.List(ctx)
	if err != nil {
		return domain.Record{}, err
	}
	for _, rec := range records {
		if rec.NotificationID == id {
			return rec, nil
		}
	}
	return domain.Record{}, fmt.Errorf("records: get %d: %w", id, domain.ErrRecordNotFound)
}

// Since returns the records touched at or after cutoffMillis.
func (r *Records) Since(ctx context.Context, cutoffMillis int64) ([]domain.Record, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.RecordsSince(records, cutoffMillis), nil
}

// Upsert replaces the record with the same NotificationID, or appends rec.
func (r *Records) Upsert(ctx context.Context, rec domain.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("records: upsert: %w", err)
	}
	return r.mutate(ctx, func(records []domain.Record) ([]domain.Record, error) {
		for i := range records {
			if records[i].NotificationID == rec.NotificationID {
				records[i] = rec
				return records, nil
			}
		}
		return append(records, rec), nil
	})
}

// Delete removes the record for id. Returns domain.ErrRecordNotFound when absent.
func (r *Records) Delete(ctx context.Context, id int) error {
	return r.mutate(ctx, func(records []domain.Record) ([]domain.Record, error) {
		out := records[:0]
		found := false
		for _, rec := range records {
			if rec.NotificationID == id {
				found = true
				continue
			}
			out = append(out, rec)
		}
		if !found {
			return nil, fmt.Errorf("records: delete %d: %w", id, domain.ErrRecordNotFound)
		}
		return out, nil
	})
}

// Touch sets the timestamp of the record for id.
func (r *Records) Touch(ctx context.Context, id int, timestampMillis int64) error {
	return r.mutate(ctx, func(records []domain.Record) ([]domain.Record, error) {
		for i := range records {
			if records[i].NotificationID == id {
				records[i].Timestamp = timestampMillis
				return records, nil
			}
		}
		return nil, fmt.Errorf("records: touch %d: %w", id, domain.ErrRecordNotFound)
	})
}

// PruneBefore deletes records older than cutoffMillis and returns how many were removed.
func (r *Records) PruneBefore(ctx context.Context, cutoffMillis int64) (int, error) {
	removed := 0
	err := r.mutate(ctx, func(records []domain.Record) ([]domain.Record, error) {
		kept := domain.RecordsSince(records, cutoffMillis)
		removed = len(records) - len(kept)
		if removed == 0 {
			return nil, nil
		}
		return kept, nil
	})
	return removed, err
}

// mutate loads, applies fn and saves. fn returning a nil slice and nil error skips the write.
func (r *Records) mutate(ctx context.Context, fn func([]domain.Record) ([]domain.Record, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	return r.save(ctx, updated)
}

func (r *Records) load(ctx context.Context) ([]domain.Record, error) {
	raw, ok, err := r.kv.Get(ctx, KeyNotifications)
	if err != nil {
		return nil, fmt.Errorf("records: load: %w", err)
	}
	records := []domain.Record{}
	if !ok || raw == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("records: load: %w: %v", ErrCorruptValue, err)
	}
	return records, nil
}

func (r *Records) save(ctx context.Context, records []domain.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("records: encode: %w", err)
	}
	if err := r.kv.Set(ctx, KeyNotifications, string(data)); err != nil {
		return fmt.Errorf("records: save: %w", err)
	}
	return nil
}
