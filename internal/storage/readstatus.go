package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lokalapp/notiflow/internal/ports"
)

// Key prefixes of per-group entries.
const (
	ReadStatusPrefix = "notification_read_status_"
	GroupedIDsPrefix = "grouped_notification_ids_"
)

type readState struct {
	IsRead    bool  `json:"isRead"`
	Timestamp int64 `json:"timestamp"`
}

// ReadStatus tracks which notification groups the user has read. Each group is stored
// under its own ReadStatusPrefix key, alongside the comma separated IDs posted to it.
type ReadStatus struct {
	kv ports.KeyValueStore
}

// NewReadStatus returns a read status repository backed by kv.
func NewReadStatus(kv ports.KeyValueStore) *ReadStatus {
	return &ReadStatus{kv: kv}
}

// Mark records whether the group identified by readKey has been read.
func (s *ReadStatus) Mark(ctx context.Context, readKey string, read bool, timestampMillis int64) error {
	data, err := json.Marshal(readState{IsRead: read, Timestamp: timestampMillis})
	if err != nil {
		return fmt.Errorf("read status: encode: %w", err)
	}
	if err := s.kv.Set(ctx, ReadStatusPrefix+readKey, string(data)); err != nil {
		return fmt.Errorf("read status: mark %s: %w", readKey, err)
	}
	return nil
}

// IsRead reports whether readKey was marked read. Unknown keys are unread.
func (s *ReadStatus) IsRead(ctx context.Context, readKey string) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, ReadStatusPrefix+readKey)
	if err != nil {
		return false, fmt.Errorf("read status: get %s: %w", readKey, err)
	}
	if !ok {
		return false, nil
	}
	var st readState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return false, fmt.Errorf("read status: get %s: %w: %v", readKey, ErrCorruptValue, err)
	}
	return st.IsRead, nil
}

// AddGroupedID appends id to the list of notifications posted to group.
func (s *ReadStatus) AddGroupedID(ctx context.Context, group, id int) error {
	ids, err := s.GroupedIDs(ctx, group)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	parts := make([]string, len(ids))
	for i, v := range ids {
		parts[i] = strconv.Itoa(v)
	}
	if err := s.kv.Set(ctx, groupedKey(group), strings.Join(parts, ",")); err != nil {
		return fmt.Errorf("read status: group %d: %w", group, err)
	}
	return nil
}

// GroupedIDs returns the notification IDs posted to group, oldest first.
// Entries that are not numbers are skipped.
func (s *ReadStatus) GroupedIDs(ctx context.Context, group int) ([]int, error) {
	raw, ok, err := s.kv.Get(ctx, groupedKey(group))
	if err != nil {
		return nil, fmt.Errorf("read status: group %d: %w", group, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Keys lists the read keys that have a stored status, sorted.
func (s *ReadStatus) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.ListKeys(ctx, ReadStatusPrefix)
	if err != nil {
		return nil, fmt.Errorf("read status: list: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, ReadStatusPrefix))
	}
	sort.Strings(out)
	return out, nil
}

// Prune removes read statuses and group lists whose key is not in live.
// It returns how many keys were removed.
func (s *ReadStatus) Prune(ctx context.Context, live map[string]bool) (int, error) {
	removed := 0
	for _, prefix := range []string{ReadStatusPrefix, GroupedIDsPrefix} {
		keys, err := s.kv.ListKeys(ctx, prefix)
		if err != nil {
			return removed, fmt.Errorf("read status: list %s: %w", prefix, err)
		}
		for _, k := range keys {
			if live[strings.TrimPrefix(k, prefix)] {
				continue
			}
			if err := s.kv.Remove(ctx, k); err != nil {
				return removed, fmt.Errorf("read status: remove %s: %w", k, err)
			}
			removed++
		}
	}
	return removed, nil
}

func groupedKey(group int) string {
	return GroupedIDsPrefix + strconv.Itoa(group)
}
