// Package analytics provides an AnalyticsSink that writes events to the structured log.
package analytics

import (
	"context"
	"sort"

	"github.com/lokalapp/notiflow/internal/logging"
)

// Event names emitted by the notification core.
const (
	EventNotificationBuilt    = "notification_built"
	EventNotificationsLimited = "notifications_limited"
	EventRefreshCompleted     = "notification_refresh_completed"
)

// LogSink records analytics as log entries.
type LogSink struct {
	log logging.Logger
}

// NewLogSink returns a sink writing to l, or to the global logger when l is nil.
func NewLogSink(l logging.Logger) *LogSink {
	if l == nil {
		l = logging.GetGlobal()
	}
	return &LogSink{log: l.With("component", "analytics")}
}

// Track logs event with its properties in key order.
func (s *LogSink) Track(_ context.Context, event string, properties map[string]any) {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2+2*len(keys))
	args = append(args, "event", event)
	for _, k := range keys {
		args = append(args, k, properties[k])
	}
	s.log.Info("analytics event", args...)
}

// RecordException logs err at error level.
func (s *LogSink) RecordException(_ context.Context, err error) {
	if err == nil {
		return
	}
	s.log.Error("exception recorded", "error", err.Error())
}
