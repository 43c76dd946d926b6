// Package ports defines the capability interfaces the notification core consumes.
// Platform bridges, storage backends and telemetry providers implement them.
package ports

import (
	"context"

	"github.com/lokalapp/notiflow/internal/domain"
)

// PlatformNotifier posts and enumerates notifications on the host platform.
type PlatformNotifier interface {
	// Create posts content and returns the platform handle (the notification ID).
	Create(ctx context.Context, content domain.Content) (int, error)
	// Cancel removes a visible notification. Unknown IDs are not an error.
	Cancel(ctx context.Context, id int) error
	// ListVisible returns the visible notifications posted by packageFilter.
	ListVisible(ctx context.Context, packageFilter string) ([]domain.ActiveNotification, error)
	// IsBulkEnumerationSupported reports whether ListVisible is available.
	IsBulkEnumerationSupported() bool
	// Repost re-posts a visible notification with its content unchanged apart from extras.
	Repost(ctx context.Context, n domain.ActiveNotification) error
	// EnsureChannel performs one-time channel setup.
	EnsureChannel(ctx context.Context) error
}

// ImageFetcher loads notification imagery as encoded bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchBlurred(ctx context.Context, url string, radius, sampling int) ([]byte, error)
}

// ConfigProvider reads remote configuration values. Implementations return
// defaultValue when a key is missing or cannot be fetched.
type ConfigProvider interface {
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	GetNumber(ctx context.Context, key string, defaultValue float64) float64
	GetString(ctx context.Context, key, defaultValue string) string
}

// KeyValueStore is durable string storage.
type KeyValueStore interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// AnalyticsSink receives product events and exceptions.
type AnalyticsSink interface {
	Track(ctx context.Context, event string, properties map[string]any)
	RecordException(ctx context.Context, err error)
}

// DeviceClassifier describes the device the core runs on.
type DeviceClassifier interface {
	IsLowFidelityRefreshDevice() bool
	PackageName() string
	PlatformVersion() int
}
