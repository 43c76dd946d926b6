package ports

import (
	"context"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockPlatformNotifier is a testify mock of PlatformNotifier.
//
// Example usage:
//
//	platform := new(MockPlatformNotifier)
//	platform.On("IsBulkEnumerationSupported").Return(true)
//	platform.On("Cancel", mock.Anything, 3).Return(nil)
//	...
//	platform.AssertNumberOfCalls(t, "Cancel", 1)
type MockPlatformNotifier struct {
	mock.Mock
}

func (m *MockPlatformNotifier) Create(ctx context.Context, content domain.Content) (int, error) {
	args := m.Called(ctx, content)
	return args.Int(0), args.Error(1)
}

func (m *MockPlatformNotifier) Cancel(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPlatformNotifier) ListVisible(ctx context.Context, packageFilter string) ([]domain.ActiveNotification, error) {
	args := m.Called(ctx, packageFilter)
	views, _ := args.Get(0).([]domain.ActiveNotification)
	return views, args.Error(1)
}

func (m *MockPlatformNotifier) IsBulkEnumerationSupported() bool {
	return m.Called().Bool(0)
}

func (m *MockPlatformNotifier) Repost(ctx context.Context, n domain.ActiveNotification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockPlatformNotifier) EnsureChannel(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockImageFetcher is a testify mock of ImageFetcher.
type MockImageFetcher struct {
	mock.Mock
}

func (m *MockImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockImageFetcher) FetchBlurred(ctx context.Context, url string, radius, sampling int) ([]byte, error) {
	args := m.Called(ctx, url, radius, sampling)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// MockAnalyticsSink is a testify mock of AnalyticsSink.
type MockAnalyticsSink struct {
	mock.Mock
}

func (m *MockAnalyticsSink) Track(ctx context.Context, event string, properties map[string]any) {
	m.Called(ctx, event, properties)
}

func (m *MockAnalyticsSink) RecordException(ctx context.Context, err error) {
	m.Called(ctx, err)
}

// MockDeviceClassifier is a testify mock of DeviceClassifier.
type MockDeviceClassifier struct {
	mock.Mock
}

func (m *MockDeviceClassifier) IsLowFidelityRefreshDevice() bool {
	return m.Called().Bool(0)
}

func (m *MockDeviceClassifier) PackageName() string {
	return m.Called().String(0)
}

func (m *MockDeviceClassifier) PlatformVersion() int {
	return m.Called().Int(0)
}

// StaticConfig is a ConfigProvider backed by a map, for tests and embedding.
// Missing keys fall back to the caller's default.
type StaticConfig map[string]any

func (c StaticConfig) GetBool(_ context.Context, key string, defaultValue bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return defaultValue
}

func (c StaticConfig) GetNumber(_ context.Context, key string, defaultValue float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultValue
}

func (c StaticConfig) GetString(_ context.Context, key, defaultValue string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return defaultValue
}

// StaticDevice is a fixed DeviceClassifier.
type StaticDevice struct {
	LowFidelity bool
	Package     string
	Version     int
}

func (d StaticDevice) IsLowFidelityRefreshDevice() bool { return d.LowFidelity }
func (d StaticDevice) PackageName() string              { return d.Package }
func (d StaticDevice) PlatformVersion() int             { return d.Version }

// MockKeyValueStore is a testify mock of KeyValueStore.
type MockKeyValueStore struct {
	mock.Mock
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockKeyValueStore) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockKeyValueStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}
