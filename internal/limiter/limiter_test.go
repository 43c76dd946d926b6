package limiter

import (
	"context"
	"errors"
	"testing"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/remoteconfig"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const pkg = "io.lokal.app"

func views(n int) []domain.ActiveNotification {
	out := make([]domain.ActiveNotification, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.ActiveNotification{ID: i, PackageName: pkg, Timestamp: int64(i * 1000), RefreshKey: i})
	}
	return out
}

func newLimiter(cfg ports.StaticConfig, platform *ports.MockPlatformNotifier, sink *ports.MockAnalyticsSink) *Limiter {
	return New(platform, remoteconfig.New(cfg), ports.StaticDevice{Package: pkg}, sink, WithLogger(logging.Nop()))
}

func quietSink() *ports.MockAnalyticsSink {
	sink := new(ports.MockAnalyticsSink)
	sink.On("Track", mock.Anything, mock.Anything, mock.Anything).Return()
	sink.On("RecordException", mock.Anything, mock.Anything).Return()
	return sink
}

func TestEffectiveLimit(t *testing.T) {
	require.Equal(t, 0, EffectiveLimit(0))
	require.Equal(t, 1, EffectiveLimit(1))
	require.Equal(t, 1, EffectiveLimit(2))
	require.Equal(t, 9, EffectiveLimit(10))
}

func TestEvictionsOldestFirst(t *testing.T) {
	// Enumeration order is deliberately scrambled.
	in := []domain.ActiveNotification{
		{ID: 3, Timestamp: 300},
		{ID: 1, Timestamp: 100},
		{ID: 4, Timestamp: 400},
		{ID: 2, Timestamp: 200},
	}
	out := Evictions(in, 2)
	require.Len(t, out, 2)
	require.Equal(t, 1, out[0].ID)
	require.Equal(t, 2, out[1].ID)

	require.Nil(t, Evictions(in, 0))
	require.Nil(t, Evictions(in, 4))
}

func TestLimitEvictsOldestBeyondCap(t *testing.T) {
	ctx := context.Background()
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)
	platform.On("ListVisible", mock.Anything, pkg).Return(views(10), nil)
	platform.On("Cancel", mock.Anything, mock.AnythingOfType("int")).Return(nil)
	sink := quietSink()

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 5,
	}, platform, sink)

	removed, err := l.Limit(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, removed)

	// Limit 5 keeps 4 slots: the six oldest go, oldest first.
	var cancelled []int
	for _, call := range platform.Calls {
		if call.Method == "Cancel" {
			cancelled = append(cancelled, call.Arguments.Int(1))
		}
	}
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, cancelled)
	sink.AssertCalled(t, "Track", mock.Anything, "notifications_limited", map[string]any{"removed": 6, "limit": 4})
}

func TestLimitWithinCapIsNoop(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)
	platform.On("ListVisible", mock.Anything, pkg).Return(views(4), nil)
	sink := quietSink()

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 5,
	}, platform, sink)

	var completed []int
	l.SetCallbacks(Callbacks{OnLimitCheckCompleted: func(active, limit int) {
		completed = []int{active, limit}
	}})

	removed, err := l.Limit(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)
	platform.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "Track", mock.Anything, mock.Anything, mock.Anything)
	require.Equal(t, []int{4, 4}, completed)
}

func TestLimitZeroNeverEvicts(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 0,
	}, platform, quietSink())

	removed, err := l.Limit(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)
	platform.AssertNotCalled(t, "ListVisible", mock.Anything, mock.Anything)
	platform.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestLimitDisabledWithoutKeepAtTop(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)

	l := newLimiter(ports.StaticConfig{remoteconfig.KeyNotificationLimit: 2}, platform, quietSink())

	removed, err := l.Limit(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)
	platform.AssertNotCalled(t, "ListVisible", mock.Anything, mock.Anything)
}

func TestLimitWithoutBulkEnumeration(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(false)

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 2,
	}, platform, quietSink())

	removed, err := l.Limit(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed)
	platform.AssertNotCalled(t, "ListVisible", mock.Anything, mock.Anything)
}

func TestLimitIgnoresOtherPackages(t *testing.T) {
	visible := views(3)
	for i := 0; i < 5; i++ {
		visible = append(visible, domain.ActiveNotification{ID: 100 + i, PackageName: "com.other", Timestamp: 1})
	}
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)
	platform.On("ListVisible", mock.Anything, pkg).Return(visible, nil)
	platform.On("Cancel", mock.Anything, 1).Return(nil)

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 3,
	}, platform, quietSink())

	removed, err := l.Limit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	platform.AssertNumberOfCalls(t, "Cancel", 1)
}

func TestLimitContinuesAfterCancelFailure(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)
	platform.On("ListVisible", mock.Anything, pkg).Return(views(5), nil)
	platform.On("Cancel", mock.Anything, 1).Return(errors.New("binder died"))
	platform.On("Cancel", mock.Anything, 2).Return(nil)
	platform.On("Cancel", mock.Anything, 3).Return(nil)
	sink := quietSink()

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 3,
	}, platform, sink)

	var limited int
	var completed []int
	l.SetCallbacks(Callbacks{
		OnNotificationsLimited: func(removed int) { limited = removed },
		OnLimitCheckCompleted:  func(active, limit int) { completed = []int{active, limit} },
	})

	removed, err := l.Limit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	platform.AssertNumberOfCalls(t, "Cancel", 3)
	sink.AssertNumberOfCalls(t, "RecordException", 1)
	require.Equal(t, 2, limited)
	require.Equal(t, []int{3, 2}, completed)
}

func TestLimitReturnsEnumerationError(t *testing.T) {
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)
	platform.On("ListVisible", mock.Anything, pkg).Return(nil, errors.New("security exception"))
	sink := quietSink()

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 3,
	}, platform, sink)

	_, err := l.Limit(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "security exception")
	sink.AssertNumberOfCalls(t, "RecordException", 1)
}

func TestLimitStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	platform := new(ports.MockPlatformNotifier)
	platform.On("IsBulkEnumerationSupported").Return(true)
	platform.On("ListVisible", mock.Anything, pkg).Return(views(6), nil)

	l := newLimiter(ports.StaticConfig{
		remoteconfig.KeyKeepAtTop:         true,
		remoteconfig.KeyNotificationLimit: 2,
	}, platform, quietSink())

	removed, err := l.Limit(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, removed)
	platform.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}
