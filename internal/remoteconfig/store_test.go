package remoteconfig

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDefaults(t *testing.T) {
	snap := New(nil).Snapshot(context.Background())
	require.Equal(t, Defaults(), snap)
	require.Equal(t, 10, snap.NotificationLimit)
	require.Equal(t, 5*time.Minute, snap.RefreshTimeout)
	require.Equal(t, 3, snap.RefreshTriggerLimit)
}

func TestSnapshotReadsProvider(t *testing.T) {
	s := New(ports.StaticConfig{
		KeyKeepAtTop:           true,
		KeyNotificationLimit:   3,
		KeyRefreshTimeoutMs:    1000,
		KeyRefreshTriggerLimit: 1,
		KeyStickyActive:        true,
		KeyUIVersion:           "2",
	})
	snap := s.Snapshot(context.Background())

	require.True(t, snap.KeepAtTop)
	require.Equal(t, 3, snap.NotificationLimit)
	require.Equal(t, time.Second, snap.RefreshTimeout)
	require.Equal(t, 1, snap.RefreshTriggerLimit)
	require.True(t, snap.StickyActive)
	require.Equal(t, "2", snap.UIVersion)
	require.True(t, snap.CommentActive)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	s := New(ports.StaticConfig{
		KeyNotificationLimit:   -4,
		KeyRefreshTimeoutMs:    math.NaN(),
		KeyRefreshTriggerLimit: math.Inf(1),
	})
	ctx := context.Background()

	require.Equal(t, 10, s.NotificationLimit(ctx))
	require.Equal(t, 5*time.Minute, s.RefreshTimeout(ctx))
	require.Equal(t, 3, s.RefreshTriggerLimit(ctx))
}

func TestZeroLimitPreserved(t *testing.T) {
	s := New(ports.StaticConfig{KeyNotificationLimit: 0})
	require.Zero(t, s.NotificationLimit(context.Background()))
}
