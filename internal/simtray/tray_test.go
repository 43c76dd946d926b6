package simtray

import (
	"context"
	"testing"
	"time"

	"github.com/lokalapp/notiflow/internal/domain"
	"github.com/lokalapp/notiflow/internal/logging"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

func newTray(kv ports.KeyValueStore, version int) *Tray {
	device := ports.StaticDevice{Package: "io.lokal.app", Version: version}
	return New(kv, device, WithLogger(logging.Nop()), WithClock(func() time.Time { return time.UnixMilli(42) }))
}

func TestCreateListCancel(t *testing.T) {
	ctx := context.Background()
	tray := newTray(memory.New(), 33)

	for _, id := range []int{1, 2} {
		c := domain.Content{ID: id, Title: "t", Image: []byte("abc")}.Stamp(int64(id) * 10)
		got, err := tray.Create(ctx, c)
		require.NoError(t, err)
		require.Equal(t, id, got)
	}

	views, err := tray.ListVisible(ctx, "io.lokal.app")
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, int64(20), views[1].Timestamp)
	require.Equal(t, 2, views[1].RefreshKey)

	entries, err := tray.Entries(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, entries[0].ImageBytes)
	require.Equal(t, int64(42), entries[0].PostedAt)

	require.NoError(t, tray.Cancel(ctx, 1))
	require.NoError(t, tray.Cancel(ctx, 99))
	views, err = tray.ListVisible(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 1)

	others, err := tray.ListVisible(ctx, "com.other")
	require.NoError(t, err)
	require.Empty(t, others)
}

func TestCreateReplacesSameID(t *testing.T) {
	ctx := context.Background()
	tray := newTray(memory.New(), 33)

	_, err := tray.Create(ctx, domain.Content{ID: 1, Title: "old"})
	require.NoError(t, err)
	_, err = tray.Create(ctx, domain.Content{ID: 2, Title: "other"})
	require.NoError(t, err)
	_, err = tray.Create(ctx, domain.Content{ID: 1, Title: "new"})
	require.NoError(t, err)

	entries, err := tray.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, entries[0].ID)
	require.Equal(t, "new", entries[1].Title)

	_, err = tray.Create(ctx, domain.Content{Title: "no id"})
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestRepostUpdatesTimestamp(t *testing.T) {
	ctx := context.Background()
	tray := newTray(memory.New(), 33)
	_, err := tray.Create(ctx, domain.Content{ID: 5, Title: "t"}.Stamp(100))
	require.NoError(t, err)

	views, err := tray.ListVisible(ctx, "io.lokal.app")
	require.NoError(t, err)
	view := views[0]
	view.Content = view.Content.WithExtra(domain.ExtraTimestamp, "900")
	require.NoError(t, tray.Repost(ctx, view))

	views, err = tray.ListVisible(ctx, "io.lokal.app")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, int64(900), views[0].Timestamp)
}

func TestStatePersistsInStore(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	_, err := newTray(kv, 33).Create(ctx, domain.Content{ID: 8, Title: "t"})
	require.NoError(t, err)

	views, err := newTray(kv, 33).ListVisible(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 1)

	require.NoError(t, newTray(kv, 33).Clear(ctx))
	views, err = newTray(kv, 33).ListVisible(ctx, "")
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestBulkEnumerationByVersion(t *testing.T) {
	require.False(t, newTray(memory.New(), 22).IsBulkEnumerationSupported())
	require.True(t, newTray(memory.New(), 23).IsBulkEnumerationSupported())

	off := New(memory.New(), ports.StaticDevice{Version: 33}, WithBulkEnumeration(false))
	require.False(t, off.IsBulkEnumerationSupported())
}

func TestCorruptStateIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, KeyTray, "{broken"))

	views, err := newTray(kv, 33).ListVisible(ctx, "")
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestEnsureChannel(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, newTray(kv, 33).EnsureChannel(ctx))
	_, ok, err := kv.Get(ctx, KeyChannels)
	require.NoError(t, err)
	require.True(t, ok)
}
