package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "state", "notiflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestSetGetRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "last_refresh_time")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "last_refresh_time", "1000"))
	require.NoError(t, s.Set(ctx, "last_refresh_time", "2000"))
	v, ok, err := s.Get(ctx, "last_refresh_time")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2000", v)

	require.NoError(t, s.Remove(ctx, "last_refresh_time"))
	require.NoError(t, s.Remove(ctx, "last_refresh_time"))
	_, ok, err = s.Get(ctx, "last_refresh_time")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListKeysByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"prev_notifs_list", "prev_notifs_sample_groups_list", "notifications", "prev%"} {
		require.NoError(t, s.Set(ctx, k, "[]"))
	}

	keys, err := s.ListKeys(ctx, "prev_")
	require.NoError(t, err)
	require.Equal(t, []string{"prev_notifs_list", "prev_notifs_sample_groups_list"}, keys)

	all, err := s.ListKeys(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestEmptyKeyRejected(t *testing.T) {
	s := newTestStore(t)

	require.ErrorIs(t, s.Set(context.Background(), " ", "v"), ErrEmptyKey)
	_, _, err := s.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiflow.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "notifications", `[{"notificationId":1}]`))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err := reopened.Get(context.Background(), "notifications")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"notificationId":1}]`, v)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
