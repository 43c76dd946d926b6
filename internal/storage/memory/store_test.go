package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	var s Store
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Set(ctx, "a", "1"))
	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	keys, err := s.ListKeys(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Remove(ctx, "a"))
	_, ok, _ = s.Get(ctx, "a")
	require.False(t, ok)
}

func TestStoreConcurrentWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "k", "v")
			_, _, _ = s.Get(ctx, "k")
		}()
	}
	wg.Wait()

	keys, err := s.ListKeys(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)
}
