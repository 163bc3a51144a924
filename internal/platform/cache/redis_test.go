package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := New(context.Background(), Options{Addr: addr, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	mr.Close()
	_, err = New(context.Background(), Options{Addr: addr})
	require.ErrorContains(t, err, "platform/cache: ping")
}
