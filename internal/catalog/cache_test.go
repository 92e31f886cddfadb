package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Names []string `json:"names"`
	}
	var out payload
	hit, err := c.GetJSON(ctx, "catalog:test", &out)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "catalog:test", payload{Names: []string{"Paracetamol"}}))
	hit, err = c.GetJSON(ctx, "catalog:test", &out)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []string{"Paracetamol"}, out.Names)
}

func TestCacheInvalidateRotatesListKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	params := ListParams{Query: "para", Page: 1, Limit: 20}

	before := c.ListKey(ctx, params)
	require.NotEmpty(t, before)
	require.NoError(t, c.Invalidate(ctx))
	after := c.ListKey(ctx, params)
	require.NotEmpty(t, after)
	require.NotEqual(t, before, after)
}

func TestNilCacheIsInert(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	hit, err := c.GetJSON(ctx, "x", nil)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.SetJSON(ctx, "x", 1))
	require.NoError(t, c.Invalidate(ctx))
	require.Empty(t, c.ListKey(ctx, ListParams{}))
}
