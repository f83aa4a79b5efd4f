package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) (*SQLiteCache, *time.Time) {
	t.Helper()
	c, err := NewSQLiteCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	now := time.Unix(1_700_000_000, 0)
	c.SetClock(func() time.Time { return now })
	return c, &now
}

func TestSQLiteCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestSQLiteCache(t)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 0))
	require.NoError(t, c.Set(ctx, "k", []byte("v2"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestSQLiteCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, now := newTestSQLiteCache(t)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Second))

	*now = now.Add(9 * time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	ok, err := c.Expire(ctx, "k", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	*now = now.Add(9 * time.Second)
	_, err = c.Get(ctx, "k")
	require.NoError(t, err, "expire should have extended the ttl")

	*now = now.Add(2 * time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = c.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "expired keys cannot be revived")

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSQLiteCacheKeysAndDelete(t *testing.T) {
	ctx := context.Background()
	c, now := newTestSQLiteCache(t)

	for _, k := range []string{"messages:s1-a", "messages:s1-b", "messages:s10-a", "sessions:s1"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), 0))
	}
	require.NoError(t, c.Set(ctx, "messages:s1-old", []byte("x"), time.Second))
	*now = now.Add(2 * time.Second)

	keys, err := c.Keys(ctx, "messages:s1-")
	require.NoError(t, err)
	assert.Equal(t, []string{"messages:s1-a", "messages:s1-b"}, keys)

	require.NoError(t, c.Delete(ctx, "messages:s1-a", "messages:s1-b", "absent"))
	keys, err = c.Keys(ctx, "messages:")
	require.NoError(t, err)
	assert.Equal(t, []string{"messages:s10-a"}, keys)
}

func TestSQLiteCacheKeysTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestSQLiteCache(t)

	require.NoError(t, c.Set(ctx, "a%b", []byte("x"), 0))
	require.NoError(t, c.Set(ctx, "axb", []byte("x"), 0))

	keys, err := c.Keys(ctx, "a%")
	require.NoError(t, err)
	assert.Equal(t, []string{"a%b"}, keys)
}

func TestSQLiteCachePing(t *testing.T) {
	c, _ := newTestSQLiteCache(t)
	assert.True(t, IsAlive(context.Background(), c))

	require.NoError(t, c.Close())
	assert.False(t, IsAlive(context.Background(), c))
}
