package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
)

func TestWatchURL(t *testing.T) {
	got, err := watchURL("ws://localhost:8080/api/ws", "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/ws?session_id=s1&thread_id=t1", got)

	got, err = watchURL("ws://localhost:8080/api/ws", "s 1", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/ws?session_id=s+1", got)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["warm"])
	assert.True(t, names["watch"])

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestOpenCacheRejectsUnknownBackend(t *testing.T) {
	_, err := openCache(t.Context(), configWithBackend("memcached"))
	require.Error(t, err)
}

func TestOpenCacheSQLite(t *testing.T) {
	cfg := configWithBackend("sqlite")
	cfg.SQLitePath = ":memory:"
	c, err := openCache(t.Context(), cfg)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(t.Context()))
}

func configWithBackend(backend string) config.CacheConfig {
	return config.CacheConfig{Backend: backend}
}
