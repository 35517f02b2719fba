package main

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheadapter "go-chatty-client/internal/infrastructure/cache/adapter"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "base-url", "user", "peer", "peer-name", "timeout", "realtime-url", "redis-url", "serialize-sends", "no-bell", "log-level", "log-file"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRootCommandRejectsMissingUsers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHAT_USER_ID", "")
	t.Setenv("CHAT_PEER_ID", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--user", "13"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer id")
}

func TestConversationCacheFallsBackToMemory(t *testing.T) {
	for _, url := range []string{"", "http://not-redis"} {
		cache := conversationCache(context.Background(), url, zerolog.Nop())
		assert.IsType(t, &cacheadapter.MemoryCache{}, cache, url)
		require.NoError(t, cache.Close())
	}
}
