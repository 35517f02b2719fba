package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chatty-client/internal/infrastructure/cache/port"
)

func TestMemoryCacheGetSetDel(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, port.ErrMiss)

	require.NoError(t, c.Set(ctx, "k", "7", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	n, err := c.Del(ctx, "k", "missing")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, port.ErrMiss)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "7", time.Minute))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, port.ErrMiss)
}

func TestNewRedisAdapterRequiresURL(t *testing.T) {
	_, err := NewRedisAdapter(context.Background(), "  ")
	require.Error(t, err)

	_, err = NewRedisAdapter(context.Background(), "http://not-redis")
	require.Error(t, err)
}
