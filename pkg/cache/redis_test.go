package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.connectwisedev.com/catalog-insights/pkg/query"
)

var _ query.Cache = (*RedisClient)(nil)

func TestNewRedisClient_RequiresAddr(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	assert.Error(t, err)
}

func TestNewRedisClient_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRedisClient_ErrorsWrapped(t *testing.T) {
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond}))
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "insights:x")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insights:x")

	err = c.Set(context.Background(), "insights:x", []byte("{}"), time.Minute)
	require.Error(t, err)
}
