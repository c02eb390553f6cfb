package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishing-well/internal/config"
)

func TestNew_DisabledWithoutAddr(t *testing.T) {
	c, err := New(context.Background(), &config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *FeedCache
	ctx := context.Background()

	var dest []string
	assert.False(t, c.Get(ctx, Key("hot", 60, 0), &dest))
	c.Set(ctx, Key("hot", 60, 0), []string{"x"})
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "feed:hot:60:0", Key("hot", 60, 0))
	assert.Equal(t, "feed:rising:20:40", Key("rising", 20, 40))
}
