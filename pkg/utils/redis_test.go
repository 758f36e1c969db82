package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_RequiresAddr(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{})
	assert.Error(t, err)
}

func TestNewRedisClient_AppliesDefaults(t *testing.T) {
	rdb, err := NewRedisClient(RedisConfig{Addr: "localhost:6379", DB: 2})
	require.NoError(t, err)
	defer rdb.Close()

	opts := rdb.Options()
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
}
