package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRemoteCache struct {
	mutex  sync.Mutex
	values map[string][]byte
}

func (c *memoryRemoteCache) SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryRemoteCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	value, ok := c.values[key]
	if !ok {
		return nil, CacheMissError
	}
	return value, nil
}

type snapshot struct {
	ContestID string   `json:"contestId"`
	Wallets   []string `json:"wallets"`
}

func TestTieredCacheLocal(t *testing.T) {
	ctx := context.Background()
	cache := NewTieredCacheWithRemote(1, nil)

	err := cache.Get(ctx, "missing", &snapshot{})
	assert.ErrorIs(t, err, CacheMissError)

	require.NoError(t, cache.Set(ctx, "lb:1", &snapshot{ContestID: "c-1", Wallets: []string{"0xaa"}}, 0))

	value := &snapshot{}
	require.NoError(t, cache.Get(ctx, "lb:1", value))
	assert.Equal(t, "c-1", value.ContestID)
	assert.Equal(t, []string{"0xaa"}, value.Wallets)
}

func TestTieredCacheRemoteFill(t *testing.T) {
	ctx := context.Background()
	remote := &memoryRemoteCache{values: map[string][]byte{}}

	writer := NewTieredCacheWithRemote(1, remote)
	require.NoError(t, writer.Set(ctx, "lb:2", &snapshot{ContestID: "c-2"}, time.Hour))

	// a second instance only shares the remote tier
	reader := NewTieredCacheWithRemote(1, remote)
	value := &snapshot{}
	require.NoError(t, reader.Get(ctx, "lb:2", value))
	assert.Equal(t, "c-2", value.ContestID)

	// the local tier was filled from the remote value
	delete(remote.values, "lb:2")
	value = &snapshot{}
	require.NoError(t, reader.Get(ctx, "lb:2", value))
	assert.Equal(t, "c-2", value.ContestID)

	err := reader.Get(ctx, "lb:3", &snapshot{})
	assert.ErrorIs(t, err, CacheMissError)
}
