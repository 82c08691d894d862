package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"
)

// TieredCache combines a local in-process cache with an optional remote cache.
// Values are stored json encoded so both tiers share one representation.
type TieredCache struct {
	localGoCache *freecache.Cache
	remoteCache  RemoteCache
}

type cachedValue struct {
	Version uint64 `json:"i"`
	Timeout uint64 `json:"t"`
	Value   any    `json:"v"`
}

var CacheMissError error = errors.New("cache miss")

type RemoteCache interface {
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
}

func NewTieredCache(cacheSizeMB int, redisAddress string, redisPrefix string) (*TieredCache, error) {
	var remoteCache RemoteCache
	if redisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		var err error
		remoteCache, err = InitRedisCache(ctx, redisAddress, redisPrefix)
		if err != nil {
			logrus.WithError(err).Errorf("error initializing remote redis cache. address: %v", redisAddress)
			return nil, err
		}
	}

	return NewTieredCacheWithRemote(cacheSizeMB, remoteCache), nil
}

// NewTieredCacheWithRemote builds a cache on top of an already connected
// remote tier. remoteCache may be nil.
func NewTieredCacheWithRemote(cacheSizeMB int, remoteCache RemoteCache) *TieredCache {
	if cacheSizeMB <= 0 {
		cacheSizeMB = 1
	}
	return &TieredCache{
		remoteCache:  remoteCache,
		localGoCache: freecache.NewCache(cacheSizeMB * 1024 * 1024),
	}
}

func (cache *TieredCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	cacheValue := cachedValue{
		Version: 1,
		Value:   value,
	}
	if expiration > 0 {
		cacheValue.Timeout = uint64(time.Now().Add(expiration).Unix())
	}

	valueMarshal, err := json.Marshal(cacheValue)
	if err != nil {
		return err
	}
	err = cache.localGoCache.Set([]byte(key), valueMarshal, int(expiration.Seconds()))
	if err != nil {
		return err
	}
	if cache.remoteCache != nil {
		return cache.remoteCache.SetBytes(ctx, key, valueMarshal, expiration)
	}
	return nil
}

// Get decodes the cached value for key into returnValue. CacheMissError is
// returned when neither tier holds the key.
func (cache *TieredCache) Get(ctx context.Context, key string, returnValue any) error {
	cacheValue := &cachedValue{
		Value: returnValue,
	}

	// try to retrieve the key from the local cache
	wanted, err := cache.localGoCache.Get([]byte(key))
	if err == nil {
		return json.Unmarshal(wanted, cacheValue)
	}

	if cache.remoteCache == nil {
		return CacheMissError
	}

	// retrieve the key from the remote cache
	remoteValue, err := cache.remoteCache.GetBytes(ctx, key)
	if err != nil {
		return err
	}

	err = json.Unmarshal(remoteValue, cacheValue)
	if err != nil {
		return err
	}

	if cacheValue.Timeout == 0 || cacheValue.Timeout > uint64(time.Now().Add(2*time.Second).Unix()) {
		var timeout uint64
		if cacheValue.Timeout != 0 {
			timeout = cacheValue.Timeout - uint64(time.Now().Unix())
		}
		cache.localGoCache.Set([]byte(key), remoteValue, int(timeout))
	}
	return nil
}
