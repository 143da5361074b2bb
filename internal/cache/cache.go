package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientSource yields the current redis client; the holder behind it may
// swap connections when its health loop reconnects.
type ClientSource interface {
	Get() redis.UniversalClient
}

// Cache is a namespaced key-value wrapper over redis, used for short-lived
// state such as access tokens.
type Cache struct {
	rc        ClientSource
	namespace string
}

func NewCache(namespace string, rc ClientSource) *Cache {
	return &Cache{namespace: namespace, rc: rc}
}

// Get value from Redis
func (c *Cache) Get(ctx context.Context, key string) (interface{}, error) {
	cmd := c.rc.Get().Get(ctx, c.namespace+":"+key)
	return cmd.Val(), cmd.Err()
}

// Store data to Redis with a ttl in seconds
func (c *Cache) Store(ctx context.Context, key string, ttl int, value interface{}) error {
	dur, err := time.ParseDuration(strconv.Itoa(ttl) + "s")
	if err != nil {
		return err
	}
	return c.rc.Get().Set(ctx, c.namespace+":"+key, value, dur).Err()
}

// Delete key from Redis
func (c *Cache) Remove(ctx context.Context, key string) error {
	return c.rc.Get().Del(ctx, c.namespace+":"+key).Err()
}

// Flush removes every key in the namespace.
func (c *Cache) Flush(ctx context.Context) error {
	cl := c.rc.Get()
	keys := cl.Keys(ctx, c.namespace+":*")

	pl := cl.Pipeline()
	for _, key := range keys.Val() {
		pl.Del(ctx, key)
	}
	_, err := pl.Exec(ctx)
	return err
}
