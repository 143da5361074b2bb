// Package redisholder owns the live redis client. The queue layer never
// holds a client directly; it goes through the holder, which swaps in a
// fresh connection when the health loop detects a dead one.
package redisholder

import (
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

type Holder struct {
	client atomic.Value // redis.UniversalClient
}

func NewHolder(initial redis.UniversalClient) *Holder {
	h := &Holder{}
	h.client.Store(initial)
	return h
}

// Get returns the current client. Callers must not cache the result across
// operations; a reconnect invalidates old clients.
func (h *Holder) Get() redis.UniversalClient {
	c, _ := h.client.Load().(redis.UniversalClient)
	return c
}

func (h *Holder) replace(next redis.UniversalClient) (old redis.UniversalClient) {
	old, _ = h.client.Load().(redis.UniversalClient)
	h.client.Store(next)
	return old
}

func (h *Holder) Close() error {
	if c := h.Get(); c != nil {
		return c.Close()
	}
	return nil
}
