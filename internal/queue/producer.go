package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientSource yields the current redis client. The connection behind it may
// be swapped by the holder's health loop at any time, so callers fetch it per
// operation instead of caching it.
type ClientSource interface {
	Get() redis.UniversalClient
}

type Producer struct {
	rc     ClientSource
	maxLen int64
}

func NewProducer(rc ClientSource, maxLen int64) *Producer {
	return &Producer{rc: rc, maxLen: maxLen}
}

// Enqueue validates the job, encodes it as JSON and appends it to the stream.
func (p *Producer) Enqueue(ctx context.Context, stream string, job any) error {
	if err := Validate(job); err != nil {
		return fmt.Errorf("invalid %s job: %w", stream, err)
	}

	raw, _ := json.Marshal(job)
	return p.rc.Get().XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Values: map[string]any{
			"payload": string(raw),
			"attempt": 0,
		},
	}).Err()
}
