package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/imrulkayessifat/photo-optima-backend/internal/config"
)

// HandlerFunc processes one raw job payload. A nil return acknowledges the
// message for good; an error requeues it with a bumped attempt counter until
// MaxAttempts, after which it lands on the dead-letter stream.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Dispatcher owns one consumer goroutine per registered stream. Within a
// stream messages are processed strictly sequentially; a stalled external
// dependency blocks only that stream's throughput.
type Dispatcher struct {
	rc       ClientSource
	cfg      config.QueueConfig
	handlers map[string]HandlerFunc
	order    []string
}

func NewDispatcher(rc ClientSource, cfg config.QueueConfig) *Dispatcher {
	return &Dispatcher{
		rc:       rc,
		cfg:      cfg,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds the single handler for a stream. Registering a stream twice
// is a programming error.
func (d *Dispatcher) Register(stream string, h HandlerFunc) {
	if _, dup := d.handlers[stream]; dup {
		panic(fmt.Sprintf("queue: handler already registered for stream %q", stream))
	}
	d.handlers[stream] = h
	d.order = append(d.order, stream)
}

func (d *Dispatcher) Start(ctx context.Context) error {
	for _, stream := range d.order {
		if err := d.ensureGroup(ctx, stream); err != nil {
			return fmt.Errorf("ensure group for %s: %w", stream, err)
		}
		d.autoClaim(ctx, stream)
	}

	log.Printf("[queue] starting dispatcher group=%s streams=%d", d.cfg.Group, len(d.order))

	errCh := make(chan error, len(d.order))
	for _, stream := range d.order {
		stream := stream
		go func() {
			log.Printf("[queue] consumer for %s started", stream)
			errCh <- d.loop(ctx, stream, d.handlers[stream])
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf("[queue] context canceled, stopping consumers")
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("consumer loop exited: %w", err)
		}
		return nil
	}
}

func (d *Dispatcher) ensureGroup(ctx context.Context, stream string) error {
	// MkStream lets the group be created before any message exists.
	err := d.rc.Get().XGroupCreateMkStream(ctx, stream, d.cfg.Group, "0").Err()
	// BUSYGROUP just means the group already exists.
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// autoClaim adopts messages delivered to a consumer that died before XACK so
// a restart does not strand them in the pending entries list forever.
func (d *Dispatcher) autoClaim(ctx context.Context, stream string) {
	next := "0-0"

	minIdle := 30 * time.Second
	if d.cfg.BlockTimeout > 0 {
		if t := d.cfg.BlockTimeout * 6; t > minIdle {
			minIdle = t
		}
	}

	for {
		msgs, start, err := d.rc.Get().XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    d.cfg.Group,
			Consumer: d.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		next = start
	}
}

func (d *Dispatcher) loop(ctx context.Context, stream string, h HandlerFunc) error {
	for {
		// Count:1 keeps per-stream ordering strict: the next message is not
		// read until the current one has been handled and acknowledged.
		streams, err := d.rc.Get().XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    d.cfg.Group,
			Consumer: d.cfg.Consumer,
			Streams:  []string{stream, ">"},
			Count:    1,
			Block:    d.cfg.BlockTimeout,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				d.handle(ctx, stream, h, m)
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, stream string, h HandlerFunc, m redis.XMessage) {
	defer d.rc.Get().XAck(ctx, stream, d.cfg.Group, m.ID)

	raw, ok := m.Values["payload"].(string)
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("queue: message %s on %s has no payload", m.ID, stream))
		return
	}
	attempt := toInt(m.Values["attempt"])

	err := h(ctx, []byte(raw))
	if err == nil {
		return
	}

	if attempt+1 >= d.cfg.MaxAttempts {
		log.Printf("[queue] %s: giving up on message %s after %d attempts: %v", stream, m.ID, attempt+1, err)
		sentry.CaptureException(fmt.Errorf("queue %s: job dead-lettered after %d attempts: %w", stream, attempt+1, err))
		d.deadLetter(stream, raw, attempt+1)
		return
	}

	// simple exponential backoff requeue
	backoff := d.cfg.BackoffBase << attempt
	time.AfterFunc(backoff, func() {
		_ = d.rc.Get().XAdd(context.Background(), &redis.XAddArgs{
			Stream: stream,
			MaxLen: d.cfg.MaxLen,
			Values: map[string]any{
				"payload": raw,
				"attempt": attempt + 1,
			},
		}).Err()
	})
}

func (d *Dispatcher) deadLetter(stream, raw string, attempts int) {
	_ = d.rc.Get().XAdd(context.Background(), &redis.XAddArgs{
		Stream: d.cfg.DeadLetterStream,
		MaxLen: d.cfg.MaxLen,
		Values: map[string]any{
			"origin":   stream,
			"payload":  raw,
			"attempts": attempts,
		},
	}).Err()
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		var x int
		fmt.Sscanf(t, "%d", &x)
		return x
	default:
		return 0
	}
}
