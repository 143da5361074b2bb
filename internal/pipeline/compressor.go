package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/getsentry/sentry-go"

	"github.com/imrulkayessifat/photo-optima-backend/internal/policy"
	"github.com/imrulkayessifat/photo-optima-backend/internal/processor"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
)

// Compressor fetches source bytes, resolves the quality policy, re-encodes
// the image (always to JPEG) and hands the result to the publish stage.
type Compressor struct {
	repo       Repository
	fetcher    Fetcher
	quota      QuotaApplier
	tracking   Tracking
	producer   Enqueuer
	transcoder processor.Transcoder
}

func NewCompressor(repo Repository, fetcher Fetcher, quota QuotaApplier, tracking Tracking, producer Enqueuer) *Compressor {
	return &Compressor{
		repo:     repo,
		fetcher:  fetcher,
		quota:    quota,
		tracking: tracking,
		producer: producer,
	}
}

// Handle serves the manual compression stream.
func (c *Compressor) Handle(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.CompressJob](payload)
	if err != nil {
		log.Printf("[compressor] rejecting payload: %v", err)
		return nil
	}
	return c.compress(ctx, job)
}

// HandleAuto serves the auto-compression stream. Jobs for stores with neither
// auto compression nor batch compression enabled are silently discarded.
func (c *Compressor) HandleAuto(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.CompressJob](payload)
	if err != nil {
		log.Printf("[compressor] rejecting payload: %v", err)
		return nil
	}

	store, err := c.repo.StoreByName(ctx, job.StoreName)
	if err != nil {
		return err
	}
	if !store.AutoCompression && !store.BatchCompress {
		return nil
	}
	return c.compress(ctx, job)
}

func (c *Compressor) compress(ctx context.Context, job queue.CompressJob) error {
	store, err := c.repo.StoreByName(ctx, job.StoreName)
	if err != nil {
		return err
	}

	data, err := c.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		// Accepted loss under the at-most-once policy: drop, don't retry.
		log.Printf("[compressor] uid=%d dropped: %v", job.UID, err)
		sentry.CaptureException(err)
		return nil
	}

	megabytes := float64(len(data)) / 1024 / 1024
	quality := policy.Quality(store, data)

	compressed, err := c.transcoder.ToJPEG(data, quality)
	if err != nil {
		log.Printf("[compressor] uid=%d dropped, transcode failed: %v", job.UID, err)
		sentry.CaptureException(errors.Join(ErrTransientIO, err))
		return nil
	}

	if _, _, err := c.quota.Apply(ctx, job.StoreName, megabytes); err != nil {
		return err
	}

	// Best effort: without this record the publish stage simply never gets
	// its completion confirmed.
	if err := c.tracking.RegisterUpload(ctx, job.UID, job.ProductID, job.StoreName); err != nil {
		log.Printf("[compressor] uid=%d tracking registration failed: %v", job.UID, err)
		sentry.CaptureException(err)
	}

	return c.producer.Enqueue(ctx, queue.StreamPublish, queue.PublishJob{
		UID:             job.UID,
		ProductID:       job.ProductID,
		CompressedBytes: compressed,
		StoreName:       job.StoreName,
	})
}
