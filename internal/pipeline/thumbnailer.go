package pipeline

import (
	"context"
	"log"

	"github.com/getsentry/sentry-go"

	"github.com/imrulkayessifat/photo-optima-backend/internal/processor"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
)

const (
	thumbWidth   = 300
	thumbHeight  = 300
	thumbQuality = 60
)

// Thumbnailer serves the periodic refresh stream: it re-fetches the source,
// produces a fixed-size low-quality rendition and forwards it to the publish
// stage.
type Thumbnailer struct {
	repo       Repository
	fetcher    Fetcher
	tracking   Tracking
	producer   Enqueuer
	transcoder processor.Transcoder
}

func NewThumbnailer(repo Repository, fetcher Fetcher, tracking Tracking, producer Enqueuer) *Thumbnailer {
	return &Thumbnailer{
		repo:     repo,
		fetcher:  fetcher,
		tracking: tracking,
		producer: producer,
	}
}

func (t *Thumbnailer) Handle(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.CompressJob](payload)
	if err != nil {
		log.Printf("[thumbnailer] rejecting payload: %v", err)
		return nil
	}

	data, err := t.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		log.Printf("[thumbnailer] uid=%d dropped: %v", job.UID, err)
		sentry.CaptureException(err)
		return nil
	}

	thumb, err := t.transcoder.Thumbnail(data, thumbWidth, thumbHeight, thumbQuality)
	if err != nil {
		log.Printf("[thumbnailer] uid=%d dropped, resize failed: %v", job.UID, err)
		sentry.CaptureException(err)
		return nil
	}

	// Status is not touched here: the publish stage flips it to COMPRESSED
	// once the upload is confirmed, same as the compress path.
	if err := t.tracking.RegisterUpload(ctx, job.UID, job.ProductID, job.StoreName); err != nil {
		log.Printf("[thumbnailer] uid=%d tracking registration failed: %v", job.UID, err)
	}

	return t.producer.Enqueue(ctx, queue.StreamPublish, queue.PublishJob{
		UID:             job.UID,
		ProductID:       job.ProductID,
		CompressedBytes: thumb,
		StoreName:       job.StoreName,
	})
}
