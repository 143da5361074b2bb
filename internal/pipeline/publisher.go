package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/getsentry/sentry-go"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
	"github.com/imrulkayessifat/photo-optima-backend/internal/naming"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
	"github.com/imrulkayessifat/photo-optima-backend/internal/shopify"
)

// Publisher replaces the remote asset with the compressed rendition,
// snapshotting the original first. Because the hosted surface cannot update
// an image in place, the replace is a delete-then-create saga; backup rows
// are written only after both halves succeeded.
type Publisher struct {
	repo     Repository
	fetcher  Fetcher
	hosted   HostedSurface
	blob     BlobSurface
	tracking Tracking
	producer Enqueuer
}

func NewPublisher(repo Repository, fetcher Fetcher, hosted HostedSurface, blob BlobSurface, tracking Tracking, producer Enqueuer) *Publisher {
	return &Publisher{
		repo:     repo,
		fetcher:  fetcher,
		hosted:   hosted,
		blob:     blob,
		tracking: tracking,
		producer: producer,
	}
}

func (p *Publisher) Handle(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.PublishJob](payload)
	if err != nil {
		log.Printf("[publisher] rejecting payload: %v", err)
		return nil
	}

	img, err := p.repo.ImageByUID(ctx, job.UID)
	if err != nil {
		return fmt.Errorf("looking up image %d: %w", job.UID, err)
	}

	// Never compress on compress: a second pass requires a restore first.
	if img.Status == entities.StatusCompressed {
		log.Printf("[publisher] uid=%d already compressed, dropping", job.UID)
		return nil
	}

	if job.ProductID != entities.SentinelProductID {
		if err := p.publishHosted(ctx, job, img); err != nil {
			return err
		}
	} else {
		published, err := p.publishBlob(ctx, job, img)
		if err != nil {
			return err
		}
		// Unset storage flag means there is nothing to replace; without an
		// upload the image must not move to COMPRESSED.
		if !published {
			log.Printf("[publisher] uid=%d blob not stored, skipping", job.UID)
			return nil
		}
	}

	return p.confirm(ctx, job.UID, job.StoreName)
}

func (p *Publisher) publishHosted(ctx context.Context, job queue.PublishJob, img entities.Image) error {
	// Snapshot the current remote bytes before anything is deleted.
	current, err := p.hosted.GetProductImage(ctx, job.ProductID, img.RemoteID)
	if err != nil {
		return fmt.Errorf("fetching current asset for uid=%d: %w", job.UID, err)
	}
	backupBytes, err := p.fetcher.Fetch(ctx, current.Src)
	if err != nil {
		return fmt.Errorf("downloading backup bytes for uid=%d: %w", job.UID, err)
	}

	base := naming.Base(img.Name)
	_, ext := naming.SplitExt(img.Name)
	if ext == "" {
		ext = "jpg"
	}
	alt := naming.Encode(base, job.UID, naming.FlagCompressed, ext)

	// The delete must succeed before anything else happens. A failed delete
	// aborts with no backup row, so no backup can ever reference an asset
	// that was never removed.
	if err := p.hosted.DeleteProductImage(ctx, job.ProductID, img.RemoteID); err != nil {
		return fmt.Errorf("deleting remote asset for uid=%d: %w", job.UID, err)
	}

	created, err := p.hosted.CreateProductImage(ctx, shopify.NewImage{
		Alt:        alt,
		ProductID:  job.ProductID,
		Attachment: job.CompressedBytes,
	})
	if err != nil {
		// The delete already landed: the asset is gone with no backup.
		// Dead-letter the job for manual reconciliation.
		sentry.CaptureException(fmt.Errorf("uid=%d: remote asset deleted but create failed, no backup written: %w", job.UID, err))
		return err
	}

	if err := p.repo.SaveBackup(ctx,
		entities.BackupImage{RestoreID: job.UID, Data: backupBytes},
		entities.BackupFilename{RestoreID: job.UID, Name: img.Name},
		entities.BackupAltName{RestoreID: job.UID, Alt: img.Alt},
	); err != nil {
		return fmt.Errorf("persisting backup rows for uid=%d: %w", job.UID, err)
	}

	return p.repo.UpdateImageRemote(ctx, job.UID, created.ID.String(), alt, alt)
}

func (p *Publisher) publishBlob(ctx context.Context, job queue.PublishJob, img entities.Image) (bool, error) {
	key := img.RemoteID

	backupBytes, _, err := p.blob.Download(ctx, key)
	if err != nil {
		return false, fmt.Errorf("downloading blob backup for uid=%d: %w", job.UID, err)
	}

	stored, err := p.blob.Stored(ctx, key)
	if err != nil {
		return false, fmt.Errorf("querying storage flag for uid=%d: %w", job.UID, err)
	}
	if !stored {
		return false, nil
	}
	if err := p.blob.ClearStored(ctx, key); err != nil {
		return false, fmt.Errorf("clearing storage flag for uid=%d: %w", job.UID, err)
	}

	uid, name, alt := job.UID, img.Name, img.Alt
	return true, p.blob.UploadWithHook(ctx, key, "image/jpeg", job.CompressedBytes,
		map[string]string{"state": fmt.Sprintf("COMPRESSED-%d", uid)},
		func() {
			err := p.repo.SaveBackup(context.Background(),
				entities.BackupImage{RestoreID: uid, Data: backupBytes},
				entities.BackupFilename{RestoreID: uid, Name: name},
				entities.BackupAltName{RestoreID: uid, Alt: alt},
			)
			if err != nil {
				log.Printf("[publisher] uid=%d blob backup rows failed: %v", uid, err)
				sentry.CaptureException(err)
			}
		})
}

// confirm probes the tracking service for the transient upload record; only
// a confirmed record flips the image to COMPRESSED and is then cleaned up.
// There is no timeout or retry if confirmation never arrives.
func (p *Publisher) confirm(ctx context.Context, uid int64, storeName string) error {
	exists, err := p.tracking.ImageExists(ctx, uid)
	if err != nil {
		return fmt.Errorf("confirming upload for uid=%d: %w", uid, err)
	}
	if !exists {
		return nil
	}

	if err := p.repo.SetImageStatus(ctx, uid, entities.StatusCompressed); err != nil {
		return err
	}
	if err := p.tracking.DeleteImage(ctx, uid); err != nil {
		log.Printf("[publisher] uid=%d tracking cleanup failed: %v", uid, err)
	}

	triggerRenames(ctx, p.repo, p.producer, uid, storeName)
	return nil
}
