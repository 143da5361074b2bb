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

// Restorer reverses a publish: it reinstates the backed-up original on the
// remote surface and clears the backup rows once the round trip completes.
type Restorer struct {
	repo     Repository
	hosted   HostedSurface
	blob     BlobSurface
	tracking Tracking
	producer Enqueuer
}

func NewRestorer(repo Repository, hosted HostedSurface, blob BlobSurface, tracking Tracking, producer Enqueuer) *Restorer {
	return &Restorer{
		repo:     repo,
		hosted:   hosted,
		blob:     blob,
		tracking: tracking,
		producer: producer,
	}
}

// HandleForward serves the manual restore stream: it registers the round trip
// with the tracking service and forwards the job to the restore stage.
func (r *Restorer) HandleForward(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.RestoreJob](payload)
	if err != nil {
		log.Printf("[restorer] rejecting payload: %v", err)
		return nil
	}
	return r.forward(ctx, job)
}

// HandleAutoForward serves the batch restore stream, gated on batchRestore.
func (r *Restorer) HandleAutoForward(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.RestoreJob](payload)
	if err != nil {
		log.Printf("[restorer] rejecting payload: %v", err)
		return nil
	}

	store, err := r.repo.StoreByName(ctx, job.StoreName)
	if err != nil {
		return err
	}
	if !store.BatchRestore {
		return nil
	}
	return r.forward(ctx, job)
}

func (r *Restorer) forward(ctx context.Context, job queue.RestoreJob) error {
	if err := r.tracking.RegisterRestore(ctx, job.UID, job.ProductID, job.URL, job.StoreName); err != nil {
		log.Printf("[restorer] uid=%d tracking registration failed: %v", job.UID, err)
		sentry.CaptureException(err)
	}
	return r.producer.Enqueue(ctx, queue.StreamRestoreUpload, job)
}

// HandleRestore serves the restore_to_uploader stream and does the work.
func (r *Restorer) HandleRestore(ctx context.Context, payload []byte) error {
	job, err := decodeJob[queue.RestoreJob](payload)
	if err != nil {
		log.Printf("[restorer] rejecting payload: %v", err)
		return nil
	}

	img, err := r.repo.ImageByUID(ctx, job.UID)
	if err != nil {
		return fmt.Errorf("looking up image %d: %w", job.UID, err)
	}
	// Nothing to reverse for an image that was never compressed.
	if img.Status != entities.StatusCompressed {
		log.Printf("[restorer] uid=%d is not compressed, dropping", job.UID)
		return nil
	}
	backup, err := r.repo.BackupImageByID(ctx, job.UID)
	if err != nil {
		return fmt.Errorf("looking up backup for uid=%d: %w", job.UID, err)
	}

	if job.ProductID != entities.SentinelProductID {
		if err := r.restoreHosted(ctx, job, img, backup.Data); err != nil {
			return err
		}
		if err := r.finalize(ctx, job.UID); err != nil {
			return err
		}
	} else {
		// The blob path finalizes from the upload's success hook; consuming
		// the backup rows before the upload landed could orphan the only
		// remaining copy of the original.
		if err := r.restoreBlob(ctx, job, img, backup.Data); err != nil {
			return err
		}
	}

	r.cleanupTracking(ctx, job.UID)
	triggerRenames(ctx, r.repo, r.producer, job.UID, job.StoreName)
	return nil
}

func (r *Restorer) restoreHosted(ctx context.Context, job queue.RestoreJob, img entities.Image, original []byte) error {
	base := naming.Base(img.Name)
	_, ext := naming.SplitExt(img.Name)
	if ext == "" {
		ext = "jpg"
	}
	alt := naming.Encode(base, job.UID, naming.FlagNotCompressed, ext)

	// Same saga shape as publish: delete must confirm before the create.
	if err := r.hosted.DeleteProductImage(ctx, job.ProductID, img.RemoteID); err != nil {
		return fmt.Errorf("deleting compressed asset for uid=%d: %w", job.UID, err)
	}

	created, err := r.hosted.CreateProductImage(ctx, shopify.NewImage{
		Alt:        alt,
		ProductID:  job.ProductID,
		Attachment: original,
	})
	if err != nil {
		sentry.CaptureException(fmt.Errorf("uid=%d: compressed asset deleted but restore create failed: %w", job.UID, err))
		return err
	}

	if err := r.repo.DeleteBackupFilename(ctx, job.UID); err != nil {
		return err
	}
	if err := r.repo.DeleteBackupAltName(ctx, job.UID); err != nil {
		return err
	}

	return r.repo.UpdateImageRemote(ctx, job.UID, created.ID.String(), alt, alt)
}

func (r *Restorer) restoreBlob(ctx context.Context, job queue.RestoreJob, img entities.Image, original []byte) error {
	key := img.RemoteID

	nameRow, err := r.repo.BackupFilenameByID(ctx, job.UID)
	if err != nil {
		return fmt.Errorf("looking up backup filename for uid=%d: %w", job.UID, err)
	}

	stored, err := r.blob.Stored(ctx, key)
	if err != nil {
		return fmt.Errorf("querying storage flag for uid=%d: %w", job.UID, err)
	}
	if stored {
		if err := r.blob.ClearStored(ctx, key); err != nil {
			return fmt.Errorf("clearing storage flag for uid=%d: %w", job.UID, err)
		}
	}

	uid := job.UID
	return r.blob.UploadWithHook(ctx, key, "image/jpeg", original,
		map[string]string{
			"state":    fmt.Sprintf("RESTORED-%d", uid),
			"filename": nameRow.Name,
		},
		func() {
			if err := r.finalize(context.Background(), uid); err != nil {
				log.Printf("[restorer] uid=%d finalize failed: %v", uid, err)
				sentry.CaptureException(err)
			}
		})
}

// finalize consumes the backup rows and returns the image to NOT_COMPRESSED.
// Every delete is idempotent; the hosted path has already dropped the name
// rows by the time this runs.
func (r *Restorer) finalize(ctx context.Context, uid int64) error {
	if err := r.repo.DeleteBackupFilename(ctx, uid); err != nil {
		return err
	}
	if err := r.repo.DeleteBackupAltName(ctx, uid); err != nil {
		return err
	}
	if err := r.repo.DeleteBackupImage(ctx, uid); err != nil {
		return err
	}
	return r.repo.SetImageStatus(ctx, uid, entities.StatusNotCompressed)
}

// cleanupTracking walks the transient tracking records. Each probe-then-delete
// pair is independently idempotent; a record that is already gone is a no-op.
func (r *Restorer) cleanupTracking(ctx context.Context, uid int64) {
	probes := []struct {
		exists func(context.Context, int64) (bool, error)
		remove func(context.Context, int64) error
	}{
		{r.tracking.BackupExists, r.tracking.DeleteBackup},
		{r.tracking.ImageExists, r.tracking.DeleteImage},
		{r.tracking.BackupFilenameExists, r.tracking.DeleteBackupFilename},
		{r.tracking.BackupAltNameExists, r.tracking.DeleteBackupAltName},
	}
	for _, p := range probes {
		ok, err := p.exists(ctx, uid)
		if err != nil {
			log.Printf("[restorer] uid=%d tracking probe failed: %v", uid, err)
			continue
		}
		if ok {
			if err := p.remove(ctx, uid); err != nil {
				log.Printf("[restorer] uid=%d tracking cleanup failed: %v", uid, err)
			}
		}
	}
}
