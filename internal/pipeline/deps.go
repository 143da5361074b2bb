// Package pipeline holds the queue handlers of the compression/backup/restore
// pipeline: one handler per stream, each calling out to the policy resolver,
// the quota tracker, the state store and the external surfaces.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
	"github.com/imrulkayessifat/photo-optima-backend/internal/quota"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
	"github.com/imrulkayessifat/photo-optima-backend/internal/shopify"
)

// Repository is the persistence surface the pipeline stages share.
type Repository interface {
	StoreByName(ctx context.Context, name string) (entities.Store, error)
	ImageByUID(ctx context.Context, uid int64) (entities.Image, error)
	UpdateImageRemote(ctx context.Context, uid int64, remoteID, name, alt string) error
	SetImageStatus(ctx context.Context, uid int64, status entities.ImageStatus) error

	SaveBackup(ctx context.Context, img entities.BackupImage, name entities.BackupFilename, alt entities.BackupAltName) error
	BackupImageByID(ctx context.Context, uid int64) (entities.BackupImage, error)
	BackupFilenameByID(ctx context.Context, uid int64) (entities.BackupFilename, error)
	BackupAltNameByID(ctx context.Context, uid int64) (entities.BackupAltName, error)
	DeleteBackupImage(ctx context.Context, uid int64) error
	DeleteBackupFilename(ctx context.Context, uid int64) error
	DeleteBackupAltName(ctx context.Context, uid int64) error
}

// Fetcher pulls raw bytes from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HostedSurface is the product-image API. Replace is delete-then-create; the
// created asset carries a fresh remote id.
type HostedSurface interface {
	GetProductImage(ctx context.Context, productID, imageID string) (shopify.RemoteImage, error)
	DeleteProductImage(ctx context.Context, productID, imageID string) error
	CreateProductImage(ctx context.Context, img shopify.NewImage) (shopify.RemoteImage, error)
}

// BlobSurface is the single-file store for unattached images.
type BlobSurface interface {
	Stored(ctx context.Context, key string) (bool, error)
	ClearStored(ctx context.Context, key string) error
	UploadWithHook(ctx context.Context, key, fileType string, payload []byte, metadata map[string]string, onSuccess func()) error
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// Tracking is the companion service used to confirm stage completion and to
// drive the rename workflows.
type Tracking interface {
	RegisterUpload(ctx context.Context, uid int64, productID, storeName string) error
	RegisterRestore(ctx context.Context, uid int64, productID, url, storeName string) error
	FileRename(ctx context.Context, storeName string, uid int64) error
	AltRename(ctx context.Context, storeName string, uid int64) error
	ImageExists(ctx context.Context, uid int64) (bool, error)
	DeleteImage(ctx context.Context, uid int64) error
	BackupExists(ctx context.Context, uid int64) (bool, error)
	DeleteBackup(ctx context.Context, uid int64) error
	BackupFilenameExists(ctx context.Context, uid int64) (bool, error)
	DeleteBackupFilename(ctx context.Context, uid int64) error
	BackupAltNameExists(ctx context.Context, uid int64) (bool, error)
	DeleteBackupAltName(ctx context.Context, uid int64) error
}

// Enqueuer hands a job to the next stage.
type Enqueuer interface {
	Enqueue(ctx context.Context, stream string, job any) error
}

// QuotaApplier records usage and runs the compensating billing action.
type QuotaApplier interface {
	Apply(ctx context.Context, storeName string, deltaMB float64) (float64, quota.Action, error)
}

// triggerRenames enqueues the rename workflows the store has enabled, after
// either a publish or a restore completed. Both workflows are idempotent on
// the companion side.
func triggerRenames(ctx context.Context, repo Repository, producer Enqueuer, uid int64, storeName string) {
	store, err := repo.StoreByName(ctx, storeName)
	if err != nil {
		log.Printf("[rename] uid=%d store lookup failed: %v", uid, err)
		return
	}

	job := queue.RenameJob{UID: uid, StoreName: storeName}
	if store.AutoFileRename {
		if err := producer.Enqueue(ctx, queue.StreamFileRename, job); err != nil {
			log.Printf("[rename] uid=%d file-rename enqueue failed: %v", uid, err)
		}
	}
	if store.AutoAltRename {
		if err := producer.Enqueue(ctx, queue.StreamAltRename, job); err != nil {
			log.Printf("[rename] uid=%d alt-rename enqueue failed: %v", uid, err)
		}
	}
}

// decodeJob parses and validates a job payload at the queue boundary.
func decodeJob[T any](payload []byte) (T, error) {
	var job T
	if err := json.Unmarshal(payload, &job); err != nil {
		return job, fmt.Errorf("decoding job: %w", err)
	}
	if err := queue.Validate(job); err != nil {
		return job, fmt.Errorf("validating job: %w", err)
	}
	return job, nil
}
