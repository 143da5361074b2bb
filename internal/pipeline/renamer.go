package pipeline

import (
	"context"
	"log"

	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
)

// Renamer triggers the companion rename workflows keyed by image identity.
// Both endpoints are idempotent, so redelivery of a rename job is harmless.
type Renamer struct {
	repo     Repository
	tracking Tracking
}

func NewRenamer(repo Repository, tracking Tracking) *Renamer {
	return &Renamer{repo: repo, tracking: tracking}
}

func (r *Renamer) HandleFileRename(ctx context.Context, payload []byte) error {
	job, ok := r.decode(payload)
	if !ok {
		return nil
	}
	if _, err := r.repo.ImageByUID(ctx, job.UID); err != nil {
		// Image is gone; nothing to rename.
		return nil
	}
	return r.tracking.FileRename(ctx, job.StoreName, job.UID)
}

func (r *Renamer) HandleAltRename(ctx context.Context, payload []byte) error {
	job, ok := r.decode(payload)
	if !ok {
		return nil
	}
	if _, err := r.repo.ImageByUID(ctx, job.UID); err != nil {
		return nil
	}
	return r.tracking.AltRename(ctx, job.StoreName, job.UID)
}

func (r *Renamer) decode(payload []byte) (queue.RenameJob, bool) {
	job, err := decodeJob[queue.RenameJob](payload)
	if err != nil {
		log.Printf("[renamer] rejecting payload: %v", err)
		return queue.RenameJob{}, false
	}
	return job, true
}
