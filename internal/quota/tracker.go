// Package quota accounts for compressed bandwidth against the store's plan
// ceiling and runs the compensating billing action on overrun.
package quota

import (
	"context"
	"fmt"
	"log"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

// Repository is the slice of persistence the tracker needs. AddDataUsed must
// be atomic (single-statement increment): concurrent jobs for the same store
// must not lose updates.
type Repository interface {
	AddDataUsed(ctx context.Context, storeName string, deltaMB float64) (entities.Store, error)
	PlanCeiling(ctx context.Context, plan entities.Plan) (float64, error)
	DowngradePlan(ctx context.Context, storeName string, to entities.Plan) error
}

// BillingSurface cancels a recurring charge by id.
type BillingSurface interface {
	CancelRecurringCharge(ctx context.Context, chargeID string) error
}

// Action reports what the tracker did besides recording usage.
type Action int

const (
	ActionNone Action = iota
	// ActionDowngraded means the ceiling was exceeded: the recurring charge
	// was cancelled and the store dropped to the free tier. This is a policy
	// outcome, not an error; the compression that triggered it still lands.
	ActionDowngraded
)

type Tracker struct {
	repo    Repository
	billing BillingSurface
}

func NewTracker(repo Repository, billing BillingSurface) *Tracker {
	return &Tracker{repo: repo, billing: billing}
}

// Apply records deltaMB of usage and, when the new total exceeds the plan
// ceiling, cancels the store's recurring charge and downgrades the plan.
// Usage itself is persisted unconditionally and never reset.
func (t *Tracker) Apply(ctx context.Context, storeName string, deltaMB float64) (float64, Action, error) {
	store, err := t.repo.AddDataUsed(ctx, storeName, deltaMB)
	if err != nil {
		return 0, ActionNone, fmt.Errorf("recording usage for %s: %w", storeName, err)
	}

	ceiling, err := t.repo.PlanCeiling(ctx, store.Plan)
	if err != nil {
		return store.DataUsed, ActionNone, fmt.Errorf("looking up ceiling for plan %s: %w", store.Plan, err)
	}

	if store.DataUsed <= ceiling {
		return store.DataUsed, ActionNone, nil
	}

	// Overrun. The downgrade clears the charge id, so re-applying at the
	// same usage level cancels nothing twice.
	if store.ChargeID != "" {
		if err := t.billing.CancelRecurringCharge(ctx, store.ChargeID); err != nil {
			return store.DataUsed, ActionNone, fmt.Errorf("cancelling charge %s: %w", store.ChargeID, err)
		}
	}
	if err := t.repo.DowngradePlan(ctx, storeName, entities.PlanFree); err != nil {
		return store.DataUsed, ActionNone, fmt.Errorf("downgrading %s: %w", storeName, err)
	}

	log.Printf("[quota] %s exceeded %s ceiling (%.1f > %.1f MB), downgraded to %s",
		storeName, store.Plan, store.DataUsed, ceiling, entities.PlanFree)

	return store.DataUsed, ActionDowngraded, nil
}
