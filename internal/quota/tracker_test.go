package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

type fakeRepo struct {
	store    entities.Store
	ceilings map[entities.Plan]float64
}

func (f *fakeRepo) AddDataUsed(ctx context.Context, name string, delta float64) (entities.Store, error) {
	f.store.DataUsed += delta
	return f.store, nil
}

func (f *fakeRepo) PlanCeiling(ctx context.Context, plan entities.Plan) (float64, error) {
	return f.ceilings[plan], nil
}

func (f *fakeRepo) DowngradePlan(ctx context.Context, name string, to entities.Plan) error {
	f.store.Plan = to
	f.store.ChargeID = ""
	return nil
}

type fakeBilling struct {
	cancelled []string
}

func (f *fakeBilling) CancelRecurringCharge(ctx context.Context, chargeID string) error {
	f.cancelled = append(f.cancelled, chargeID)
	return nil
}

func newFixture(plan entities.Plan, used float64, chargeID string) (*fakeRepo, *fakeBilling, *Tracker) {
	repo := &fakeRepo{
		store: entities.Store{
			Name:     "shop.example",
			Plan:     plan,
			DataUsed: used,
			ChargeID: chargeID,
		},
		ceilings: map[entities.Plan]float64{
			entities.PlanFree:  25,
			entities.PlanMicro: 500,
		},
	}
	billing := &fakeBilling{}
	return repo, billing, NewTracker(repo, billing)
}

func TestApplyUnderCeiling(t *testing.T) {
	repo, billing, tracker := newFixture(entities.PlanFree, 0, "ch_1")

	usage, action, err := tracker.Apply(context.Background(), "shop.example", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, usage)
	assert.Equal(t, ActionNone, action)
	assert.Empty(t, billing.cancelled)
	assert.Equal(t, entities.PlanFree, repo.store.Plan)
}

func TestApplyOverCeiling(t *testing.T) {
	repo, billing, tracker := newFixture(entities.PlanFree, 20, "ch_1")

	usage, action, err := tracker.Apply(context.Background(), "shop.example", 10)
	require.NoError(t, err)
	assert.Equal(t, 30.0, usage)
	assert.Equal(t, ActionDowngraded, action)
	assert.Equal(t, []string{"ch_1"}, billing.cancelled)
	assert.Equal(t, entities.PlanFree, repo.store.Plan)
	// Usage itself is never reset by the downgrade.
	assert.Equal(t, 30.0, repo.store.DataUsed)
}

func TestApplyOverCeilingIdempotent(t *testing.T) {
	_, billing, tracker := newFixture(entities.PlanFree, 20, "ch_1")

	_, _, err := tracker.Apply(context.Background(), "shop.example", 10)
	require.NoError(t, err)

	// Re-applying at the same usage level cancels nothing a second time.
	_, _, err = tracker.Apply(context.Background(), "shop.example", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch_1"}, billing.cancelled)
}

func TestApplyDowngradesPaidPlan(t *testing.T) {
	repo, billing, tracker := newFixture(entities.PlanMicro, 495, "ch_9")

	_, action, err := tracker.Apply(context.Background(), "shop.example", 10)
	require.NoError(t, err)
	assert.Equal(t, ActionDowngraded, action)
	assert.Equal(t, []string{"ch_9"}, billing.cancelled)
	assert.Equal(t, entities.PlanFree, repo.store.Plan)
	assert.Empty(t, repo.store.ChargeID)
}
