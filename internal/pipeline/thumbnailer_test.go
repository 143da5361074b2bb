package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
)

func TestThumbnailerProducesFixedRendition(t *testing.T) {
	repo := newMemRepo()
	repo.images[12] = entities.Image{
		UID:       12,
		RemoteID:  "r12",
		ProductID: "55",
		Name:      "hero.jpg",
		Status:    entities.StatusNotCompressed,
	}
	fetcher := &fakeFetcher{data: map[string][]byte{sourceURL: jpegFixture(t, 600, 600)}}
	tracking := newFakeTracking()
	enq := &recEnqueuer{}
	th := NewThumbnailer(repo, fetcher, tracking, enq)

	payload := marshalJob(t, queue.CompressJob{
		UID: 12, ProductID: "55", SourceURL: sourceURL, StoreName: testStore,
	})
	require.NoError(t, th.Handle(context.Background(), payload))

	// Status is the publish stage's to flip; pre-marking here would make the
	// publish stage drop the job as already compressed.
	img, _ := repo.ImageByUID(context.Background(), 12)
	assert.Equal(t, entities.StatusNotCompressed, img.Status)
	assert.True(t, tracking.images[12])

	require.Len(t, enq.jobs, 1)
	assert.Equal(t, queue.StreamPublish, enq.jobs[0].stream)
	job := enq.jobs[0].job.(queue.PublishJob)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(job.CompressedBytes))
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 300, Y: 300}, image.Point{X: cfg.Width, Y: cfg.Height})
}

// A periodic-refresh job must make it through the publish stage: the emitted
// rendition ends up on the remote surface and only then flips the status.
func TestThumbnailerRenditionReachesRemoteSurface(t *testing.T) {
	env := publishFixture(t)
	env.repo.stores[testStore] = entities.Store{Name: testStore, Plan: entities.PlanFree}
	fetcher := &fakeFetcher{data: map[string][]byte{sourceURL: jpegFixture(t, 600, 600)}}
	th := NewThumbnailer(env.repo, fetcher, env.tracking, env.enq)

	ctx := context.Background()
	payload := marshalJob(t, queue.CompressJob{
		UID: 7, ProductID: "55", SourceURL: sourceURL, StoreName: testStore,
	})
	require.NoError(t, th.Handle(ctx, payload))

	require.Len(t, env.enq.jobs, 1)
	require.NoError(t, env.pub.Handle(ctx, marshalJob(t, env.enq.jobs[0].job)))

	require.Len(t, env.hosted.created, 1, "the rendition must reach the remote surface")
	img, _ := env.repo.ImageByUID(ctx, 7)
	assert.Equal(t, entities.StatusCompressed, img.Status)
}

func TestThumbnailerDropsUnfetchableSource(t *testing.T) {
	repo := newMemRepo()
	fetcher := &fakeFetcher{data: map[string][]byte{}}
	enq := &recEnqueuer{}
	th := NewThumbnailer(repo, fetcher, newFakeTracking(), enq)

	payload := marshalJob(t, queue.CompressJob{
		UID: 12, ProductID: "55", SourceURL: sourceURL, StoreName: testStore,
	})
	require.NoError(t, th.Handle(context.Background(), payload))
	assert.Empty(t, enq.jobs)
}
