package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
	"github.com/imrulkayessifat/photo-optima-backend/internal/shopify"
)

var errNotFound = errors.New("not found")

// memRepo is an in-memory Repository that also satisfies quota.Repository,
// so the real quota tracker can run against it in compressor tests.
type memRepo struct {
	mu        sync.Mutex
	stores    map[string]entities.Store
	images    map[int64]entities.Image
	backups   map[int64]entities.BackupImage
	filenames map[int64]entities.BackupFilename
	altnames  map[int64]entities.BackupAltName
	ceilings  map[entities.Plan]float64
}

func newMemRepo() *memRepo {
	return &memRepo{
		stores:    make(map[string]entities.Store),
		images:    make(map[int64]entities.Image),
		backups:   make(map[int64]entities.BackupImage),
		filenames: make(map[int64]entities.BackupFilename),
		altnames:  make(map[int64]entities.BackupAltName),
		ceilings: map[entities.Plan]float64{
			entities.PlanFree: 25,
			entities.PlanPro:  2048,
		},
	}
}

func (m *memRepo) StoreByName(_ context.Context, name string) (entities.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[name]
	if !ok {
		return entities.Store{}, errNotFound
	}
	return s, nil
}

func (m *memRepo) ImageByUID(_ context.Context, uid int64) (entities.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[uid]
	if !ok {
		return entities.Image{}, errNotFound
	}
	return img, nil
}

func (m *memRepo) UpdateImageRemote(_ context.Context, uid int64, remoteID, name, alt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[uid]
	if !ok {
		return errNotFound
	}
	img.RemoteID = remoteID
	img.Name = name
	img.Alt = alt
	m.images[uid] = img
	return nil
}

func (m *memRepo) SetImageStatus(_ context.Context, uid int64, status entities.ImageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[uid]
	if !ok {
		return errNotFound
	}
	img.Status = status
	m.images[uid] = img
	return nil
}

func (m *memRepo) SaveBackup(_ context.Context, img entities.BackupImage, name entities.BackupFilename, alt entities.BackupAltName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[img.RestoreID] = img
	m.filenames[name.RestoreID] = name
	m.altnames[alt.RestoreID] = alt
	return nil
}

func (m *memRepo) BackupImageByID(_ context.Context, uid int64) (entities.BackupImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.backups[uid]
	if !ok {
		return entities.BackupImage{}, errNotFound
	}
	return b, nil
}

func (m *memRepo) BackupFilenameByID(_ context.Context, uid int64) (entities.BackupFilename, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.filenames[uid]
	if !ok {
		return entities.BackupFilename{}, errNotFound
	}
	return b, nil
}

func (m *memRepo) BackupAltNameByID(_ context.Context, uid int64) (entities.BackupAltName, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.altnames[uid]
	if !ok {
		return entities.BackupAltName{}, errNotFound
	}
	return b, nil
}

func (m *memRepo) DeleteBackupImage(_ context.Context, uid int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.backups, uid)
	return nil
}

func (m *memRepo) DeleteBackupFilename(_ context.Context, uid int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.filenames, uid)
	return nil
}

func (m *memRepo) DeleteBackupAltName(_ context.Context, uid int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.altnames, uid)
	return nil
}

func (m *memRepo) AddDataUsed(_ context.Context, storeName string, deltaMB float64) (entities.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[storeName]
	if !ok {
		return entities.Store{}, errNotFound
	}
	s.DataUsed += deltaMB
	m.stores[storeName] = s
	return s, nil
}

func (m *memRepo) PlanCeiling(_ context.Context, plan entities.Plan) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ceilings[plan]
	if !ok {
		return 0, errNotFound
	}
	return c, nil
}

func (m *memRepo) DowngradePlan(_ context.Context, storeName string, to entities.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[storeName]
	if !ok {
		return errNotFound
	}
	s.Plan = to
	s.ChargeID = ""
	m.stores[storeName] = s
	return nil
}

type fakeBilling struct {
	cancelled []string
}

func (f *fakeBilling) CancelRecurringCharge(_ context.Context, chargeID string) error {
	f.cancelled = append(f.cancelled, chargeID)
	return nil
}

// fakeHosted mimics the product-image API: delete removes the asset,
// create assigns a fresh remote id.
type fakeHosted struct {
	assets     map[string]shopify.RemoteImage
	payloads   map[string][]byte
	nextID     int
	deleted    []string
	created    []shopify.NewImage
	failDelete error
	failCreate error
}

func newFakeHosted() *fakeHosted {
	return &fakeHosted{
		assets:   make(map[string]shopify.RemoteImage),
		payloads: make(map[string][]byte),
		nextID:   9000,
	}
}

func (f *fakeHosted) GetProductImage(_ context.Context, _, imageID string) (shopify.RemoteImage, error) {
	img, ok := f.assets[imageID]
	if !ok {
		return shopify.RemoteImage{}, errNotFound
	}
	return img, nil
}

func (f *fakeHosted) DeleteProductImage(_ context.Context, _, imageID string) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.assets, imageID)
	f.deleted = append(f.deleted, imageID)
	return nil
}

func (f *fakeHosted) CreateProductImage(_ context.Context, img shopify.NewImage) (shopify.RemoteImage, error) {
	if f.failCreate != nil {
		return shopify.RemoteImage{}, f.failCreate
	}
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	remote := shopify.RemoteImage{
		ID:  json.Number(id),
		Src: "https://cdn.test/" + id,
		Alt: img.Alt,
	}
	f.assets[id] = remote
	f.payloads[id] = img.Attachment
	f.created = append(f.created, img)
	return remote, nil
}

// fakeBlob models the single-file store with its storage flag and metadata.
type fakeBlob struct {
	objects    map[string][]byte
	meta       map[string]map[string]string
	stored     map[string]bool
	uploads    int
	failUpload error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{
		objects: make(map[string][]byte),
		meta:    make(map[string]map[string]string),
		stored:  make(map[string]bool),
	}
}

func (f *fakeBlob) Stored(_ context.Context, key string) (bool, error) {
	return f.stored[key], nil
}

func (f *fakeBlob) ClearStored(_ context.Context, key string) error {
	f.stored[key] = false
	return nil
}

func (f *fakeBlob) UploadWithHook(_ context.Context, key, _ string, payload []byte, metadata map[string]string, onSuccess func()) error {
	if f.failUpload != nil {
		return f.failUpload
	}
	f.objects[key] = payload
	f.meta[key] = metadata
	f.stored[key] = true
	f.uploads++
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

func (f *fakeBlob) Download(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errNotFound
	}
	return data, "image/jpeg", nil
}

// fakeTracking keeps one boolean record per uid per record kind.
type fakeTracking struct {
	images      map[int64]bool
	backups     map[int64]bool
	filenames   map[int64]bool
	altnames    map[int64]bool
	restores    []int64
	fileRenames []int64
	altRenames  []int64
}

func newFakeTracking() *fakeTracking {
	return &fakeTracking{
		images:    make(map[int64]bool),
		backups:   make(map[int64]bool),
		filenames: make(map[int64]bool),
		altnames:  make(map[int64]bool),
	}
}

func (f *fakeTracking) RegisterUpload(_ context.Context, uid int64, _, _ string) error {
	f.images[uid] = true
	return nil
}

func (f *fakeTracking) RegisterRestore(_ context.Context, uid int64, _, _, _ string) error {
	f.restores = append(f.restores, uid)
	f.backups[uid] = true
	f.filenames[uid] = true
	f.altnames[uid] = true
	return nil
}

func (f *fakeTracking) FileRename(_ context.Context, _ string, uid int64) error {
	f.fileRenames = append(f.fileRenames, uid)
	return nil
}

func (f *fakeTracking) AltRename(_ context.Context, _ string, uid int64) error {
	f.altRenames = append(f.altRenames, uid)
	return nil
}

func (f *fakeTracking) ImageExists(_ context.Context, uid int64) (bool, error) {
	return f.images[uid], nil
}

func (f *fakeTracking) DeleteImage(_ context.Context, uid int64) error {
	delete(f.images, uid)
	return nil
}

func (f *fakeTracking) BackupExists(_ context.Context, uid int64) (bool, error) {
	return f.backups[uid], nil
}

func (f *fakeTracking) DeleteBackup(_ context.Context, uid int64) error {
	delete(f.backups, uid)
	return nil
}

func (f *fakeTracking) BackupFilenameExists(_ context.Context, uid int64) (bool, error) {
	return f.filenames[uid], nil
}

func (f *fakeTracking) DeleteBackupFilename(_ context.Context, uid int64) error {
	delete(f.filenames, uid)
	return nil
}

func (f *fakeTracking) BackupAltNameExists(_ context.Context, uid int64) (bool, error) {
	return f.altnames[uid], nil
}

func (f *fakeTracking) DeleteBackupAltName(_ context.Context, uid int64) error {
	delete(f.altnames, uid)
	return nil
}

// fakeFetcher serves bytes by URL.
type fakeFetcher struct {
	data map[string][]byte
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[url]
	if !ok {
		return nil, fmt.Errorf("%w: fetching %s returned 404", ErrTransientIO, url)
	}
	return data, nil
}

type enqueued struct {
	stream string
	job    any
}

type recEnqueuer struct {
	jobs []enqueued
	err  error
}

func (r *recEnqueuer) Enqueue(_ context.Context, stream string, job any) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, enqueued{stream: stream, job: job})
	return nil
}

func marshalJob(t *testing.T, job any) []byte {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return payload
}

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// padTo grows a JPEG to an exact byte size. The decoder stops at the EOI
// marker, so trailing padding never reaches it.
func padTo(data []byte, size int) []byte {
	if len(data) >= size {
		return data
	}
	return append(data, make([]byte, size-len(data))...)
}
