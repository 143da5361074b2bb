package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/imrulkayessifat/photo-optima-backend/internal/config"
	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
)

// Repository is the slice of persistence the HTTP surface needs.
type Repository interface {
	EnsureStore(ctx context.Context, name string) error
	CreateProduct(ctx context.Context, p entities.Product) error
	UpsertImageByRemoteID(ctx context.Context, img entities.Image) (entities.Image, error)
	CreateImage(ctx context.Context, img entities.Image) (int64, error)
	Images(ctx context.Context) ([]entities.Image, error)
	ImageByUID(ctx context.Context, uid int64) (entities.Image, error)
	ImagesByProduct(ctx context.Context, productID string) ([]entities.Image, error)
	DeleteImage(ctx context.Context, uid int64) error
}

// Enqueuer pushes a job onto a pipeline stream.
type Enqueuer interface {
	Enqueue(ctx context.Context, stream string, job any) error
}

// BlobUploader accepts direct uploads to the blob surface.
type BlobUploader interface {
	UploadWithHook(ctx context.Context, key, fileType string, payload []byte, metadata map[string]string, onSuccess func()) error
}

type Handler struct {
	repo      Repository
	producer  Enqueuer
	blob      BlobUploader
	cfg       *config.Config
	validator *validator.Validate
}

func New(repo Repository, producer Enqueuer, blob BlobUploader, cfg *config.Config) *Handler {
	return &Handler{
		repo:      repo,
		producer:  producer,
		blob:      blob,
		cfg:       cfg,
		validator: validator.New(),
	}
}

// Compress enqueues a manual compression job.
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	var req CompressRequest
	if !h.decode(w, r, &req) {
		return
	}

	job := queue.CompressJob{
		UID:       req.UID,
		ProductID: req.ProductID,
		SourceURL: req.URL,
		StoreName: req.StoreName,
	}
	if err := h.producer.Enqueue(r.Context(), queue.StreamCompress, job); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"data": job})
}

// Restore enqueues a manual restore job.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !h.decode(w, r, &req) {
		return
	}

	job := queue.RestoreJob{
		UID:       req.UID,
		ProductID: req.ProductID,
		URL:       req.URL,
		StoreName: req.StoreName,
	}
	if err := h.producer.Enqueue(r.Context(), queue.StreamRestore, job); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"data": job})
}

// ProductCreate ingests a product-created webhook. The store row is created
// on first contact with an unknown shop domain.
func (h *Handler) ProductCreate(w http.ResponseWriter, r *http.Request) {
	shopDomain := r.Header.Get("X-Shopify-Shop-Domain")

	body, ok := h.verifiedBody(w, r)
	if !ok {
		return
	}

	var product webhookProduct
	if err := json.Unmarshal(body, &product); err != nil {
		writeJSONError(w, "malformed product payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.repo.EnsureStore(ctx, shopDomain); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	p := entities.Product{
		ID:        strconv.FormatInt(product.ID, 10),
		StoreName: shopDomain,
		Title:     product.Title,
	}
	if err := h.repo.CreateProduct(ctx, p); err != nil {
		writeJSONError(w, "an error occurred while storing product data", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"data": p})
}

// ProductUpdate ingests a product-updated webhook and upserts every image it
// carries. An alt text of "COMPRESSED", or one carrying a C-flag correlation
// suffix, marks the image as already compressed.
func (h *Handler) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifiedBody(w, r)
	if !ok {
		return
	}

	var product webhookProduct
	if err := json.Unmarshal(body, &product); err != nil {
		writeJSONError(w, "malformed product payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	productID := strconv.FormatInt(product.ID, 10)
	var out []entities.Image

	for _, img := range product.Images {
		status := ingestStatus(img.Alt)

		name := ""
		if u, err := url.Parse(img.Src); err == nil {
			parts := strings.Split(u.Path, "/")
			name = parts[len(parts)-1]
		}

		stored, err := h.repo.UpsertImageByRemoteID(ctx, entities.Image{
			RemoteID:  strconv.FormatInt(img.ID, 10),
			ProductID: productID,
			Name:      name,
			Alt:       img.Alt,
			URL:       img.Src,
			Status:    status,
		})
		if err != nil {
			writeJSONError(w, "an error occurred while updating product data", http.StatusInternalServerError)
			return
		}
		out = append(out, stored)
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// BlobCallback registers an image uploaded straight to the blob surface.
// Such images hang off the sentinel product.
func (h *Handler) BlobCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var cb blobUploadCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		writeJSONError(w, "malformed callback payload", http.StatusBadRequest)
		return
	}

	_, err = h.repo.CreateImage(r.Context(), entities.Image{
		RemoteID:  cb.Data.UUID,
		ProductID: entities.SentinelProductID,
		Name:      cb.Data.OriginalFilename,
		Alt:       cb.Data.OriginalFilename,
		URL:       cb.File,
		Status:    entities.StatusNotCompressed,
	})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"data": "image created!"})
}

// Upload pushes a multipart file to the blob surface and registers it as an
// unattached image.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeMultipartError(w, err)
		return
	}

	file, fh, err := r.FormFile("image")
	if err != nil {
		writeJSONError(w, `missing image file: form field key should be "image"`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mime := mimetype.Detect(data)
	if err := validateMimeType(mime.String()); err != nil {
		writeJSONError(w, fmt.Sprintf("unsupported file type: %s", mime.String()), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	uid, err := h.repo.CreateImage(ctx, entities.Image{
		ProductID: entities.SentinelProductID,
		Name:      fh.Filename,
		Alt:       fh.Filename,
		Status:    entities.StatusNotCompressed,
	})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	key := fmt.Sprintf("uploads/%d", uid)
	if err := h.blob.UploadWithHook(ctx, key, mime.String(), data, nil, nil); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"uid": uid, "key": key}})
}

// Images lists every image record.
func (h *Handler) Images(w http.ResponseWriter, r *http.Request) {
	images, err := h.repo.Images(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": images})
}

func (h *Handler) ImageByUID(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		writeJSONError(w, "invalid uid", http.StatusBadRequest)
		return
	}

	img, err := h.repo.ImageByUID(r.Context(), uid)
	if err != nil {
		writeJSONError(w, "image not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": img})
}

func (h *Handler) ImagesByProduct(w http.ResponseWriter, r *http.Request) {
	images, err := h.repo.ImagesByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": images})
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		writeJSONError(w, "invalid uid", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteImage(r.Context(), uid); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return false
	}
	return true
}

// verifiedBody reads the raw body and checks the webhook signature over it.
func (h *Handler) verifiedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	sig := r.Header.Get("X-Shopify-Hmac-Sha256")
	if !verifyWebhookSignature(body, sig, h.cfg.Shopify.WebhookSecret) {
		writeJSONError(w, "you don't have access", http.StatusForbidden)
		return nil, false
	}
	return body, true
}
