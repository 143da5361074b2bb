package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/imrulkayessifat/photo-optima-backend/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/compress", h.Compress)
		r.Post("/restore", h.Restore)
		r.Post("/upload", h.Upload)

		r.Get("/images", h.Images)
		r.Get("/images/{uid}", h.ImageByUID)
		r.Delete("/images/{uid}", h.DeleteImage)
		r.Get("/products/{id}/images", h.ImagesByProduct)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/product/create", h.ProductCreate)
		r.Post("/product/update", h.ProductUpdate)
		r.Post("/file/upload", h.BlobCallback)
	})

	return r
}
