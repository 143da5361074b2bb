package entities

// SentinelProductID marks an image that is not attached to any real product.
// Such images live on the blob surface instead of the hosted product-image API.
const SentinelProductID = "1"

type ImageStatus string

const (
	StatusNotCompressed ImageStatus = "NOT_COMPRESSED"
	StatusCompressed    ImageStatus = "COMPRESSED"
)

// Image is the internal record of a remote asset. UID is the stable surrogate
// key; RemoteID is whatever id the hosted surface currently assigns and is
// replaced on every delete+create cycle.
type Image struct {
	UID       int64       `json:"uid"`
	RemoteID  string      `json:"remote_id"`
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Alt       string      `json:"alt"`
	URL       string      `json:"url"`
	Status    ImageStatus `json:"status"`
}

type Product struct {
	ID        string `json:"id"`
	StoreName string `json:"store_name"`
	Title     string `json:"title"`
}
