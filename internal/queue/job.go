package queue

import "github.com/go-playground/validator/v10"

// Stream names. Each stream has exactly one registered handler and its
// messages are consumed strictly in order; the streams themselves run
// concurrently, one consumer goroutine per pipeline stage.
const (
	StreamCompress       = "shopify_to_compressor"
	StreamAutoCompress   = "auto_compression"
	StreamPublish        = "compressor_to_uploader"
	StreamRestore        = "restore_image"
	StreamAutoRestore    = "auto_restore"
	StreamRestoreUpload  = "restore_to_uploader"
	StreamPeriodicUpdate = "periodic_update"
	StreamFileRename     = "auto_file_rename"
	StreamAltRename      = "auto_alt_rename"
)

// CompressJob asks a compression stage to fetch and re-encode one image.
type CompressJob struct {
	UID       int64  `json:"uid" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	SourceURL string `json:"url" validate:"required,url"`
	StoreName string `json:"store_name" validate:"required"`
}

// PublishJob carries the compressed bytes to the publish/backup stage.
// No object-store indirection here: the payload rides in the message.
type PublishJob struct {
	UID             int64  `json:"uid" validate:"required"`
	ProductID       string `json:"product_id" validate:"required"`
	CompressedBytes []byte `json:"compressed_bytes" validate:"required"`
	StoreName       string `json:"store_name" validate:"required"`
}

// RestoreJob asks the restore stage to reinstate a backed-up original.
type RestoreJob struct {
	UID       int64  `json:"uid" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	URL       string `json:"url"`
	StoreName string `json:"store_name" validate:"required"`
}

// RenameJob triggers a companion rename workflow for one image.
type RenameJob struct {
	UID       int64  `json:"uid" validate:"required"`
	StoreName string `json:"store_name" validate:"required"`
}

var validate = validator.New()

// Validate checks a decoded job payload at the queue boundary, before the
// handler sees it. Malformed payloads never reach a pipeline stage.
func Validate(job any) error {
	return validate.Struct(job)
}
