package handler

// CompressRequest triggers a manual compression for one image.
type CompressRequest struct {
	UID       int64  `json:"uid" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	URL       string `json:"url" validate:"required,url"`
	StoreName string `json:"store_name" validate:"required"`
}

// RestoreRequest triggers a manual restore for one image.
type RestoreRequest struct {
	UID       int64  `json:"uid" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	URL       string `json:"url"`
	StoreName string `json:"store_name" validate:"required"`
}

// webhookProduct is the inbound product payload shape.
type webhookProduct struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Images []struct {
		ID  int64  `json:"id"`
		Src string `json:"src"`
		Alt string `json:"alt"`
	} `json:"images"`
}

// blobUploadCallback is the payload the blob surface posts after a direct
// file upload.
type blobUploadCallback struct {
	File string `json:"file"`
	Data struct {
		UUID             string `json:"uuid"`
		OriginalFilename string `json:"original_filename"`
	} `json:"data"`
}
