// Package policy resolves the JPEG quality used when re-encoding an image.
package policy

import "github.com/imrulkayessifat/photo-optima-backend/internal/entities"

const (
	balancedQuality     = 80
	conservativeQuality = 65
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47}
var jpegSignature = []byte{0xFF, 0xD8, 0xFF}

// Quality maps the store's compression settings and the first bytes of the
// source image to a quality percentage. Pure and total: unknown signatures
// and short headers fall through to the store's "others" override.
func Quality(store entities.Store, header []byte) int {
	switch store.CompressionType {
	case entities.CompressionBalanced:
		return balancedQuality
	case entities.CompressionConservative:
		return conservativeQuality
	}

	switch {
	case hasPrefix(header, pngSignature):
		return store.PNGQuality
	case hasPrefix(header, jpegSignature):
		return store.JPEGQuality
	default:
		return store.OthersQuality
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
