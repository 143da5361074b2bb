package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Transcoder decodes PNG, JPEG or WebP input and always emits JPEG. Output
// format normalization is deliberate: downstream naming and backup logic deal
// with a single format regardless of what the source was.
type Transcoder struct{}

// ToJPEG re-encodes data as JPEG at the given quality percentage.
func (Transcoder) ToJPEG(data []byte, quality int) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail resizes to fit within width x height and encodes as JPEG.
// Used by the periodic refresh queue.
func (Transcoder) Thumbnail(data []byte, width, height, quality int) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// decode picks the codec by signature instead of trusting any declared type.
func decode(data []byte) (image.Image, error) {
	r := bytes.NewReader(data)

	switch {
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}):
		return png.Decode(r)
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return jpeg.Decode(r)
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return webp.Decode(r)
	default:
		img, _, err := image.Decode(r)
		return img, err
	}
}
