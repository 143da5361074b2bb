package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

func standardStore() entities.Store {
	return entities.Store{
		CompressionType: entities.CompressionStandard,
		PNGQuality:      90,
		JPEGQuality:     70,
		OthersQuality:   50,
	}
}

func TestQuality(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	gif := []byte("GIF89a")

	t.Run("balanced ignores format", func(t *testing.T) {
		store := standardStore()
		store.CompressionType = entities.CompressionBalanced
		assert.Equal(t, 80, Quality(store, png))
		assert.Equal(t, 80, Quality(store, jpeg))
		assert.Equal(t, 80, Quality(store, gif))
	})

	t.Run("conservative ignores format", func(t *testing.T) {
		store := standardStore()
		store.CompressionType = entities.CompressionConservative
		assert.Equal(t, 65, Quality(store, png))
		assert.Equal(t, 65, Quality(store, nil))
	})

	t.Run("standard sniffs signature", func(t *testing.T) {
		store := standardStore()
		assert.Equal(t, 90, Quality(store, png))
		assert.Equal(t, 70, Quality(store, jpeg))
		assert.Equal(t, 50, Quality(store, gif))
	})

	t.Run("total on short or empty headers", func(t *testing.T) {
		store := standardStore()
		assert.Equal(t, 50, Quality(store, nil))
		assert.Equal(t, 50, Quality(store, []byte{0x89}))
		assert.Equal(t, 50, Quality(store, []byte{0xFF, 0xD8}))
	})
}
