package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Run("valid compress job", func(t *testing.T) {
		assert.NoError(t, Validate(CompressJob{
			UID:       10,
			ProductID: "55",
			SourceURL: "https://cdn.example/shoe.jpg",
			StoreName: "shop.example",
		}))
	})

	t.Run("missing store name", func(t *testing.T) {
		assert.Error(t, Validate(CompressJob{
			UID:       10,
			ProductID: "55",
			SourceURL: "https://cdn.example/shoe.jpg",
		}))
	})

	t.Run("bad url", func(t *testing.T) {
		assert.Error(t, Validate(CompressJob{
			UID:       10,
			ProductID: "55",
			SourceURL: "not a url",
			StoreName: "shop.example",
		}))
	})

	t.Run("publish job needs payload", func(t *testing.T) {
		assert.Error(t, Validate(PublishJob{
			UID:       10,
			ProductID: "55",
			StoreName: "shop.example",
		}))
		assert.NoError(t, Validate(PublishJob{
			UID:             10,
			ProductID:       "55",
			CompressedBytes: []byte{0xFF, 0xD8, 0xFF},
			StoreName:       "shop.example",
		}))
	})

	t.Run("restore job url is optional", func(t *testing.T) {
		assert.NoError(t, Validate(RestoreJob{
			UID:       3,
			ProductID: "1",
			StoreName: "shop.example",
		}))
	})

	t.Run("rename job", func(t *testing.T) {
		assert.NoError(t, Validate(RenameJob{UID: 3, StoreName: "shop.example"}))
		assert.Error(t, Validate(RenameJob{StoreName: "shop.example"}))
	})
}
