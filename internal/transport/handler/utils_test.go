package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imrulkayessifat/photo-optima-backend/internal/entities"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"id":55,"images":[]}`)
	secret := "shhh"

	assert.True(t, verifyWebhookSignature(body, sign(body, secret), secret))
	assert.False(t, verifyWebhookSignature(body, sign(body, "other"), secret))
	assert.False(t, verifyWebhookSignature([]byte(`tampered`), sign(body, secret), secret))
	assert.False(t, verifyWebhookSignature(body, "", secret))
	assert.False(t, verifyWebhookSignature(body, "not-base64-hmac", secret))
}

func TestIngestStatus(t *testing.T) {
	// Literal marker and C-flag correlation suffix both mean compressed.
	assert.Equal(t, entities.StatusCompressed, ingestStatus("COMPRESSED"))
	assert.Equal(t, entities.StatusCompressed, ingestStatus("shoe-482C.jpg"))

	assert.Equal(t, entities.StatusNotCompressed, ingestStatus("shoe-482N.jpg"))
	assert.Equal(t, entities.StatusNotCompressed, ingestStatus("red shoe"))
	assert.Equal(t, entities.StatusNotCompressed, ingestStatus(""))
}

func TestValidateMimeType(t *testing.T) {
	assert.NoError(t, validateMimeType("image/png"))
	assert.NoError(t, validateMimeType("image/jpeg"))
	assert.NoError(t, validateMimeType("image/webp"))
	assert.Error(t, validateMimeType("image/gif"))
	assert.Error(t, validateMimeType("application/pdf"))
}
