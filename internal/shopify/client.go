// Package shopify is the client for the hosted product-image surface and the
// recurring-charge billing surface. The hosted surface has no in-place image
// update: every replace is a delete followed by a create, and the created
// asset comes back with a brand-new remote id.
package shopify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/imrulkayessifat/photo-optima-backend/internal/cache"
	"github.com/imrulkayessifat/photo-optima-backend/internal/config"
)

const apiVersion = "2024-01"

// token cache TTL in seconds; client-credential tokens are good for longer,
// this just bounds staleness.
const tokenTTL = 600

// ErrExternalAPI wraps every non-2xx answer from the remote surface.
var ErrExternalAPI = errors.New("external API error")

type Client struct {
	httpc        *http.Client
	domain       string
	clientID     string
	clientSecret string
	tokens       *cache.Cache
}

func NewClient(cfg *config.ShopifyConfig, tokens *cache.Cache) *Client {
	return &Client{
		httpc:        &http.Client{},
		domain:       cfg.StoreDomain,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokens:       tokens,
	}
}

// RemoteImage is the hosted surface's view of a product image.
type RemoteImage struct {
	ID  json.Number `json:"id"`
	Src string      `json:"src"`
	Alt string      `json:"alt"`
}

// NewImage is the payload for creating a product image. Attachment is sent
// base64-encoded in the request body.
type NewImage struct {
	Alt        string
	ProductID  string
	Attachment []byte
}

// AccessToken performs the client-credentials exchange, going to the remote
// only on a cache miss.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		if v, err := c.tokens.Get(ctx, c.domain); err == nil {
			if s, ok := v.(string); ok && s != "" {
				return s, nil
			}
		}
	}

	body, _ := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "client_credentials",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("https://%s/admin/oauth/access_token", c.domain), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token exchange returned %d", ErrExternalAPI, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	if c.tokens != nil {
		_ = c.tokens.Store(ctx, c.domain, tokenTTL, out.AccessToken)
	}
	return out.AccessToken, nil
}

// GetProductImage fetches the current remote asset, src URL included.
func (c *Client) GetProductImage(ctx context.Context, productID, imageID string) (RemoteImage, error) {
	var out struct {
		Image RemoteImage `json:"image"`
	}
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/products/%s/images/%s.json", productID, imageID), nil, &out)
	return out.Image, err
}

// DeleteProductImage removes the current remote asset. Callers must treat a
// failure here as a hard stop: no backup may be written for an image that was
// never deleted.
func (c *Client) DeleteProductImage(ctx context.Context, productID, imageID string) error {
	return c.do(ctx, http.MethodDelete,
		fmt.Sprintf("/products/%s/images/%s.json", productID, imageID), nil, nil)
}

// CreateProductImage uploads a replacement asset and returns the remote id
// the surface assigned to it.
func (c *Client) CreateProductImage(ctx context.Context, img NewImage) (RemoteImage, error) {
	payload := map[string]any{
		"image": map[string]any{
			"alt":        img.Alt,
			"product_id": img.ProductID,
			"attachment": base64.StdEncoding.EncodeToString(img.Attachment),
		},
	}
	body, _ := json.Marshal(payload)

	var out struct {
		Image RemoteImage `json:"image"`
	}
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/products/%s/images.json", img.ProductID), body, &out)
	return out.Image, err
}

// CancelRecurringCharge deletes a recurring application charge. Used as the
// compensating billing action when a store blows through its quota ceiling.
func (c *Client) CancelRecurringCharge(ctx context.Context, chargeID string) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://%s/admin/api/2024-04/recurring_application_charges/%s.json", c.domain, chargeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("cancel charge %s: %w", chargeID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: cancel charge %s returned %d", ErrExternalAPI, chargeID, resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://%s/admin/api/%s%s", c.domain, apiVersion, path)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned %d", ErrExternalAPI, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}
