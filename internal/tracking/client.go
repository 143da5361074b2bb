// Package tracking talks to the companion tracking service, which holds the
// transient records the pipeline uses to confirm that an asynchronous stage
// actually completed. Every check-then-delete pair here is independently
// idempotent: absence of a record is a no-op, never an error.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Client struct {
	base  string
	httpc *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{},
	}
}

// RegisterUpload records that uid's compressed bytes are on their way to the
// publish stage. The publish coordinator later probes for this record to
// confirm completion.
func (c *Client) RegisterUpload(ctx context.Context, uid int64, productID, storeName string) error {
	return c.post(ctx, "/image/upload-image", map[string]any{
		"uid":        uid,
		"product_id": productID,
		"store_name": storeName,
	})
}

// RegisterRestore records a restore round trip in flight for uid.
func (c *Client) RegisterRestore(ctx context.Context, uid int64, productID, url, storeName string) error {
	return c.post(ctx, "/image/restore-upload", map[string]any{
		"uid":        uid,
		"product_id": productID,
		"url":        url,
		"store_name": storeName,
	})
}

// FileRename triggers the companion file-rename workflow. The contract is
// idempotent; invoking it again for the same uid has no adverse effect.
func (c *Client) FileRename(ctx context.Context, storeName string, uid int64) error {
	return c.put(ctx, "/rename/file-rename", map[string]any{
		"storeName": storeName,
		"uid":       fmt.Sprintf("%d", uid),
	})
}

// AltRename triggers the companion alt-text rename workflow.
func (c *Client) AltRename(ctx context.Context, storeName string, uid int64) error {
	return c.put(ctx, "/rename/alt-rename", map[string]any{
		"storeName": storeName,
		"uid":       fmt.Sprintf("%d", uid),
	})
}

func (c *Client) ImageExists(ctx context.Context, uid int64) (bool, error) {
	return c.exists(ctx, fmt.Sprintf("/image/%d", uid))
}

func (c *Client) DeleteImage(ctx context.Context, uid int64) error {
	return c.delete(ctx, fmt.Sprintf("/image/%d", uid))
}

func (c *Client) BackupExists(ctx context.Context, uid int64) (bool, error) {
	return c.exists(ctx, fmt.Sprintf("/backup/%d", uid))
}

func (c *Client) DeleteBackup(ctx context.Context, uid int64) error {
	return c.delete(ctx, fmt.Sprintf("/backup/%d", uid))
}

func (c *Client) BackupFilenameExists(ctx context.Context, uid int64) (bool, error) {
	return c.exists(ctx, fmt.Sprintf("/backup/filename/%d", uid))
}

func (c *Client) DeleteBackupFilename(ctx context.Context, uid int64) error {
	return c.delete(ctx, fmt.Sprintf("/backup/filename/%d", uid))
}

func (c *Client) BackupAltNameExists(ctx context.Context, uid int64) (bool, error) {
	return c.exists(ctx, fmt.Sprintf("/backup/altname/%d", uid))
}

func (c *Client) DeleteBackupAltName(ctx context.Context, uid int64) error {
	return c.delete(ctx, fmt.Sprintf("/backup/altname/%d", uid))
}

func (c *Client) exists(ctx context.Context, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPost, path, body)
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPut, path, body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	raw, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
	}
	return nil
}
