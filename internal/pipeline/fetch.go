package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTransientIO marks a network or decode failure on the source side.
// Under the at-most-once delivery policy such a job is logged and dropped,
// not retried.
var ErrTransientIO = errors.New("transient IO error")

// HTTPFetcher downloads source bytes. No timeout on purpose: a stalled
// download blocks only the owning stream's throughput.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for %s: %v", ErrTransientIO, url, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrTransientIO, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching %s returned %d", ErrTransientIO, url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrTransientIO, url, err)
	}
	return data, nil
}
