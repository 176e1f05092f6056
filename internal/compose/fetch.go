package compose

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxMediaSize caps downloaded reference images (20MB).
const maxMediaSize = 20 * 1024 * 1024

// MediaFetcher resolves a buffered media locator back to raw bytes.
type MediaFetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// HTTPFetcher fetches media over plain HTTP. Both Telegram and Discord
// hand out direct download URLs, so one fetcher serves every channel.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", locator, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxMediaSize))
}
