package pagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fetcher retrieves the full HTML document for a page key.
// A non-success response is an error; the body is returned verbatim.
type Fetcher interface {
	Fetch(ctx context.Context, page string) (string, error)
}

// HTTPFetcher issues plain GETs for <base>/<page>. No custom headers, no
// retries; failures are the caller's to log and ignore.
type HTTPFetcher struct {
	Base   string
	Client *http.Client // nil => http.DefaultClient
}

var _ Fetcher = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) Fetch(ctx context.Context, page string) (string, error) {
	url := strings.TrimSuffix(f.Base, "/") + "/" + page
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", page, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
