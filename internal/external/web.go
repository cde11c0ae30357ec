package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tubepost/internal/types"
)

// maxPageSize bounds how much of a YouTube web page is read.
const maxPageSize = 4 << 20

// WebClient fetches public YouTube HTML pages without authentication.
type WebClient struct {
	base    *BaseClient
	baseURL string
}

// NewWebClient creates a WebClient presenting userAgent, with its own
// circuit breaker.
func NewWebClient(httpClient *http.Client, baseURL, userAgent string) *WebClient {
	return &WebClient{
		base:    NewBaseClient(httpClient, "youtube-web", userAgent),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Fetch GETs path with query and returns the body. 404 maps to
// not_found_video; any other non-2xx to upstream_unavailable.
func (c *WebClient) Fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build page request", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.NewAppError(types.ErrCodeNotFoundVideo, "Video not found", nil)
	case resp.StatusCode >= 300:
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("youtube page returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "failed to read youtube page", err)
	}
	return body, nil
}
