package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// BasicHTTPClient is a thin wrapper around net/http for the handful of
// GET-JSON calls the beacon blob-sidecar API needs; it does not attempt
// retries or connection pooling tuning beyond what net/http gives for free.
type BasicHTTPClient struct {
	base   string
	logger log.Logger
	inner  *http.Client
}

func NewBasicHTTPClient(base string, logger log.Logger) *BasicHTTPClient {
	return &BasicHTTPClient{base: strings.TrimSuffix(base, "/"), logger: logger, inner: http.DefaultClient}
}

// Get issues a GET request against base+p (p must begin with "/") with
// the given query values, and decodes the JSON response body into out.
func (c *BasicHTTPClient) Get(ctx context.Context, p string, query url.Values, out interface{}) error {
	u := c.base + path.Clean("/"+p)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.inner.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, u, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
