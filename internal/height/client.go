package height

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultFetchTimeout bounds a single status request made by the quorum
	// reader or the monitor
	DefaultFetchTimeout = 5 * time.Second

	// StatusPath is appended to the endpoint URL
	StatusPath = "/status"

	// HeightPath locates the height inside the status body
	HeightPath = "result.sync_info.latest_block_height"

	maxStatusBody = 1 << 20
)

// StatusClient reads the latest block height from a Tendermint style
// GET <url>/status endpoint.
//
// The request is bounded only by the caller's context.
type StatusClient struct {
	url    string
	client *http.Client
}

// NewStatusClient creates a client for one endpoint
func NewStatusClient(url string) *StatusClient {
	return &StatusClient{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{},
	}
}

// Endpoint returns the endpoint URL
func (c *StatusClient) Endpoint() string {
	return c.url
}

// GetHeight fetches and parses the status document
func (c *StatusClient) GetHeight(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+StatusPath, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	return ParseStatusHeight(body)
}

// ParseStatusHeight extracts result.sync_info.latest_block_height. The field
// is a decimal string in Tendermint responses; a bare JSON integer is also accepted.
func ParseStatusHeight(body []byte) (int64, error) {
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("malformed status response")
	}

	value := gjson.GetBytes(body, HeightPath)
	if !value.Exists() {
		return 0, fmt.Errorf("status response has no %s", HeightPath)
	}

	var raw string
	switch value.Type {
	case gjson.String:
		raw = strings.TrimSpace(value.Str)
	case gjson.Number:
		raw = value.Raw
	default:
		return 0, fmt.Errorf("unexpected %s value: %s", HeightPath, value.Raw)
	}

	height, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block height %q: %w", raw, err)
	}
	if height < 0 {
		return 0, fmt.Errorf("negative block height %d", height)
	}

	return height, nil
}
