// Package feed reads the latest record from the remote sensor endpoint.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartcity-dashboard/internal/modules/sensors/types"
)

// Fetcher abstracts the sensor feed for testability.
type Fetcher interface {
	Fetch(ctx context.Context) (types.RawRecord, error)
}

// Client implements Fetcher over plain HTTP GET.
type Client struct {
	url    string
	client *http.Client
}

// NewClient returns a Client for url. Each request is bounded by timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and validates one record. Transport errors and non-2xx
// statuses wrap types.ErrNetworkFailure; undecodable or incomplete payloads
// wrap types.ErrMalformedRecord.
func (c *Client) Fetch(ctx context.Context) (types.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return types.RawRecord{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.RawRecord{}, fmt.Errorf("%w: %v", types.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.RawRecord{}, fmt.Errorf("%w: feed returned %d: %s", types.ErrNetworkFailure, resp.StatusCode, string(body))
	}

	var rec types.RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return types.RawRecord{}, fmt.Errorf("%w: decoding feed: %v", types.ErrMalformedRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return types.RawRecord{}, err
	}
	return rec, nil
}
