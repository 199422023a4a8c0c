// Package geocode resolves coordinates into a display name.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"smartcity-dashboard/internal/modules/sensors/types"
)

// UnknownLocation is returned when the geocoder answers without a usable address.
const UnknownLocation = "Unknown Location"

// Geocoder maps coordinates to a human readable name.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Nominatim is a reverse geocoder for the OpenStreetMap Nominatim API.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	Address *struct {
		Road    string `json:"road"`
		Village string `json:"village"`
		Town    string `json:"town"`
		City    string `json:"city"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Reverse looks up lat/lng. A response with no address yields UnknownLocation.
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: geocoder returned %d: %s", types.ErrNetworkFailure, resp.StatusCode, string(body))
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding geocoder response: %w", err)
	}
	if out.Address == nil {
		return UnknownLocation, nil
	}

	a := out.Address
	locality := firstNonEmpty(a.Village, a.Town, a.City)
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Road, locality, a.State, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return UnknownLocation, nil
	}
	return strings.Join(parts, ", "), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Fallback is the coordinate label used when reverse lookup fails.
func Fallback(lat, lng float64) string {
	return fmt.Sprintf("Location coordinates: %.4f, %.4f", lat, lng)
}

// Resolve never fails: any geocoder error degrades to Fallback.
func Resolve(ctx context.Context, g Geocoder, lat, lng float64) string {
	if g == nil {
		return Fallback(lat, lng)
	}
	name, err := g.Reverse(ctx, lat, lng)
	if err != nil {
		return Fallback(lat, lng)
	}
	return name
}

// Cached remembers the last successful lookup so a stationary sensor does not
// hit the geocoder on every poll.
type Cached struct {
	next Geocoder

	mu       sync.Mutex
	valid    bool
	lat, lng float64
	name     string
}

func NewCached(next Geocoder) *Cached {
	return &Cached{next: next}
}

func (c *Cached) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	c.mu.Lock()
	if c.valid && c.lat == lat && c.lng == lng {
		name := c.name
		c.mu.Unlock()
		return name, nil
	}
	c.mu.Unlock()

	name, err := c.next.Reverse(ctx, lat, lng)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.valid, c.lat, c.lng, c.name = true, lat, lng, name
	c.mu.Unlock()
	return name, nil
}
