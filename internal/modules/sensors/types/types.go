package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNetworkFailure covers transport errors and non-2xx responses from the
	// sensor feed or the geocoder.
	ErrNetworkFailure = errors.New("network failure")
	// ErrMalformedRecord is returned when a feed record is missing expected fields.
	ErrMalformedRecord = errors.New("malformed record")
)

// PredictedCarbonFactor is applied to the measured carbon reading to derive
// the predicted value shown next to it.
const PredictedCarbonFactor = 1.05

// Sample is one polled reading plus derived and resolved fields.
type Sample struct {
	Timestamp       time.Time `json:"timestamp"`
	Temperature     float64   `json:"temperature"`
	Humidity        float64   `json:"humidity"`
	Carbon          float64   `json:"carbon"`
	PredictedCarbon float64   `json:"predictedCarbon"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	LocationName    string    `json:"locationName"`
}

// RawRecord is the payload served by the sensor feed.
type RawRecord struct {
	Location    string    `json:"location"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Carbon      *float64  `json:"carbon"`
	Timestamp   Timestamp `json:"timestamp"`
}

// Coordinates parses the comma-joined "lat,lng" location string.
func (r RawRecord) Coordinates() (lat, lng float64, err error) {
	parts := strings.Split(r.Location, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: location %q (expected \"lat,lng\")", ErrMalformedRecord, r.Location)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrMalformedRecord, parts[0])
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrMalformedRecord, parts[1])
	}
	return lat, lng, nil
}

// Validate reports the first missing or unusable field.
func (r RawRecord) Validate() error {
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrMalformedRecord)
	}
	if _, _, err := r.Coordinates(); err != nil {
		return err
	}
	if r.Temperature == nil {
		return fmt.Errorf("%w: temperature is required", ErrMalformedRecord)
	}
	if r.Humidity == nil {
		return fmt.Errorf("%w: humidity is required", ErrMalformedRecord)
	}
	if r.Carbon == nil {
		return fmt.Errorf("%w: carbon is required", ErrMalformedRecord)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrMalformedRecord)
	}
	return nil
}

// Timestamp accepts epoch milliseconds (number or numeric string) and
// ISO-8601 strings.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("timestamp %s: %w", s, err)
		}
		return t.parseString(strings.TrimSpace(unq))
	}
	return t.parseMillis(s)
}

func (t *Timestamp) parseString(s string) error {
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	if err := t.parseMillis(s); err == nil {
		return nil
	}
	return fmt.Errorf("timestamp %q: unsupported format", s)
}

func (t *Timestamp) parseMillis(s string) error {
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = time.UnixMicro(int64(ms * 1000)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}
