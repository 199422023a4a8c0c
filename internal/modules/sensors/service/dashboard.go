// Package service owns the dashboard state and the polling loop that feeds it.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartcity-dashboard/internal/modules/sensors/chart"
	"smartcity-dashboard/internal/modules/sensors/geocode"
	"smartcity-dashboard/internal/modules/sensors/history"
	"smartcity-dashboard/internal/modules/sensors/types"
)

const (
	ErrorLocationName  = "Error loading location data"
	ErrorLocationValue = "--, --"

	lastUpdatedLayout = "3:04:05 PM"
)

// State is what the dashboard page currently shows outside the chart.
type State struct {
	Sample        *types.Sample `json:"sample"`
	LocationName  string        `json:"locationName"`
	LocationValue string        `json:"locationValue"`
	LastUpdated   string        `json:"lastUpdated"`
	Error         string        `json:"error,omitempty"`
}

// Dashboard owns the sample history and the visible state derived from it.
type Dashboard struct {
	store *history.Store
	now   func() time.Time

	mu    sync.RWMutex
	state State
}

func NewDashboard(store *history.Store) *Dashboard {
	return NewDashboardWithClock(store, time.Now)
}

func NewDashboardWithClock(store *history.Store, now func() time.Time) *Dashboard {
	return &Dashboard{store: store, now: now}
}

// Accept records sample and refreshes the visible state.
func (d *Dashboard) Accept(sample types.Sample) State {
	d.store.Append(sample)

	d.mu.Lock()
	defer d.mu.Unlock()
	s := sample
	d.state = State{
		Sample:        &s,
		LocationName:  sample.LocationName,
		LocationValue: FormatCoordinates(sample.Latitude, sample.Longitude),
		LastUpdated:   d.now().Format(lastUpdatedLayout),
	}
	return d.copyState()
}

// Fail switches the location fields to their placeholder text. Gauges, the
// last-updated clock and the history keep their previous values.
func (d *Dashboard) Fail(err error) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.LocationName = ErrorLocationName
	d.state.LocationValue = ErrorLocationValue
	d.state.Error = err.Error()
	return d.copyState()
}

func (d *Dashboard) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.copyState()
}

func (d *Dashboard) copyState() State {
	out := d.state
	if out.Sample != nil {
		s := *out.Sample
		out.Sample = &s
	}
	return out
}

// History returns the stored samples, oldest first.
func (d *Dashboard) History() []types.Sample {
	return d.store.All()
}

// Chart projects the current history for the given selection.
func (d *Dashboard) Chart(timeRange types.TimeRange, metric types.Metric, theme types.Theme) chart.View {
	return chart.Project(d.store.All(), timeRange, metric, theme, d.now())
}

// FormatCoordinates renders lat/lng with four decimals.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lng)
}

// BuildSample turns a validated feed record into a Sample, resolving its
// location through g. Geocoding failures fall back to the coordinate label.
func BuildSample(ctx context.Context, rec types.RawRecord, g geocode.Geocoder) (types.Sample, error) {
	lat, lng, err := rec.Coordinates()
	if err != nil {
		return types.Sample{}, err
	}
	if err := rec.Validate(); err != nil {
		return types.Sample{}, err
	}
	carbon := *rec.Carbon
	return types.Sample{
		Timestamp:       rec.Timestamp.Time,
		Temperature:     *rec.Temperature,
		Humidity:        *rec.Humidity,
		Carbon:          carbon,
		PredictedCarbon: carbon * types.PredictedCarbonFactor,
		Latitude:        lat,
		Longitude:       lng,
		LocationName:    geocode.Resolve(ctx, g, lat, lng),
	}, nil
}
