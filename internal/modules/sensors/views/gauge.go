package views

import (
	"fmt"
	"html"
	"html/template"
	"math"

	"smartcity-dashboard/internal/modules/sensors/types"
)

// MapZoom is the zoom level the location map is centred at.
const MapZoom = 12

// Gauge is one semicircular dial on the dashboard.
type Gauge struct {
	Key      string
	Label    string
	Unit     string
	Max      float64
	Value    float64
	HasValue bool
	// Percentage is Value/Max clamped to [0, 1].
	Percentage float64
	// Rotation is the fill rotation in turns; a full dial is half a turn.
	Rotation float64
	Text     string
}

type dialDef struct {
	metric types.Metric
	label  string
	unit   string
	max    float64
}

var dials = []dialDef{
	{metric: types.MetricTemperature, label: "Temperature", unit: "°C", max: 50},
	{metric: types.MetricHumidity, label: "Humidity", unit: "%", max: 100},
	{metric: types.MetricCarbon, label: "Carbon", unit: "ppm", max: 1000},
	{metric: types.MetricPredictedCarbon, label: "Predicted Carbon", unit: "ppm", max: 1000},
}

// GaugePercentage clamps value/max into [0, 1].
func GaugePercentage(value, max float64) float64 {
	if max <= 0 || math.IsNaN(value) {
		return 0
	}
	return math.Min(math.Max(value/max, 0), 1)
}

// roundHalfAway matches the browser's toFixed rounding for display values.
func roundHalfAway(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Gauges builds the four dials for sample. A nil sample yields empty dials.
func Gauges(sample *types.Sample) []Gauge {
	out := make([]Gauge, 0, len(dials))
	for _, dial := range dials {
		g := Gauge{
			Key:   string(dial.metric),
			Label: dial.label,
			Unit:  dial.unit,
			Max:   dial.max,
			Text:  "--",
		}
		if sample != nil {
			g.HasValue = true
			g.Value = dial.metric.Value(*sample)
			g.Percentage = GaugePercentage(g.Value, dial.max)
			g.Rotation = g.Percentage / 2
			g.Text = fmt.Sprintf("%.0f%s", roundHalfAway(g.Value, 0), dial.unit)
		}
		out = append(out, g)
	}
	return out
}

// Location is the map marker and the location card.
type Location struct {
	Name      string
	Value     string
	Latitude  float64
	Longitude float64
	HasCoords bool
	Zoom      int
	Popup     template.HTML
}

// NewLocation builds the location card. The marker is only placed once a
// sample has been accepted.
func NewLocation(sample *types.Sample, name, value string) Location {
	loc := Location{Name: name, Value: value, Zoom: MapZoom}
	if loc.Name == "" {
		loc.Name = "Loading..."
	}
	if loc.Value == "" {
		loc.Value = "--, --"
	}
	if sample != nil {
		loc.HasCoords = true
		loc.Latitude = sample.Latitude
		loc.Longitude = sample.Longitude
		loc.Popup = MarkerPopup(sample.LocationName, sample.Temperature)
	}
	return loc
}

// MarkerPopup is the marker's popup body: bold name, then the temperature.
func MarkerPopup(name string, temperature float64) template.HTML {
	return template.HTML(fmt.Sprintf("<b>%s</b><br>Temp: %.1f°C", html.EscapeString(name), roundHalfAway(temperature, 1)))
}
