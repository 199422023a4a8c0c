// Package chart turns the sample history into a drawable series and renders it.
package chart

import (
	"time"

	"smartcity-dashboard/internal/modules/sensors/types"
)

// MaxPoints bounds the number of points handed to a renderer.
const MaxPoints = 50

// Point is one plotted (timestamp, value) pair.
type Point struct {
	Timestamp time.Time `json:"t"`
	Value     float64   `json:"v"`
}

// TimeUnit is the x-axis bucket granularity.
type TimeUnit string

const (
	UnitHour TimeUnit = "hour"
	UnitDay  TimeUnit = "day"
)

// Axis describes how the time axis is bucketed and labelled.
// DisplayFormat is the browser-side token format, Layout its Go equivalent.
type Axis struct {
	Unit          TimeUnit `json:"unit"`
	DisplayFormat string   `json:"displayFormat"`
	Layout        string   `json:"-"`
}

// Palette holds the theme-dependent chart chrome colours as CSS values.
type Palette struct {
	Grid              string `json:"grid"`
	Font              string `json:"font"`
	TooltipBackground string `json:"tooltipBackground"`
	TooltipBorder     string `json:"tooltipBorder"`
}

// View is a presentation-ready projection of the history.
type View struct {
	Range   types.TimeRange `json:"range"`
	Metric  types.Metric    `json:"metric"`
	Theme   types.Theme     `json:"theme"`
	Label   string          `json:"label"`
	Points  []Point         `json:"points"`
	Axis    Axis            `json:"axis"`
	Palette Palette         `json:"palette"`
}

// Empty reports whether there is nothing to draw.
func (v View) Empty() bool {
	return len(v.Points) == 0
}

var (
	hourAxis = Axis{Unit: UnitHour, DisplayFormat: "HH:mm", Layout: "15:04"}
	dayAxis  = Axis{Unit: UnitDay, DisplayFormat: "MMM d", Layout: "Jan 2"}
)

var palettes = map[types.Theme]Palette{
	types.ThemeLight: {
		Grid:              "rgba(0, 0, 0, 0.1)",
		Font:              "#1f2937",
		TooltipBackground: "#ffffff",
		TooltipBorder:     "rgba(0, 0, 0, 0.1)",
	},
	types.ThemeDark: {
		Grid:              "rgba(255, 255, 255, 0.1)",
		Font:              "#f9fafb",
		TooltipBackground: "#1f2937",
		TooltipBorder:     "rgba(255, 255, 255, 0.1)",
	},
}

// Project filters samples to timeRange relative to now, decimates the result
// to at most MaxPoints, and maps it to metric values with theme styling.
// It has no hidden state: equal arguments always yield equal views.
func Project(samples []types.Sample, timeRange types.TimeRange, metric types.Metric, theme types.Theme, now time.Time) View {
	filtered := filterRange(samples, timeRange, now)
	kept := decimate(filtered)

	points := make([]Point, 0, len(kept))
	for _, s := range kept {
		points = append(points, Point{Timestamp: s.Timestamp, Value: metric.Value(s)})
	}

	return View{
		Range:   timeRange,
		Metric:  metric,
		Theme:   theme,
		Label:   metric.Label(),
		Points:  points,
		Axis:    AxisFor(timeRange),
		Palette: PaletteFor(theme),
	}
}

// filterRange keeps samples strictly newer than now-window. A sample sitting
// exactly on the boundary is dropped.
func filterRange(samples []types.Sample, timeRange types.TimeRange, now time.Time) []types.Sample {
	window := timeRange.Window()
	if window == 0 {
		return samples
	}
	cutoff := now.Add(-window)
	out := make([]types.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// decimate subsamples by a fixed stride of n/MaxPoints (positions 0, step,
// 2*step, ...) and caps the result at MaxPoints. No averaging.
func decimate(samples []types.Sample) []types.Sample {
	n := len(samples)
	if n <= MaxPoints {
		return samples
	}
	step := n / MaxPoints
	out := make([]types.Sample, 0, MaxPoints)
	for i := 0; i < n && len(out) < MaxPoints; i += step {
		out = append(out, samples[i])
	}
	return out
}

// AxisFor picks hourly buckets for the 24h window and daily ones otherwise.
func AxisFor(timeRange types.TimeRange) Axis {
	if timeRange == types.RangeLast24h {
		return hourAxis
	}
	return dayAxis
}

func PaletteFor(theme types.Theme) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[types.DefaultTheme]
}
