package types

import (
	"strings"
	"time"
)

// Metric selects which Sample reading a chart plots.
type Metric string

const (
	MetricTemperature     Metric = "temperature"
	MetricHumidity        Metric = "humidity"
	MetricCarbon          Metric = "carbon"
	MetricPredictedCarbon Metric = "predictedCarbon"
)

const DefaultMetric = MetricTemperature

// Metrics lists every chartable metric in selector order.
var Metrics = []Metric{MetricTemperature, MetricHumidity, MetricCarbon, MetricPredictedCarbon}

var metricLabels = map[Metric]string{
	MetricTemperature:     "Temperature (°C)",
	MetricHumidity:        "Humidity (%)",
	MetricCarbon:          "Carbon (ppm)",
	MetricPredictedCarbon: "Predicted Carbon (ppm)",
}

// ParseMetric resolves a query value. Empty input yields the default metric.
func ParseMetric(s string) (Metric, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMetric, true
	}
	m := Metric(s)
	if _, ok := metricLabels[m]; !ok {
		return DefaultMetric, false
	}
	return m, true
}

// Label is the human readable dataset name.
func (m Metric) Label() string {
	return metricLabels[m]
}

// Value extracts the reading for m from s.
func (m Metric) Value(s Sample) float64 {
	switch m {
	case MetricHumidity:
		return s.Humidity
	case MetricCarbon:
		return s.Carbon
	case MetricPredictedCarbon:
		return s.PredictedCarbon
	default:
		return s.Temperature
	}
}

// TimeRange bounds the history window plotted on the chart.
type TimeRange string

const (
	RangeAll     TimeRange = "all"
	RangeLast24h TimeRange = "24h"
	RangeLast7d  TimeRange = "7d"
)

const DefaultTimeRange = RangeAll

// TimeRanges lists every range in selector order.
var TimeRanges = []TimeRange{RangeAll, RangeLast24h, RangeLast7d}

var rangeLabels = map[TimeRange]string{
	RangeAll:     "All data",
	RangeLast24h: "Last 24 hours",
	RangeLast7d:  "Last 7 days",
}

// ParseTimeRange resolves a query value. Empty input yields RangeAll.
func ParseTimeRange(s string) (TimeRange, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeRange, true
	}
	r := TimeRange(s)
	if _, ok := rangeLabels[r]; !ok {
		return DefaultTimeRange, false
	}
	return r, true
}

func (r TimeRange) Label() string {
	return rangeLabels[r]
}

// Window returns the lookback duration; zero means unbounded.
func (r TimeRange) Window() time.Duration {
	switch r {
	case RangeLast24h:
		return 24 * time.Hour
	case RangeLast7d:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const DefaultTheme = ThemeLight

// ParseTheme resolves a stored or requested theme. Empty input yields the default.
func ParseTheme(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultTheme, true
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	default:
		return DefaultTheme, false
	}
}

// Toggle flips between light and dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
