package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"smartcity-dashboard/internal/modules/sensors/types"
)

const maxThemeBodyBytes = 1 << 10

// chartQuery is the selection shared by the chart JSON and image endpoints.
type chartQuery struct {
	Range  types.TimeRange
	Metric types.Metric
	Theme  types.Theme
}

func (q chartQuery) values() url.Values {
	return url.Values{
		"metric": {string(q.Metric)},
		"range":  {string(q.Range)},
		"theme":  {string(q.Theme)},
	}
}

// parseChartQuery reads range, metric and theme. An omitted theme resolves to
// the stored preference; unknown values are rejected.
func (c *sensorsControllerImpl) parseChartQuery(r *http.Request) (chartQuery, error) {
	q := r.URL.Query()

	timeRange, ok := types.ParseTimeRange(q.Get("range"))
	if !ok {
		return chartQuery{}, fmt.Errorf("invalid 'range' %q (allowed: all, 24h, 7d)", q.Get("range"))
	}
	metric, ok := types.ParseMetric(q.Get("metric"))
	if !ok {
		return chartQuery{}, fmt.Errorf("invalid 'metric' %q (allowed: temperature, humidity, carbon, predictedCarbon)", q.Get("metric"))
	}

	var theme types.Theme
	if q.Get("theme") == "" {
		theme = c.storedTheme(r.Context())
	} else if theme, ok = types.ParseTheme(q.Get("theme")); !ok {
		return chartQuery{}, fmt.Errorf("invalid 'theme' %q (allowed: light, dark)", q.Get("theme"))
	}

	return chartQuery{Range: timeRange, Metric: metric, Theme: theme}, nil
}

// pageQuery is the lenient variant used by the HTML page: unknown values
// fall back to defaults instead of failing the page.
func (c *sensorsControllerImpl) pageQuery(r *http.Request) chartQuery {
	q := r.URL.Query()
	timeRange, ok := types.ParseTimeRange(q.Get("range"))
	if !ok {
		slog.Warn("dashboard: invalid range", "range", q.Get("range"))
	}
	metric, ok := types.ParseMetric(q.Get("metric"))
	if !ok {
		slog.Warn("dashboard: invalid metric", "metric", q.Get("metric"))
	}
	return chartQuery{Range: timeRange, Metric: metric, Theme: c.storedTheme(r.Context())}
}

func (c *sensorsControllerImpl) storedTheme(ctx context.Context) types.Theme {
	theme, err := c.repository.GetTheme(ctx)
	if err != nil {
		slog.Error("load theme preference failed", "error", err)
		return types.DefaultTheme
	}
	return theme
}
