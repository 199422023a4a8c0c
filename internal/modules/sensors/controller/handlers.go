package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"smartcity-dashboard/internal/modules/sensors/chart"
	"smartcity-dashboard/internal/modules/sensors/types"
	"smartcity-dashboard/internal/modules/sensors/views"
	"smartcity-dashboard/internal/utils"
)

// ThemeUpdate is pushed to live clients when the preference changes.
type ThemeUpdate struct {
	Type  string      `json:"type"`
	Theme types.Theme `json:"theme"`
}

type themeBody struct {
	Theme types.Theme `json:"theme"`
}

func (c *sensorsControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	q := c.pageQuery(r)
	state := c.dashboard.State()

	data := views.DashboardData{
		Theme:    q.Theme,
		Status:   views.NewStatus(state.Sample, state.LocationName, state.LocationValue, state.LastUpdated, state.Error),
		Metrics:  views.MetricOptions(q.Metric),
		Ranges:   views.RangeOptions(q.Range),
		ChartURL: "/charts/analytics.svg?" + q.values().Encode(),
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, &data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}

func (c *sensorsControllerImpl) handleStatusPartial(w http.ResponseWriter, r *http.Request) {
	state := c.dashboard.State()
	status := views.NewStatus(state.Sample, state.LocationName, state.LocationValue, state.LastUpdated, state.Error)

	var buf bytes.Buffer
	if err := views.RenderStatusPartial(&buf, &status); err != nil {
		slog.Error("status partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("status partial: write response failed", "error", err)
	}
}

func (c *sensorsControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.dashboard.State())
}

func (c *sensorsControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.dashboard.History())
}

func (c *sensorsControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	q, err := c.parseChartQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.dashboard.Chart(q.Range, q.Metric, q.Theme))
}

func (c *sensorsControllerImpl) handleChartImage(format chart.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := c.parseChartQuery(r)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		view := c.dashboard.Chart(q.Range, q.Metric, q.Theme)

		var buf bytes.Buffer
		err = c.renderer.Render(&buf, view, format)
		if errors.Is(err, chart.ErrEmptySeries) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			slog.Error("chart render failed", "format", format, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(buf.Bytes()); err != nil {
			slog.Error("chart: write response failed", "error", err)
		}
	}
}

func (c *sensorsControllerImpl) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := c.repository.GetTheme(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, themeBody{Theme: theme})
}

func (c *sensorsControllerImpl) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := utils.DecodeJSON(w, r, maxThemeBodyBytes, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	theme, ok := types.ParseTheme(string(body.Theme))
	if !ok || strings.TrimSpace(string(body.Theme)) == "" {
		utils.WriteError(w, http.StatusBadRequest, "invalid 'theme' (allowed: light, dark)")
		return
	}
	c.saveTheme(w, r, theme)
}

func (c *sensorsControllerImpl) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	current, err := c.repository.GetTheme(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	c.saveTheme(w, r, current.Toggle())
}

func (c *sensorsControllerImpl) saveTheme(w http.ResponseWriter, r *http.Request, theme types.Theme) {
	if err := c.repository.SetTheme(r.Context(), theme); err != nil {
		slog.Error("save theme failed", "theme", theme, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to save theme")
		return
	}
	slog.Info("theme changed", "theme", theme)
	if c.live != nil {
		c.live.Broadcast(ThemeUpdate{Type: "theme", Theme: theme})
	}
	utils.WriteJSON(w, http.StatusOK, themeBody{Theme: theme})
}
