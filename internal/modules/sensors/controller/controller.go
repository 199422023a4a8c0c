package controller

import (
	"io"
	"net/http"

	"smartcity-dashboard/internal/modules/sensors/chart"
	"smartcity-dashboard/internal/modules/sensors/repository"
	"smartcity-dashboard/internal/modules/sensors/service"
	"smartcity-dashboard/internal/modules/sensors/types"
	"smartcity-dashboard/internal/modules/sensors/views"
)

// Dashboard is the read side of service.Dashboard used by the handlers.
type Dashboard interface {
	State() service.State
	History() []types.Sample
	Chart(timeRange types.TimeRange, metric types.Metric, theme types.Theme) chart.View
}

type ChartRenderer interface {
	Render(w io.Writer, view chart.View, format chart.Format) error
}

// Live is the websocket hub: it serves /ws and receives theme changes.
type Live interface {
	Broadcast(v any)
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type SensorsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type sensorsControllerImpl struct {
	dashboard  Dashboard
	repository repository.PreferenceRepository
	renderer   ChartRenderer
	live       Live
}

func NewSensorsController(dashboard Dashboard, repo repository.PreferenceRepository, renderer ChartRenderer, live Live) SensorsController {
	return &sensorsControllerImpl{
		dashboard:  dashboard,
		repository: repo,
		renderer:   renderer,
		live:       live,
	}
}

func (c *sensorsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/status", c.handleStatusPartial)

	mux.HandleFunc("GET /api/v1/latest", c.handleLatest)
	mux.HandleFunc("GET /api/v1/history", c.handleHistory)
	mux.HandleFunc("GET /api/v1/chart", c.handleChart)
	mux.HandleFunc("GET /charts/analytics.svg", c.handleChartImage(chart.FormatSVG))
	mux.HandleFunc("GET /charts/analytics.png", c.handleChartImage(chart.FormatPNG))

	mux.HandleFunc("GET /api/v1/theme", c.handleGetTheme)
	mux.HandleFunc("PUT /api/v1/theme", c.handlePutTheme)
	mux.HandleFunc("POST /api/v1/theme/toggle", c.handleToggleTheme)

	if c.live != nil {
		mux.HandleFunc("GET /ws", c.live.ServeWS)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(views.StaticFS())))
}
