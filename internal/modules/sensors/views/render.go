package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"

	"smartcity-dashboard/internal/modules/sensors/types"
)

var dashboardTmpl *template.Template

// loadTemplatesFromFS parses the page and its partials from dir in fsys.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// StaticFS exposes the embedded scripts and styles rooted at static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Option is one entry of a selector.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Status is the live part of the page: dials, location and clock.
type Status struct {
	Gauges      []Gauge
	Location    Location
	LastUpdated string
	Error       string
}

func NewStatus(sample *types.Sample, locationName, locationValue, lastUpdated, errMsg string) Status {
	if lastUpdated == "" {
		lastUpdated = "--"
	}
	return Status{
		Gauges:      Gauges(sample),
		Location:    NewLocation(sample, locationName, locationValue),
		LastUpdated: lastUpdated,
		Error:       errMsg,
	}
}

type DashboardData struct {
	Theme    types.Theme
	Status   Status
	Metrics  []Option
	Ranges   []Option
	ChartURL string
}

// MetricOptions lists the metric selector entries with selected marked.
func MetricOptions(selected types.Metric) []Option {
	out := make([]Option, 0, len(types.Metrics))
	for _, m := range types.Metrics {
		out = append(out, Option{Value: string(m), Label: m.Label(), Selected: m == selected})
	}
	return out
}

// RangeOptions lists the time range selector entries with selected marked.
func RangeOptions(selected types.TimeRange) []Option {
	out := make([]Option, 0, len(types.TimeRanges))
	for _, r := range types.TimeRanges {
		out = append(out, Option{Value: string(r), Label: r.Label(), Selected: r == selected})
	}
	return out
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderStatusPartial executes only the status fragment, used for live refresh.
func RenderStatusPartial(w io.Writer, data *Status) error {
	if dashboardTmpl == nil {
		return errors.New("status template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/status.html", data)
}
