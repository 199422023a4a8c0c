package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"smartcity-dashboard/internal/modules/sensors/types"
)

// ErrEmptySeries is returned when a view has no points to draw.
var ErrEmptySeries = errors.New("chart: empty series")

// Format is the image encoding produced by a Renderer.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" and "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("chart: unsupported format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

var (
	primaryColor = drawing.ColorFromHex("3b82f6")
	// rgba(59, 130, 246, 0.1)
	primaryFill = drawing.Color{R: 59, G: 130, B: 246, A: 26}
)

type themeColors struct {
	background drawing.Color
	grid       drawing.Color
	font       drawing.Color
}

var drawingPalettes = map[types.Theme]themeColors{
	types.ThemeLight: {
		background: drawing.ColorWhite,
		grid:       drawing.Color{R: 0, G: 0, B: 0, A: 26},
		font:       drawing.ColorFromHex("1f2937"),
	},
	types.ThemeDark: {
		background: drawing.ColorFromHex("1f2937"),
		grid:       drawing.Color{R: 255, G: 255, B: 255, A: 26},
		font:       drawing.ColorFromHex("f9fafb"),
	},
}

// Renderer draws a View as a static line chart.
type Renderer struct {
	Width  int
	Height int
}

func NewRenderer() *Renderer {
	return &Renderer{Width: 800, Height: 360}
}

// Render writes view to w in the requested format.
func (r *Renderer) Render(w io.Writer, view View, format Format) error {
	if view.Empty() {
		return ErrEmptySeries
	}

	xs := make([]time.Time, 0, len(view.Points)+1)
	ys := make([]float64, 0, len(view.Points)+1)
	minY, maxY := view.Points[0].Value, view.Points[0].Value
	for _, p := range view.Points {
		xs = append(xs, p.Timestamp)
		ys = append(ys, p.Value)
		minY = min(minY, p.Value)
		maxY = max(maxY, p.Value)
	}
	// A single point has no x extent; pad it so the axis range is non-zero.
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(time.Second))
		ys = append(ys, ys[0])
	}

	var yRange *gochart.ContinuousRange
	if maxY <= minY {
		yRange = &gochart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}

	colors, ok := drawingPalettes[view.Theme]
	if !ok {
		colors = drawingPalettes[types.DefaultTheme]
	}
	axisStyle := gochart.Style{FontColor: colors.font, StrokeColor: colors.grid}
	gridStyle := gochart.Style{StrokeColor: colors.grid, StrokeWidth: 1}

	ch := gochart.Chart{
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{FillColor: colors.background, Padding: gochart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
		Canvas:     gochart.Style{FillColor: colors.background},
		XAxis: gochart.XAxis{
			Style:          axisStyle,
			ValueFormatter: gochart.TimeValueFormatterWithFormat(view.Axis.Layout),
			GridMajorStyle: gridStyle,
		},
		YAxis: gochart.YAxis{
			Name:           view.Label,
			NameStyle:      gochart.Style{FontColor: colors.font},
			Style:          axisStyle,
			Range:          yRange,
			GridMajorStyle: gridStyle,
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    view.Label,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: primaryColor,
					StrokeWidth: 2,
					FillColor:   primaryFill,
				},
			},
		},
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch, gochart.Style{
		FillColor: colors.background,
		FontColor: colors.font,
	})}

	provider := gochart.SVG
	if format == FormatPNG {
		provider = gochart.PNG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("render %s chart: %w", format, err)
	}
	return nil
}
