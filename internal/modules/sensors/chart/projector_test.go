package chart

import (
	"reflect"
	"testing"
	"time"

	"smartcity-dashboard/internal/modules/sensors/types"
)

var now = time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

func spanSamples(n int, span time.Duration) []types.Sample {
	out := make([]types.Sample, n)
	start := now.Add(-span)
	step := span / time.Duration(n)
	for i := range out {
		out[i] = types.Sample{
			Timestamp:       start.Add(time.Duration(i+1) * step),
			Temperature:     float64(i),
			Humidity:        float64(i) + 0.5,
			Carbon:          float64(400 + i),
			PredictedCarbon: float64(400+i) * types.PredictedCarbonFactor,
		}
	}
	return out
}

func TestProject_EmptyHistory(t *testing.T) {
	for _, r := range types.TimeRanges {
		for _, m := range types.Metrics {
			for _, th := range []types.Theme{types.ThemeLight, types.ThemeDark} {
				v := Project(nil, r, m, th, now)
				if !v.Empty() {
					t.Errorf("Project(nil, %s, %s, %s) has %d points; want 0", r, m, th, len(v.Points))
				}
				if v.Points == nil {
					t.Errorf("Project(nil, %s, %s, %s).Points is nil; want empty slice", r, m, th)
				}
			}
		}
	}
}

func TestProject_ThreeSamplesLast24h(t *testing.T) {
	t0 := now.Add(-3 * time.Hour)
	t1 := now.Add(-2 * time.Hour)
	t2 := now.Add(-1 * time.Hour)
	samples := []types.Sample{
		{Timestamp: t0, Temperature: 10},
		{Timestamp: t1, Temperature: 20},
		{Timestamp: t2, Temperature: 30},
	}

	v := Project(samples, types.RangeLast24h, types.MetricTemperature, types.ThemeLight, now)

	want := []Point{{Timestamp: t0, Value: 10}, {Timestamp: t1, Value: 20}, {Timestamp: t2, Value: 30}}
	if !reflect.DeepEqual(v.Points, want) {
		t.Fatalf("Points = %+v; want %+v", v.Points, want)
	}
	if v.Axis.Unit != UnitHour || v.Axis.DisplayFormat != "HH:mm" || v.Axis.Layout != "15:04" {
		t.Errorf("Axis = %+v; want hour / HH:mm", v.Axis)
	}
	if v.Palette != palettes[types.ThemeLight] {
		t.Errorf("Palette = %+v; want light palette", v.Palette)
	}
	if v.Label != "Temperature (°C)" {
		t.Errorf("Label = %q; want Temperature (°C)", v.Label)
	}
}

func TestProject_RangeBoundaryIsExclusive(t *testing.T) {
	boundary := now.Add(-24 * time.Hour)
	samples := []types.Sample{
		{Timestamp: boundary, Temperature: 1},
		{Timestamp: boundary.Add(time.Millisecond), Temperature: 2},
	}

	v := Project(samples, types.RangeLast24h, types.MetricTemperature, types.ThemeLight, now)
	if len(v.Points) != 1 {
		t.Fatalf("Points len = %d; want 1", len(v.Points))
	}
	if v.Points[0].Value != 2 {
		t.Errorf("kept value = %v; want the sample 1ms after the boundary", v.Points[0].Value)
	}

	weekBoundary := now.Add(-7 * 24 * time.Hour)
	samples = []types.Sample{
		{Timestamp: weekBoundary, Temperature: 1},
		{Timestamp: weekBoundary.Add(time.Millisecond), Temperature: 2},
	}
	v = Project(samples, types.RangeLast7d, types.MetricTemperature, types.ThemeLight, now)
	if len(v.Points) != 1 || v.Points[0].Value != 2 {
		t.Errorf("7d Points = %+v; want only the sample after the boundary", v.Points)
	}
}

func TestProject_RangeAllKeepsOldSamples(t *testing.T) {
	samples := []types.Sample{
		{Timestamp: now.Add(-30 * 24 * time.Hour), Temperature: 1},
		{Timestamp: now.Add(-time.Minute), Temperature: 2},
	}
	v := Project(samples, types.RangeAll, types.MetricTemperature, types.ThemeDark, now)
	if len(v.Points) != 2 {
		t.Fatalf("Points len = %d; want 2", len(v.Points))
	}
	if v.Axis.Unit != UnitDay || v.Axis.DisplayFormat != "MMM d" {
		t.Errorf("Axis = %+v; want day / MMM d", v.Axis)
	}
}

func TestProject_120SamplesOver7Days(t *testing.T) {
	samples := spanSamples(120, 7*24*time.Hour)

	v := Project(samples, types.RangeLast7d, types.MetricCarbon, types.ThemeDark, now)

	if len(v.Points) != MaxPoints {
		t.Fatalf("Points len = %d; want %d", len(v.Points), MaxPoints)
	}
	// step = 120/50 = 2, positions 0,2,4,... capped to the first 50.
	for i, p := range v.Points {
		idx := i * 2
		if p.Value != samples[idx].Carbon || !p.Timestamp.Equal(samples[idx].Timestamp) {
			t.Fatalf("Points[%d] = %+v; want sample index %d (%+v)", i, p, idx, samples[idx])
		}
	}
	if last := v.Points[len(v.Points)-1]; last.Value != samples[98].Carbon {
		t.Errorf("last point = %v; want sample index 98", last.Value)
	}
	if v.Palette != palettes[types.ThemeDark] {
		t.Errorf("Palette = %+v; want dark palette", v.Palette)
	}
	if v.Axis.Unit != UnitDay {
		t.Errorf("Axis.Unit = %q; want day", v.Axis.Unit)
	}
}

func TestProject_DecimationBound(t *testing.T) {
	for n := 0; n <= 450; n++ {
		samples := spanSamples(max(n, 1), 6*24*time.Hour)[:n]
		v := Project(samples, types.RangeAll, types.MetricHumidity, types.ThemeLight, now)
		if len(v.Points) > MaxPoints {
			t.Fatalf("n=%d: Points len = %d; want <= %d", n, len(v.Points), MaxPoints)
		}
		if n <= MaxPoints && len(v.Points) != n {
			t.Fatalf("n=%d: Points len = %d; want all %d kept", n, len(v.Points), n)
		}
		for i := 1; i < len(v.Points); i++ {
			if v.Points[i].Timestamp.Before(v.Points[i-1].Timestamp) {
				t.Fatalf("n=%d: timestamps not nondecreasing at %d", n, i)
			}
		}
	}
}

func TestProject_StrideSelection(t *testing.T) {
	// n=175 -> step 3 -> positions 0,3,...,147 (50 points).
	samples := spanSamples(175, 24*time.Hour)
	v := Project(samples, types.RangeAll, types.MetricTemperature, types.ThemeLight, now)
	if len(v.Points) != MaxPoints {
		t.Fatalf("Points len = %d; want %d", len(v.Points), MaxPoints)
	}
	for i, p := range v.Points {
		if p.Value != float64(i*3) {
			t.Fatalf("Points[%d].Value = %v; want %d", i, p.Value, i*3)
		}
	}
}

func TestProject_Idempotent(t *testing.T) {
	samples := spanSamples(137, 3*24*time.Hour)
	for _, r := range types.TimeRanges {
		for _, m := range types.Metrics {
			a := Project(samples, r, m, types.ThemeDark, now)
			b := Project(samples, r, m, types.ThemeDark, now)
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("Project(%s, %s) not idempotent", r, m)
			}
		}
	}
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	samples := spanSamples(80, 24*time.Hour)
	snapshot := make([]types.Sample, len(samples))
	copy(snapshot, samples)

	_ = Project(samples, types.RangeLast24h, types.MetricTemperature, types.ThemeLight, now)

	if !reflect.DeepEqual(samples, snapshot) {
		t.Fatal("Project mutated its input")
	}
}

func TestProject_ThemeOnlyChangesPalette(t *testing.T) {
	samples := spanSamples(20, time.Hour)
	light := Project(samples, types.RangeLast24h, types.MetricTemperature, types.ThemeLight, now)
	dark := Project(samples, types.RangeLast24h, types.MetricTemperature, types.ThemeDark, now)

	if !reflect.DeepEqual(light.Points, dark.Points) {
		t.Error("theme changed data points")
	}
	if light.Palette == dark.Palette {
		t.Error("light and dark palettes are identical")
	}
	if dark.Palette.Grid != "rgba(255, 255, 255, 0.1)" || dark.Palette.Font != "#f9fafb" {
		t.Errorf("dark palette = %+v", dark.Palette)
	}
}

func TestPaletteFor_UnknownThemeFallsBack(t *testing.T) {
	if got := PaletteFor(types.Theme("neon")); got != palettes[types.ThemeLight] {
		t.Errorf("PaletteFor(neon) = %+v; want light palette", got)
	}
}
