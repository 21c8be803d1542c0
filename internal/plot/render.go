package plot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultRenderWidth  = 1500
	defaultRenderHeight = 900
)

var namedColors = map[string]drawing.Color{
	"green": {R: 0, G: 128, B: 0, A: 255},
	"red":   {R: 255, G: 0, B: 0, A: 255},
	"blue":  {R: 0, G: 0, B: 255, A: 255},
	"black": {R: 0, G: 0, B: 0, A: 255},
}

func colorFor(name string) drawing.Color {
	if c, ok := namedColors[name]; ok {
		return c
	}
	return drawing.ColorBlack
}

// RenderOptions sets the output image size in pixels. Zero values use defaults.
type RenderOptions struct {
	Width  int
	Height int
}

// WritePNG renders the figure at the default size.
func (f *Figure) WritePNG(w io.Writer) error {
	return f.Render(w, RenderOptions{})
}

// Render draws both panels stacked vertically and encodes the result as PNG.
func (f *Figure) Render(w io.Writer, opts RenderOptions) error {
	width := opts.Width
	if width <= 0 {
		width = defaultRenderWidth
	}
	height := opts.Height
	if height <= 0 {
		height = defaultRenderHeight
	}
	panelHeight := height / len(f.Axes)

	canvas := image.NewRGBA(image.Rect(0, 0, width, panelHeight*len(f.Axes)))
	for i := range f.Axes {
		timeLabel := ""
		if i == len(f.Axes)-1 {
			timeLabel = f.TimeLabel
		}
		panel, err := f.renderPanel(&f.Axes[i], timeLabel, width, panelHeight)
		if err != nil {
			return fmt.Errorf("render panel %d: %w", i+1, err)
		}
		offset := image.Pt(0, i*panelHeight)
		draw.Draw(canvas, panel.Bounds().Add(offset), panel, panel.Bounds().Min, draw.Src)
	}
	return png.Encode(w, canvas)
}

func (f *Figure) renderPanel(axis *Axis, timeLabel string, width, height int) (image.Image, error) {
	timeMax := f.TimeMax
	if timeMax <= f.TimeMin {
		timeMax = f.TimeMin + 1
	}

	series := make([]chart.Series, 0, len(axis.Traces)+1)
	traces := append([]Trace(nil), axis.Traces...)
	sort.SliceStable(traces, func(i, j int) bool { return traces[i].ZOrder < traces[j].ZOrder })
	for _, tr := range traces {
		if len(tr.Time) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    string(tr.Channel),
			XValues: tr.Time,
			YValues: clampValues(tr.Values, axis.Min, axis.Max),
			Style: chart.Style{
				StrokeColor: colorFor(tr.Color),
				StrokeWidth: tr.LineWidth,
			},
		})
	}
	// Patches go last so they draw above every trace.
	series = append(series, patchSeries{patches: axis.Patches})

	c := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 16, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  timeLabel,
			Range: &chart.ContinuousRange{Min: f.TimeMin, Max: timeMax},
		},
		YAxis: chart.YAxis{
			Name:  axis.Label,
			Range: &chart.ContinuousRange{Min: axis.Min, Max: axis.Max, Descending: axis.Inverted},
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode panel: %w", err)
	}
	return img, nil
}

// clampValues pins off-screen values (sentinels, spikes) to the axis edge so
// lines stay inside the plotting area.
func clampValues(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Min(math.Max(v, lo), hi)
	}
	return out
}

// patchSeries draws fixation rectangles in data coordinates.
type patchSeries struct {
	patches []Patch
}

func (patchSeries) GetName() string { return "fixations" }

func (patchSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }

func (patchSeries) GetStyle() chart.Style { return chart.Style{} }

func (patchSeries) Validate() error { return nil }

func (ps patchSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	patches := append([]Patch(nil), ps.patches...)
	sort.SliceStable(patches, func(i, j int) bool { return patches[i].ZOrder < patches[j].ZOrder })
	for _, p := range patches {
		fill := colorFor(p.Color).WithAlpha(uint8(math.Round(p.Alpha * 255)))
		x0 := canvasBox.Left + xrange.Translate(p.X)
		x1 := canvasBox.Left + xrange.Translate(p.X+p.Width)
		y0 := canvasBox.Bottom - yrange.Translate(p.Y)
		y1 := canvasBox.Bottom - yrange.Translate(p.Y+p.Height)

		r.SetFillColor(fill)
		r.SetStrokeColor(drawing.ColorTransparent)
		r.SetStrokeWidth(0)
		r.MoveTo(x0, y0)
		r.LineTo(x1, y0)
		r.LineTo(x1, y1)
		r.LineTo(x0, y1)
		r.Close()
		r.Fill()
	}
}
