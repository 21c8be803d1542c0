// Package plot builds the diagnostic overlay of detected fixations on raw
// gaze traces and renders it to PNG.
//
// Build maps data to graphics (traces, fixation patches, axis ranges) without
// touching a rendering backend, so the mapping rules can be inspected directly.
// WritePNG draws the figure with go-chart.
package plot

import (
	"math"

	"gazefix/internal/fixation"
	"gazefix/internal/gaze"
)

const (
	traceLineWidth = 0.5
	patchAlpha     = 0.8
	patchZOrder    = 3
	traceZOrder    = 1
	patchColor     = "black"
)

// Resolution is the display size in pixels.
type Resolution struct {
	Width  float64
	Height float64
}

// Trace is one channel's position line on an axis.
type Trace struct {
	Channel   gaze.Channel
	Color     string
	LineWidth float64
	ZOrder    int
	Time      []float64
	Values    []float64
}

// Patch is a filled rectangle in data coordinates marking one fixation.
type Patch struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Color  string
	Alpha  float64
	ZOrder int
}

// Axis is one panel of the figure. Values are plotted against time.
type Axis struct {
	Label    string
	Min      float64
	Max      float64
	Inverted bool
	Traces   []Trace
	Patches  []Patch
}

// Figure is the two-panel overlay: horizontal position on top, vertical below,
// sharing a time axis.
type Figure struct {
	TimeLabel string
	TimeMin   float64
	TimeMax   float64
	Layout    gaze.Layout
	Axes      [2]Axis
}

// Horizontal returns the horizontal-position panel.
func (f *Figure) Horizontal() *Axis { return &f.Axes[0] }

// Vertical returns the vertical-position panel.
func (f *Figure) Vertical() *Axis { return &f.Axes[1] }

// Build maps a series and its fixations onto a Figure.
func Build(series gaze.Series, fixations []fixation.Event, res Resolution) *Figure {
	fig := &Figure{
		TimeLabel: "Time (ms)",
		TimeMin:   0,
		TimeMax:   series.Duration(),
		Layout:    series.Layout,
		Axes: [2]Axis{
			{Label: "Horizontal position (pixels)", Min: 0, Max: res.Width},
			{Label: "Vertical position (pixels)", Min: 0, Max: res.Height, Inverted: true},
		},
	}

	for _, ch := range series.Layout.Channels() {
		track, ok := series.Track(ch)
		if !ok {
			continue
		}
		xs := make([]float64, len(track.Points))
		ys := make([]float64, len(track.Points))
		for i, p := range track.Points {
			xs[i] = p.X
			ys[i] = p.Y
		}
		fig.Axes[0].Traces = append(fig.Axes[0].Traces, newTrace(ch, series.Time, xs))
		fig.Axes[1].Traces = append(fig.Axes[1].Traces, newTrace(ch, series.Time, ys))
	}

	thickX := math.Abs(res.Width / 100)
	thickY := math.Abs(res.Height / 100)
	for _, fx := range fixations {
		span := fx.EndTime - fx.StartTime
		fig.Axes[0].Patches = append(fig.Axes[0].Patches, newPatch(fx.StartTime, fx.XPos-thickX/2, span, thickX))
		fig.Axes[1].Patches = append(fig.Axes[1].Patches, newPatch(fx.StartTime, fx.YPos-thickY/2, span, thickY))
	}
	return fig
}

func newTrace(ch gaze.Channel, t, values []float64) Trace {
	return Trace{
		Channel:   ch,
		Color:     ch.ColorName(),
		LineWidth: traceLineWidth,
		ZOrder:    traceZOrder,
		Time:      t,
		Values:    values,
	}
}

func newPatch(x, y, width, height float64) Patch {
	return Patch{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
		Color:  patchColor,
		Alpha:  patchAlpha,
		ZOrder: patchZOrder,
	}
}
