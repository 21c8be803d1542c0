package plot_test

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"gazefix/internal/fixation"
	"gazefix/internal/gaze"
	"gazefix/internal/plot"
)

func binocularSeries() gaze.Series {
	return gaze.Series{
		Layout: gaze.LayoutBoth,
		Time:   []float64{0, 100, 200, 300},
		Tracks: []gaze.Track{
			{Channel: gaze.ChannelLeft, Points: []gaze.Point{{X: 100, Y: 50}, {X: 110, Y: 55}, {X: 900, Y: 500}, {X: 905, Y: 505}}},
			{Channel: gaze.ChannelRight, Points: []gaze.Point{{X: 102, Y: 52}, {X: -1920, Y: -1080}, {X: 902, Y: 502}, {X: 906, Y: 506}}},
		},
	}
}

var fullHD = plot.Resolution{Width: 1920, Height: 1080}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestBuildWithoutFixationsHasTracesOnly(t *testing.T) {
	fig := plot.Build(binocularSeries(), nil, fullHD)
	for i, axis := range fig.Axes {
		if len(axis.Patches) != 0 {
			t.Fatalf("axis %d: expected no patches, got %d", i, len(axis.Patches))
		}
		if len(axis.Traces) != 2 {
			t.Fatalf("axis %d: expected 2 traces, got %d", i, len(axis.Traces))
		}
		if axis.Traces[0].Color != "green" || axis.Traces[1].Color != "red" {
			t.Fatalf("axis %d: unexpected trace colors %q %q", i, axis.Traces[0].Color, axis.Traces[1].Color)
		}
	}
}

func TestBuildAddsOnePatchPerFixationPerAxis(t *testing.T) {
	fixes := []fixation.Event{
		{StartTime: 0, EndTime: 100, XPos: 105, YPos: 52},
		{StartTime: 200, EndTime: 300, XPos: 903, YPos: 503},
		{StartTime: 250, EndTime: 260, XPos: 10, YPos: 10},
	}
	fig := plot.Build(binocularSeries(), fixes, fullHD)

	h := fig.Horizontal()
	v := fig.Vertical()
	if len(h.Patches) != len(fixes) || len(v.Patches) != len(fixes) {
		t.Fatalf("expected %d patches per axis, got %d and %d", len(fixes), len(h.Patches), len(v.Patches))
	}

	p := h.Patches[1]
	if p.X != 200 || p.Width != 100 {
		t.Fatalf("unexpected time span %+v", p)
	}
	if !approx(p.Height, 19.2) || !approx(p.Y, 893.4) {
		t.Fatalf("horizontal patch not centered on XPos: %+v", p)
	}
	q := v.Patches[1]
	if !approx(q.Height, 10.8) || !approx(q.Y, 497.6) {
		t.Fatalf("vertical patch not centered on YPos: %+v", q)
	}
	for _, patch := range append(h.Patches, v.Patches...) {
		if patch.ZOrder <= h.Traces[0].ZOrder {
			t.Fatal("patches must stack above traces")
		}
		if patch.Color != "black" || patch.Alpha != 0.8 {
			t.Fatalf("unexpected patch style %+v", patch)
		}
	}
}

func TestBuildAxesRanges(t *testing.T) {
	fig := plot.Build(binocularSeries(), nil, fullHD)
	if fig.TimeMax != 300 {
		t.Fatalf("expected shared time axis to end at last sample, got %v", fig.TimeMax)
	}
	if fig.Horizontal().Max != 1920 || fig.Horizontal().Inverted {
		t.Fatalf("unexpected horizontal axis %+v", fig.Horizontal())
	}
	if fig.Vertical().Max != 1080 || !fig.Vertical().Inverted {
		t.Fatalf("vertical axis must span height and be inverted: %+v", fig.Vertical())
	}
}

func TestBuildAverageLayoutUsesBlue(t *testing.T) {
	series := gaze.Series{
		Layout: gaze.LayoutAverageOnly,
		Time:   []float64{0, 1},
		Tracks: []gaze.Track{{Channel: gaze.ChannelAverage, Points: []gaze.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}},
	}
	fig := plot.Build(series, nil, fullHD)
	if len(fig.Horizontal().Traces) != 1 || fig.Horizontal().Traces[0].Color != "blue" {
		t.Fatalf("expected single blue trace, got %+v", fig.Horizontal().Traces)
	}
}

func TestRenderProducesStackedPNG(t *testing.T) {
	fixes := []fixation.Event{{StartTime: 0, EndTime: 100, XPos: 105, YPos: 52}}
	fig := plot.Build(binocularSeries(), fixes, fullHD)

	var buf bytes.Buffer
	if err := fig.Render(&buf, plot.RenderOptions{Width: 600, Height: 400}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 400 {
		t.Fatalf("unexpected image size %v", b)
	}
}

func TestRenderZeroFixations(t *testing.T) {
	fig := plot.Build(binocularSeries(), nil, fullHD)
	var buf bytes.Buffer
	if err := fig.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected PNG output")
	}
}
