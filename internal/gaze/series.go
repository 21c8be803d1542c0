package gaze

import "fmt"

// Track is one channel's positions, aligned index-for-index with Series.Time.
type Track struct {
	Channel Channel
	Points  []Point
}

// Series is the canonical, channel-labeled gaze time series.
type Series struct {
	Layout Layout
	Time   []float64
	Tracks []Track
}

// Input collects the cleaned per-eye data available for one recording.
// Average is nil when the recording carries no average channel.
type Input struct {
	Samples  []CleanedSample
	HasLeft  bool
	HasRight bool
	Average  []Point
}

// Reconcile resolves the channel layout and builds the canonical series.
// Left and right are surfaced as separate tracks; the average is only used
// when neither eye is present.
func Reconcile(in Input) (Series, error) {
	hasAverage := in.Average != nil
	layout, err := ResolveLayout(in.HasLeft, in.HasRight, hasAverage)
	if err != nil {
		return Series{}, err
	}
	if layout == LayoutAverageOnly && len(in.Average) != len(in.Samples) {
		return Series{}, fmt.Errorf("average channel has %d points for %d samples", len(in.Average), len(in.Samples))
	}

	series := Series{
		Layout: layout,
		Time:   make([]float64, len(in.Samples)),
	}
	for i, s := range in.Samples {
		series.Time[i] = s.Time
	}

	for _, ch := range layout.Channels() {
		track := Track{Channel: ch, Points: make([]Point, len(in.Samples))}
		switch ch {
		case ChannelLeft:
			for i, s := range in.Samples {
				track.Points[i] = s.Left
			}
		case ChannelRight:
			for i, s := range in.Samples {
				track.Points[i] = s.Right
			}
		case ChannelAverage:
			copy(track.Points, in.Average)
		}
		series.Tracks = append(series.Tracks, track)
	}
	return series, nil
}

// Len returns the number of samples in the series.
func (s Series) Len() int {
	return len(s.Time)
}

// Track returns the track for ch, if present.
func (s Series) Track(ch Channel) (Track, bool) {
	for _, t := range s.Tracks {
		if t.Channel == ch {
			return t, true
		}
	}
	return Track{}, false
}

// Columns returns the canonical column names: time followed by X/Y per track.
func (s Series) Columns() []string {
	cols := make([]string, 0, 1+2*len(s.Tracks))
	cols = append(cols, "time")
	for _, t := range s.Tracks {
		cols = append(cols, t.Channel.XColumn(), t.Channel.YColumn())
	}
	return cols
}

// Row returns the values of sample i in Columns order.
func (s Series) Row(i int) []float64 {
	row := make([]float64, 0, 1+2*len(s.Tracks))
	row = append(row, s.Time[i])
	for _, t := range s.Tracks {
		row = append(row, t.Points[i].X, t.Points[i].Y)
	}
	return row
}

// Duration returns the last timestamp, or 0 for an empty series.
func (s Series) Duration() float64 {
	if len(s.Time) == 0 {
		return 0
	}
	return s.Time[len(s.Time)-1]
}
