package gaze

// Options holds the display geometry and sentinel values used by the validity rule.
type Options struct {
	ResX     float64
	ResY     float64
	MissingX float64
	MissingY float64
}

// Missing returns the sentinel pair as a Point.
func (o Options) Missing() Point {
	return Point{X: o.MissingX, Y: o.MissingY}
}

// maxValidCode is the highest tracker status code still treated as usable
// (0 = valid, 1 = degraded but valid).
const maxValidCode = 1

// OutOfBounds reports whether v lies more than one screen outside [0, res).
func OutOfBounds(v, res float64) bool {
	return v < -res || v >= 2*res
}

// InvalidCode reports whether a tracker validity code marks the eye invalid.
func InvalidCode(code int) bool {
	return code > maxValidCode
}

// IsMissing reports whether an eye's reading must be discarded.
func IsMissing(e Eye, opts Options) bool {
	return OutOfBounds(e.X, opts.ResX) || OutOfBounds(e.Y, opts.ResY) || InvalidCode(e.Validity)
}

// Clean applies the validity rule to each eye independently. It never fails.
func Clean(s RawSample, opts Options) CleanedSample {
	return CleanedSample{
		Time:  s.Time,
		Left:  cleanEye(s.Left, opts),
		Right: cleanEye(s.Right, opts),
	}
}

func cleanEye(e Eye, opts Options) Point {
	if IsMissing(e, opts) {
		return opts.Missing()
	}
	return e.Point()
}

// CleanPoint applies the bounds half of the rule to a point that carries no
// validity code, such as a tracker-provided binocular average.
func CleanPoint(p Point, opts Options) Point {
	if OutOfBounds(p.X, opts.ResX) || OutOfBounds(p.Y, opts.ResY) {
		return opts.Missing()
	}
	return p
}

// CleanAll cleans every sample, preserving order.
func CleanAll(samples []RawSample, opts Options) []CleanedSample {
	out := make([]CleanedSample, len(samples))
	for i, s := range samples {
		out[i] = Clean(s, opts)
	}
	return out
}

// CleanPoints applies CleanPoint to every point, preserving order.
func CleanPoints(points []Point, opts Options) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = CleanPoint(p, opts)
	}
	return out
}

// Stats summarizes how many samples lost each eye during cleaning.
type Stats struct {
	Samples      int
	LeftMissing  int
	RightMissing int
	BothMissing  int
}

// Summarize counts missing eyes across raw samples.
func Summarize(samples []RawSample, opts Options) Stats {
	stats := Stats{Samples: len(samples)}
	for _, s := range samples {
		left := IsMissing(s.Left, opts)
		right := IsMissing(s.Right, opts)
		if left {
			stats.LeftMissing++
		}
		if right {
			stats.RightMissing++
		}
		if left && right {
			stats.BothMissing++
		}
	}
	return stats
}
