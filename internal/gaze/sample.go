package gaze

// Eye is one eye's reading within a tracker sample. Coordinates are in pixels.
type Eye struct {
	X        float64
	Y        float64
	Validity int
}

// RawSample is a single time-stamped tracker record. Time is in milliseconds.
type RawSample struct {
	Time  float64
	Left  Eye
	Right Eye
}

// Point is a gaze position in pixels.
type Point struct {
	X float64
	Y float64
}

// CleanedSample is a RawSample after the validity rule has been applied.
// Missing eyes carry the configured sentinel coordinates.
type CleanedSample struct {
	Time  float64
	Left  Point
	Right Point
}

// Point returns the eye's position without its validity code.
func (e Eye) Point() Point {
	return Point{X: e.X, Y: e.Y}
}
