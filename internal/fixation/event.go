package fixation

// Event is one detected fixation. Times are in milliseconds, positions in pixels.
type Event struct {
	StartTime            float64
	EndTime              float64
	Duration             float64
	XPos                 float64
	YPos                 float64
	FlankedByDataLoss    bool
	FractionInterpolated float64
	WeightCutoff         float64
	RMSxy                float64
	BCEA                 float64
	RangeX               float64
	RangeY               float64
}

// Identity names the participant and trial a recording belongs to.
type Identity struct {
	Participant string
	Trial       string
}

// Row is a fixation tagged with the identity of its source recording.
type Row struct {
	Event
	Identity
}
