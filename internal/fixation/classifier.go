package fixation

import (
	"context"

	"gazefix/internal/gaze"
)

// Options are the classifier knobs. JSON keys follow the I2MC option names so
// the values reach the classifier exactly as configured.
type Options struct {
	// Display and tracker geometry.
	XRes     float64 `json:"xres" validate:"gt=0"`
	YRes     float64 `json:"yres" validate:"gt=0"`
	MissingX float64 `json:"missingx"`
	MissingY float64 `json:"missingy"`
	Freq     float64 `json:"freq" validate:"gt=0"`

	// Visual angle. Empty screen size or distance yields noise measures in pixels.
	ScreenSize   []float64 `json:"scrSz,omitempty" validate:"omitempty,len=2,dive,gt=0"`
	DistToScreen float64   `json:"disttoscreen,omitempty" validate:"gte=0"`

	// Interpolation.
	WindowTimeInterp float64 `json:"windowtimeInterp" validate:"gt=0"`
	EdgeSampInterp   int     `json:"edgeSampInterp" validate:"gte=1"`
	MaxDisp          float64 `json:"maxdisp" validate:"gt=0"`

	// 2-means clustering.
	WindowTime     float64   `json:"windowtime" validate:"gt=0"`
	StepTime       float64   `json:"steptime" validate:"gte=0"`
	MaxErrors      int       `json:"maxerrors" validate:"gte=0"`
	Downsamples    []float64 `json:"downsamples" validate:"dive,gt=1"`
	DownsampFilter int       `json:"downsampFilter" validate:"oneof=0 1"`

	// Fixation determination.
	CutoffStd      float64 `json:"cutoffstd" validate:"gt=0"`
	OnOffsetThresh float64 `json:"onoffsetThresh" validate:"gt=0"`
	MaxMergeDist   float64 `json:"maxMergeDist" validate:"gte=0"`
	MaxMergeTime   float64 `json:"maxMergeTime" validate:"gte=0"`
	MinFixDur      float64 `json:"minFixDur" validate:"gte=0"`
}

// Result is everything a classifier returns for one series.
type Result struct {
	Fixations []Event
	// Trace holds named per-sample columns (for example final clustering weights).
	Trace map[string][]float64
	// Params echoes the parameters the classifier actually ran with.
	Params map[string]any
}

// Empty reports whether the classifier found no fixations.
func (r Result) Empty() bool {
	return len(r.Fixations) == 0
}

// Classifier is the external fixation-classification engine.
type Classifier interface {
	Classify(ctx context.Context, series gaze.Series, opts Options) (Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, series gaze.Series, opts Options) (Result, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, series gaze.Series, opts Options) (Result, error) {
	return f(ctx, series, opts)
}
