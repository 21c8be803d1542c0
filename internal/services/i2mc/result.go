package i2mc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gazefix/internal/fixation"
)

// wireResult mirrors result.json. Field names follow the classifier's own
// output so no translation layer is needed on its side.
type wireResult struct {
	Fix  *wireFixations             `json:"fix"`
	Data map[string]json.RawMessage `json:"data"`
	Par  map[string]any             `json:"par"`
}

type wireFixations struct {
	StartT        []float64  `json:"startT"`
	EndT          []float64  `json:"endT"`
	Dur           []float64  `json:"dur"`
	XPos          []float64  `json:"xpos"`
	YPos          []float64  `json:"ypos"`
	FlankDataLoss []flexBool `json:"flankdataloss"`
	FracInterped  []float64  `json:"fracinterped"`
	Cutoff        float64    `json:"cutoff"`
	RMSxy         []float64  `json:"RMSxy"`
	BCEA          []float64  `json:"BCEA"`
	FixRangeX     []float64  `json:"fixRangeX"`
	FixRangeY     []float64  `json:"fixRangeY"`
}

// flexBool accepts JSON booleans as well as 0/1 numbers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*b = flexBool(val)
	case float64:
		*b = val != 0
	case nil:
		*b = false
	default:
		return fmt.Errorf("flankdataloss: unsupported value %s", string(data))
	}
	return nil
}

func readResult(path string) (fixation.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fixation.Result{}, fmt.Errorf("read %s: %w", resultFile, err)
	}
	return decodeResult(data)
}

func decodeResult(data []byte) (fixation.Result, error) {
	var wire wireResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return fixation.Result{}, fmt.Errorf("parse %s: %w", resultFile, err)
	}

	result := fixation.Result{Params: wire.Par}
	if len(wire.Data) > 0 {
		result.Trace = make(map[string][]float64, len(wire.Data))
		for name, raw := range wire.Data {
			var column []*float64
			if err := json.Unmarshal(raw, &column); err != nil {
				// Non-numeric trace columns are ignored.
				continue
			}
			values := make([]float64, len(column))
			for i, v := range column {
				if v == nil {
					values[i] = math.NaN()
					continue
				}
				values[i] = *v
			}
			result.Trace[name] = values
		}
	}

	if wire.Fix == nil {
		return result, nil
	}
	events, err := wire.Fix.events()
	if err != nil {
		return fixation.Result{}, err
	}
	result.Fixations = events
	return result, nil
}

func (w *wireFixations) events() ([]fixation.Event, error) {
	n := len(w.StartT)
	columns := map[string]int{
		"endT":          len(w.EndT),
		"dur":           len(w.Dur),
		"xpos":          len(w.XPos),
		"ypos":          len(w.YPos),
		"flankdataloss": len(w.FlankDataLoss),
		"fracinterped":  len(w.FracInterped),
		"RMSxy":         len(w.RMSxy),
		"BCEA":          len(w.BCEA),
		"fixRangeX":     len(w.FixRangeX),
		"fixRangeY":     len(w.FixRangeY),
	}
	for name, size := range columns {
		if size != n {
			return nil, fmt.Errorf("%w: %s has %d entries, startT has %d", errLengthMismatch, name, size, n)
		}
	}

	events := make([]fixation.Event, n)
	for i := range events {
		events[i] = fixation.Event{
			StartTime:            w.StartT[i],
			EndTime:              w.EndT[i],
			Duration:             w.Dur[i],
			XPos:                 w.XPos[i],
			YPos:                 w.YPos[i],
			FlankedByDataLoss:    bool(w.FlankDataLoss[i]),
			FractionInterpolated: w.FracInterped[i],
			WeightCutoff:         w.Cutoff,
			RMSxy:                w.RMSxy[i],
			BCEA:                 w.BCEA[i],
			RangeX:               w.FixRangeX[i],
			RangeY:               w.FixRangeY[i],
		}
	}
	return events, nil
}

var errLengthMismatch = errors.New("fixation arrays differ in length")
