package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyFileData  = errors.New("empty file data")
	ErrClassification = errors.New("classification failed")
	ErrNoFixations    = errors.New("no fixations")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrExternalTool   = errors.New("external tool error")
	ErrTimeout        = errors.New("timeout")
)

// Outcome is the per-recording result persisted with each run.
type Outcome string

const (
	OutcomeProcessed            Outcome = "processed"
	OutcomeEmpty                Outcome = "empty"
	OutcomeClassificationFailed Outcome = "classification_failed"
	OutcomeNoFixations          Outcome = "no_fixations"
	OutcomeInvalid              Outcome = "invalid"
	OutcomeFailed               Outcome = "failed"
)

// Skipped reports whether the outcome leaves the recording out of the table.
func (o Outcome) Skipped() bool {
	return o != OutcomeProcessed
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later outcome classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// OutcomeFor maps a per-file pipeline error to the outcome recorded for it.
// A nil error means the recording was processed.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeProcessed
	case errors.Is(err, ErrEmptyFileData):
		return OutcomeEmpty
	case errors.Is(err, ErrNoFixations):
		return OutcomeNoFixations
	case errors.Is(err, ErrClassification), errors.Is(err, ErrTimeout), errors.Is(err, ErrExternalTool):
		return OutcomeClassificationFailed
	case errors.Is(err, ErrValidation):
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
