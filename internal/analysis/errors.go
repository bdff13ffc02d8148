package analysis

import (
	"errors"
	"fmt"
)

// ErrEmptySelection is returned by submit surfaces when no component was
// chosen. Assemble itself accepts an empty selection.
var ErrEmptySelection = errors.New("analysis: select at least one component")

// InvalidInputError reports a concentration that is negative or not finite.
type InvalidInputError struct {
	Feature string
	Value   float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("analysis: invalid concentration %v for %q: must be a finite value >= 0", e.Value, e.Feature)
}

// UnknownFeatureError reports a selected name that is not in the catalog.
type UnknownFeatureError struct {
	Feature string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("analysis: unknown component %q", e.Feature)
}

// ShapeMismatchError reports a prediction vector whose length differs from
// the label catalog.
type ShapeMismatchError struct {
	Predictions int
	Labels      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("analysis: model returned %d values for %d labels", e.Predictions, e.Labels)
}

// NonFiniteOutputError reports a model output that is NaN or infinite. It
// is a model failure, not a caller error.
type NonFiniteOutputError struct {
	Index int
	Label string
	Value float64
}

func (e *NonFiniteOutputError) Error() string {
	return fmt.Sprintf("analysis: model returned %v for %q (output %d)", e.Value, e.Label, e.Index)
}

// IsRequestError reports whether err was caused by the caller's input rather
// than by the model or the process.
func IsRequestError(err error) bool {
	var invalid *InvalidInputError
	var unknown *UnknownFeatureError
	return errors.Is(err, ErrEmptySelection) || errors.As(err, &invalid) || errors.As(err, &unknown)
}

// ErrorKind is a short label for metrics and API error envelopes.
func ErrorKind(err error) string {
	var (
		invalid *InvalidInputError
		unknown *UnknownFeatureError
		shape   *ShapeMismatchError
		output  *NonFiniteOutputError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEmptySelection):
		return "empty_selection"
	case errors.As(err, &invalid):
		return "invalid_input"
	case errors.As(err, &unknown):
		return "unknown_feature"
	case errors.As(err, &shape):
		return "shape_mismatch"
	case errors.As(err, &output):
		return "non_finite_output"
	default:
		return "internal"
	}
}
