package domain

import (
	"fmt"
)

// DataUnavailableError reports that seed price or history could not be
// obtained for a symbol. Batches skip the symbol and continue.
type DataUnavailableError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data unavailable for %s: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Reason)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// InsufficientDataError reports a historical series too short to estimate from.
type InsufficientDataError struct {
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least 2 prices, got %d", e.Points)
}

// InvalidParameterError reports a malformed simulation input.
type InvalidParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// NumericDegeneracyError records a computed price that was not positive and
// had to be clamped to MinPrice. It is never returned from a run.
type NumericDegeneracyError struct {
	Path  int
	Step  int
	Price float64
}

func (e *NumericDegeneracyError) Error() string {
	return fmt.Sprintf("degenerate price %v at path %d step %d, clamped to %v", e.Price, e.Path, e.Step, MinPrice)
}
