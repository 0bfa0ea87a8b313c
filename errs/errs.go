// Package errs defines the error taxonomy shared by the estimation, signal
// and backtest packages.
//
// Fatal conditions (misaligned series, invalid configuration) stop a run
// before the simulation starts. Insufficient or degenerate estimation input
// is reported to the caller. Everything else (undefined z-scores, a pair that
// is not cointegrated, degenerate metrics) is data, not an error.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels for errors.Is. Each typed error below unwraps to one of these.
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrDegenerateInput      = errors.New("degenerate input")
	ErrMisalignedSeries     = errors.New("misaligned series")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// InsufficientDataError is returned when an estimation or rolling window
// needs more observations than are available.
type InsufficientDataError struct {
	What string
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d observations, have %d", e.What, e.Need, e.Have)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// DegenerateInputError is returned when a series has zero variance and the
// regression is ill-posed.
type DegenerateInputError struct {
	Series string
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input %s: %s", e.Series, e.Reason)
}

func (e *DegenerateInputError) Unwrap() error { return ErrDegenerateInput }

// MisalignedSeriesError is returned when the two instrument series do not
// share the same dates one-to-one. Index is the first offending row, or -1
// when the lengths differ.
type MisalignedSeriesError struct {
	Index int
	DateA time.Time
	DateB time.Time
	LenA  int
	LenB  int
}

func (e *MisalignedSeriesError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("misaligned series: length %d vs %d", e.LenA, e.LenB)
	}
	return fmt.Sprintf("misaligned series at row %d: %s vs %s",
		e.Index, e.DateA.Format("2006-01-02"), e.DateB.Format("2006-01-02"))
}

func (e *MisalignedSeriesError) Unwrap() error { return ErrMisalignedSeries }

// InvalidConfigurationError is returned at construction time when a
// parameter, or a combination of parameters, is contradictory.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// InvalidConfig is shorthand for building an InvalidConfigurationError.
func InvalidConfig(field, format string, args ...any) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
