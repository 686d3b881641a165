package domain

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError reports invalid or contradictory configuration. It is fatal:
// the run aborts before any processing starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// DataUnavailableError reports that no data from the named source covers the
// requested time or region. Fatal for the affected date or pair when the
// source is the weather model, the DEM, or the interferogram itself;
// radar-only gaps degrade silently to the model estimate.
type DataUnavailableError struct {
	Source string // "radar", "nwp", "dem", "interferogram"
	At     time.Time
	Detail string
}

func (e *DataUnavailableError) Error() string {
	if e.At.IsZero() {
		return fmt.Sprintf("%s data unavailable: %s", e.Source, e.Detail)
	}
	return fmt.Sprintf("%s data unavailable for %s: %s",
		e.Source, e.At.UTC().Format("2006-01-02 15:04"), e.Detail)
}

// IsDataUnavailable reports whether err is (or wraps) a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}

// MissingBaselineError reports an interferogram pair with no row in the
// baseline table. The pair is skipped with a warning; the run continues.
type MissingBaselineError struct {
	Master Date
	Slave  Date
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("no baseline record for pair %s", PairKey(e.Master, e.Slave))
}

// GridMismatchError reports an interferogram whose extent does not overlap
// the target grid at all. The interferogram is skipped with a warning.
type GridMismatchError struct {
	Detail string
}

func (e *GridMismatchError) Error() string { return "grid mismatch: " + e.Detail }

// ErrIncomplete marks time-series entries for dates unreachable from the
// master through the corrected network. It is a data-quality marker, not a
// processing failure.
var ErrIncomplete = errors.New("incomplete: date not connected to master")
