package domain

import "errors"

// Domain errors represent error conditions in the tracejack domain.
// They are wrapped with context by the packages that return them and can be
// checked with errors.Is.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("tracejack: invalid configuration")

	// ErrInvalidDuration is returned for a malformed duration string.
	ErrInvalidDuration = errors.New("tracejack: invalid duration")

	// ErrInvalidRenameRule is returned for a malformed /pattern/replacement/ rule.
	ErrInvalidRenameRule = errors.New("tracejack: invalid rename rule")

	// ErrUnknownFormat is returned for a file format name outside the supported set.
	ErrUnknownFormat = errors.New("tracejack: unknown format")

	// ErrEmptySelection is returned when no trace matches the selection.
	ErrEmptySelection = errors.New("tracejack: no data selected")

	// ErrTooShort is returned when a trace has too few samples to be resampled.
	ErrTooShort = errors.New("tracejack: trace too short")

	// ErrNoData is returned when a trace has no samples in the requested range.
	ErrNoData = errors.New("tracejack: no data in range")

	// ErrUnavailableDecimation is returned when the target sample interval is
	// not an integer multiple of the trace's sample interval.
	ErrUnavailableDecimation = errors.New("tracejack: unavailable decimation")

	// ErrWrite is returned when an output file cannot be written.
	ErrWrite = errors.New("tracejack: write failed")

	// ErrInterrupted is returned when a run was stopped by user request.
	ErrInterrupted = errors.New("tracejack: interrupted")
)
