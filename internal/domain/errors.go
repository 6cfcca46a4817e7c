package domain

import "errors"

var (
	// ErrNotFound is returned when a candidate or trade id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on an invalid state-machine transition, for
	// example accepting a candidate that is already terminal.
	ErrConflict = errors.New("conflict: invalid state transition")
	// ErrInvalidInput marks a malformed leg or candidate payload. Malformed
	// elements are dropped with a warning; they never abort a tick.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataUnavailable marks a missing feed or feature. Callers degrade to
	// NO_CANDIDATE / DEGRADED instead of failing hard.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrComputationInvalid marks unmet probability/EV preconditions. The
	// metric is reported as nil together with a warning.
	ErrComputationInvalid = errors.New("computation preconditions unmet")
)
