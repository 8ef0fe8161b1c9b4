package health

import "errors"

var (
	// ErrCheckFailed marks a probe that ran and came back negative.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks a probe that did not answer in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned when asking for an unregistered check.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
