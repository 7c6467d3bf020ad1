package health

import "errors"

var (
	// ErrCheckFailed marks a result produced by a failing component.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is set on results whose checker did not return in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned for an unregistered checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
