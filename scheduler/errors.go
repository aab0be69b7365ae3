package scheduler

import "errors"

var (
	// ErrRunnerRequired is returned when creating a Scheduler without a batch runner.
	ErrRunnerRequired = errors.New("batch runner is required")

	// ErrInvalidDelay is returned for a pause delay that is neither a known
	// preset nor a non-negative number of seconds.
	ErrInvalidDelay = errors.New("invalid pause delay")

	// ErrInvalidInterval is returned for a non-positive loop interval.
	ErrInvalidInterval = errors.New("interval must be positive")
)
