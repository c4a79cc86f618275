package scheduler

import "errors"

var (
	// ErrSweepNotFound is returned when running an unknown sweep by name
	ErrSweepNotFound = errors.New("sweep not found")

	// ErrInvalidConfig is returned when a sweep is registered with bad settings
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrAlreadyRunning is returned when registering a sweep after Start
	ErrAlreadyRunning = errors.New("scheduler is already running")
)
