package worker

import "errors"

// Sentinel error kinds for this package.
var (
	ErrStarted         = errors.New("worker pool already started")
	ErrShutdownTimeout = errors.New("worker shutdown timed out")
)
