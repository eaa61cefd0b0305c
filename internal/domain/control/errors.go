package control

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownCamera   = errors.New("unknown camera")
	ErrDuplicateCamera = errors.New("camera configured twice")
	ErrResetTime       = errors.New("invalid reset time, want HH:MM")
)
