package opencast

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoServer      = errors.New("opencast server url missing or invalid")
	ErrUnknownFormat = errors.New("unknown calendar format")
	ErrStatus        = errors.New("unexpected http status")
	ErrMalformed     = errors.New("malformed calendar")
	ErrAgentNotFound = errors.New("capture agent not registered")
)
