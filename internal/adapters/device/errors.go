package device

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoURL       = errors.New("camera url missing")
	ErrStatus      = errors.New("unexpected http status")
	ErrBadResponse = errors.New("unrecognised camera response")
)
