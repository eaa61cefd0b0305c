package agenda

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownAgent = errors.New("unknown capture agent")
)
