package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidWindow = errors.New("invalid event window")
	ErrUnknownMode   = errors.New("unknown control mode")
	ErrUnknownVendor = errors.New("unknown camera type")
)
