package model

import (
	"fmt"
	"strings"
)

// Mode tells whether the reconciliation loop governs a camera.
type Mode string

// Control modes.
const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
)

// ParseMode accepts "automatic" or "manual" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAutomatic:
		return ModeAutomatic, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Vendor names a camera command family.
type Vendor string

// Supported vendors.
const (
	VendorPanasonic Vendor = "panasonic"
	VendorSony      Vendor = "sony"
)

// Power is the power state reported by a camera.
type Power int

// Power states.
const (
	PowerStandby Power = iota
	PowerOn
)

func (p Power) String() string {
	if p == PowerOn {
		return "on"
	}
	return "standby"
}

// UnknownPosition marks a camera whose preset has not been confirmed yet.
const UnknownPosition = -1
