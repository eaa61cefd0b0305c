// Package faults defines the failure kinds raised by remote calls and the
// classification the fault-isolation guard relies on.
package faults

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind labels used in logs and the request_errors metric.
const (
	KindScheduleFetch    = "ScheduleFetchError"
	KindDeviceComm       = "DeviceCommError"
	KindPresetOutOfRange = "PresetOutOfRangeError"
	KindPowerTransition  = "PowerTransitionTimeoutError"
	KindTimeout          = "Timeout"
	KindConnection       = "ConnectionError"
	KindPanic            = "Panic"
	KindUnknown          = "UnknownError"
)

// Kinded is implemented by errors that carry their own metrics label.
type Kinded interface {
	error
	Kind() string
}

// ScheduleFetchError reports an unreachable, failing or malformed schedule source.
type ScheduleFetchError struct {
	Agent  string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *ScheduleFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch schedule of agent %s: status %d: %v", e.Agent, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch schedule of agent %s: %v", e.Agent, e.Err)
}

func (e *ScheduleFetchError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *ScheduleFetchError) Kind() string { return KindScheduleFetch }

// DeviceCommError reports a camera that could not be reached or answered with a non-2xx status.
type DeviceCommError struct {
	Camera string
	Op     string
	Status int
	Err    error
}

func (e *DeviceCommError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("camera %s: %s: status %d: %v", e.Camera, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("camera %s: %s: %v", e.Camera, e.Op, e.Err)
}

func (e *DeviceCommError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *DeviceCommError) Kind() string { return KindDeviceComm }

// PresetOutOfRangeError is returned before any network call for presets the vendor cannot address.
type PresetOutOfRangeError struct {
	Camera string
	Preset int
	Min    int
	Max    int
}

func (e *PresetOutOfRangeError) Error() string {
	return fmt.Sprintf("camera %s: preset %d out of range [%d, %d]", e.Camera, e.Preset, e.Min, e.Max)
}

// Kind implements Kinded.
func (e *PresetOutOfRangeError) Kind() string { return KindPresetOutOfRange }

// PowerTransitionTimeoutError is returned when a camera stays in its
// standby-to-on transition longer than the poll budget.
type PowerTransitionTimeoutError struct {
	Camera   string
	Attempts int
}

func (e *PowerTransitionTimeoutError) Error() string {
	return fmt.Sprintf("camera %s: still powering up after %d polls", e.Camera, e.Attempts)
}

// Kind implements Kinded.
func (e *PowerTransitionTimeoutError) Kind() string { return KindPowerTransition }

// KindOf returns the metrics label for err.
func KindOf(err error) string {
	var k Kinded
	switch {
	case err == nil:
		return ""
	case errors.As(err, &k):
		return k.Kind()
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindConnection
	}
	return KindUnknown
}

// Transport reports whether err is a recognised transport-class failure:
// connection refused, HTTP error status, timeout, or one of the fault kinds above.
func Transport(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindUnknown, KindPanic:
		return false
	default:
		return true
	}
}
