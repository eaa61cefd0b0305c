package metrics

import "time"

// Discard is a Sink that drops every observation.
type Discard struct{}

var _ Sink = Discard{}

func (Discard) RequestError(string, string)       {}
func (Discard) CalendarUpdated(string, time.Time) {}
func (Discard) CameraExpected(string, int)        {}
func (Discard) CameraPosition(string, int)        {}
func (Discard) CameraPower(string, bool)          {}
func (Discard) CameraMode(string, bool)           {}
