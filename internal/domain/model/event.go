// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Event is one scheduled recording window of a capture agent.
// Values are immutable once built; copy freely.
type Event struct {
	Title string
	Start time.Time
	End   time.Time
}

// NoEvent is returned when an agent has nothing planned.
var NoEvent = Event{}

// NewEvent builds an Event, rejecting windows that end before they start.
func NewEvent(title string, start, end time.Time) (Event, error) {
	if end.Before(start) {
		return Event{}, fmt.Errorf("%w: %q ends %s before it starts %s",
			ErrInvalidWindow, title, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Event{Title: title, Start: start, End: end}, nil
}

// Active reports whether start <= now < end.
func (e Event) Active(now time.Time) bool {
	return !now.Before(e.Start) && now.Before(e.End)
}

// Future reports whether now < start < end.
func (e Event) Future(now time.Time) bool {
	return now.Before(e.Start) && e.Start.Before(e.End)
}

// Over reports whether the event has ended at now.
func (e Event) Over(now time.Time) bool {
	return !now.Before(e.End)
}

// IsZero reports whether e is NoEvent.
func (e Event) IsZero() bool {
	return e.Title == "" && e.Start.IsZero() && e.End.IsZero()
}

func (e Event) String() string {
	return fmt.Sprintf("%s (start: %s, end: %s)", e.Title,
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}
