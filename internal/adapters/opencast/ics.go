package opencast

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
)

// maxOccurrences caps the expansion of one recurring VEVENT.
const maxOccurrences = 500

// parseICS turns an iCalendar payload into events. Recurring VEVENTs are
// expanded up to cutoff.
func parseICS(ctx context.Context, log logger.Logger, body []byte, cutoff time.Time) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty ICS body", ErrMalformed)
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		occ, err := expandVEvent(ve, cutoff)
		if err != nil {
			log.Warn(ctx, "skipping calendar vevent", logger.String("uid", uid(ve)), logger.Error(err))
			continue
		}
		events = append(events, occ...)
	}
	return events, nil
}

func expandVEvent(ve *ical.VEvent, cutoff time.Time) ([]model.Event, error) {
	title := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		title = p.Value
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return nil, fmt.Errorf("DTEND: %w", err)
	}
	first, err := model.NewEvent(title, start, end)
	if err != nil {
		return nil, err
	}

	p := ve.GetProperty(ical.ComponentPropertyRrule)
	if p == nil || p.Value == "" {
		return []model.Event{first}, nil
	}

	r, err := rrule.StrToRRule(p.Value)
	if err != nil {
		return nil, fmt.Errorf("RRULE %q: %w", p.Value, err)
	}
	r.DTStart(start)

	duration := end.Sub(start)
	starts := r.Between(start, cutoff, true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}
	out := make([]model.Event, 0, len(starts))
	for _, s := range starts {
		out = append(out, model.Event{Title: title, Start: s, End: s.Add(duration)})
	}
	return out, nil
}

func uid(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}
