package opencast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
)

// calendarEntry mirrors one element of /recordings/calendar.json.
type calendarEntry struct {
	Data struct {
		StartDate   string            `json:"startDate"`
		EndDate     string            `json:"endDate"`
		AgentConfig map[string]string `json:"agentConfig"`
	} `json:"data"`
}

// parseJSON turns a calendar.json payload into events. A payload that is not
// a JSON array fails as a whole; single broken records are logged and skipped.
func parseJSON(ctx context.Context, log logger.Logger, body []byte, loc *time.Location) ([]model.Event, error) {
	var entries []calendarEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	events := make([]model.Event, 0, len(entries))
	for i, entry := range entries {
		ev, err := entry.event(loc)
		if err != nil {
			log.Warn(ctx, "skipping calendar entry", logger.Int("index", i), logger.Error(err))
			continue
		}
		log.Debug(ctx, "got event", logger.String("event", ev.String()))
		events = append(events, ev)
	}
	return events, nil
}

func (e calendarEntry) event(loc *time.Location) (model.Event, error) {
	start, err := parseDate(e.Data.StartDate, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseDate(e.Data.EndDate, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("endDate: %w", err)
	}
	return model.NewEvent(e.Data.AgentConfig["event.title"], start, end)
}

// parseDate accepts the free-form dates Opencast emits, reading ambiguous
// numeric dates day first.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrMalformed)
	}
	t, err := dateparse.ParseIn(s, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return t, nil
}
