// Package simulator provides in-process stand-ins for an Opencast server
// and for Panasonic and Sony PTZ cameras. It backs local runs of camctl
// and the integration tests.
package simulator

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// Event is one scheduled recording served by the fake Opencast.
type Event struct {
	UID   string
	Title string
	Start time.Time
	End   time.Time
}

// Opencast serves the recordings calendar and capture-admin endpoints for
// a set of agents held in memory.
type Opencast struct {
	mu       sync.Mutex
	agents   map[string][]Event
	failures int
	requests int
	username string
	password string
	mux      *http.ServeMux
}

// NewOpencast returns a server knowing the given agents, each without events.
func NewOpencast(agents ...string) *Opencast {
	o := &Opencast{agents: make(map[string][]Event)}
	for _, a := range agents {
		o.agents[a] = nil
	}
	o.mux = http.NewServeMux()
	o.mux.HandleFunc("GET /recordings/calendar.json", o.handleJSON)
	o.mux.HandleFunc("GET /recordings/calendars", o.handleICS)
	o.mux.HandleFunc("GET /capture-admin/agents/{file}", o.handleAgent)
	return o
}

// RequireAuth makes every endpoint demand basic auth.
func (o *Opencast) RequireAuth(username, password string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.username, o.password = username, password
}

// AddEvent schedules a recording for agent and returns its uid.
func (o *Opencast) AddEvent(agent, title string, start, end time.Time) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := uuid.NewString()
	o.agents[agent] = append(o.agents[agent], Event{UID: id, Title: title, Start: start, End: end})
	return id
}

// Clear removes every event of agent.
func (o *Opencast) Clear(agent string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[agent] = nil
}

// FailNext makes the next n calendar requests answer 500.
func (o *Opencast) FailNext(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = n
}

// Requests returns how many calendar requests were served or failed.
func (o *Opencast) Requests() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests
}

// ServeHTTP implements http.Handler.
func (o *Opencast) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	user, pass := o.username, o.password
	o.mu.Unlock()
	if user != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="opencast"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	o.mux.ServeHTTP(w, r)
}

// calendarEvents returns the events of the requested agent starting before
// the cutoff, or false after writing an error.
func (o *Opencast) calendarEvents(w http.ResponseWriter, r *http.Request) ([]Event, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests++
	if o.failures > 0 {
		o.failures--
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return nil, false
	}
	agent := r.URL.Query().Get("agentid")
	events, ok := o.agents[agent]
	if !ok {
		http.Error(w, "unknown agent", http.StatusNotFound)
		return nil, false
	}
	cutoff := time.Now().Add(7 * 24 * time.Hour)
	if ms, err := strconv.ParseInt(r.URL.Query().Get("cutoff"), 10, 64); err == nil {
		cutoff = time.UnixMilli(ms)
	}
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.Before(cutoff) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, true
}

type jsonEntry struct {
	Data struct {
		StartDate   string            `json:"startDate"`
		EndDate     string            `json:"endDate"`
		AgentConfig map[string]string `json:"agentConfig"`
	} `json:"data"`
}

func (o *Opencast) handleJSON(w http.ResponseWriter, r *http.Request) {
	events, ok := o.calendarEvents(w, r)
	if !ok {
		return
	}
	entries := make([]jsonEntry, len(events))
	for i, ev := range events {
		entries[i].Data.StartDate = ev.Start.UTC().Format(time.RFC3339)
		entries[i].Data.EndDate = ev.End.UTC().Format(time.RFC3339)
		entries[i].Data.AgentConfig = map[string]string{
			"event.title":      ev.Title,
			"event.identifier": ev.UID,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (o *Opencast) handleICS(w http.ResponseWriter, r *http.Request) {
	events, ok := o.calendarEvents(w, r)
	if !ok {
		return
	}
	cal := ical.NewCalendar()
	cal.SetProductId("-//camctl//simulator//EN")
	now := time.Now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
	}
	w.Header().Set("Content-Type", "text/calendar")
	_, _ = w.Write([]byte(cal.Serialize()))
}

func (o *Opencast) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".json")
	o.mu.Lock()
	_, known := o.agents[id]
	o.mu.Unlock()
	if !ok || !known {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"agent-state-update": map[string]string{"name": id, "state": "idle"},
	})
}
