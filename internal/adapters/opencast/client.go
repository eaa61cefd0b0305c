// Package opencast fetches capture agent schedules from an Opencast server.
package opencast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/camctl/internal/domain/faults"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/pkg/logger"
)

// Calendar formats served by Opencast.
const (
	FormatJSON = "json"
	FormatICS  = "ics"
)

const (
	defaultTimeout   = 5 * time.Second
	maxCalendarBytes = 16 << 20
)

// Client talks to the Opencast recordings and capture-admin endpoints.
type Client struct {
	server   string
	username string
	password string
	format   string
	location *time.Location
	http     *http.Client
	logger   logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithCredentials sets the basic auth credentials.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithFormat selects the calendar format, FormatJSON or FormatICS.
func WithFormat(format string) Option {
	return func(c *Client) {
		if format != "" {
			c.format = strings.ToLower(format)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLocation sets the zone used for dates that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the Opencast server at server.
func NewClient(server string, opts ...Option) (*Client, error) {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		return nil, ErrNoServer
	}
	if _, err := url.ParseRequestURI(server); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoServer, err)
	}
	c := &Client{
		server:   server,
		format:   FormatJSON,
		location: time.Local,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.format != FormatJSON && c.format != FormatICS {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, c.format)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("opencast")
	}
	return c, nil
}

// Fetch returns all events of agentID that start before cutoff, in the order
// the server sent them. Any failure is a *faults.ScheduleFetchError.
func (c *Client) Fetch(ctx context.Context, agentID string, cutoff time.Time) ([]model.Event, error) {
	path := "/recordings/calendar.json"
	if c.format == FormatICS {
		path = "/recordings/calendars"
	}
	params := url.Values{}
	params.Set("agentid", agentID)
	params.Set("cutoff", strconv.FormatInt(cutoff.UnixMilli(), 10))

	c.logger.Info(ctx, "updating calendar", logger.String("agent", agentID), logger.String("format", c.format))

	body, status, err := c.get(ctx, path, params)
	if err != nil {
		return nil, &faults.ScheduleFetchError{Agent: agentID, Status: status, Err: err}
	}
	c.logger.Debug(ctx, "calendar data", logger.String("agent", agentID), logger.Int("bytes", len(body)))

	var events []model.Event
	if c.format == FormatICS {
		events, err = parseICS(ctx, c.logger, body, cutoff)
	} else {
		events, err = parseJSON(ctx, c.logger, body, c.location)
	}
	if err != nil {
		return nil, &faults.ScheduleFetchError{Agent: agentID, Status: status, Err: err}
	}
	return events, nil
}

// VerifyAgent checks that agentID is registered with the capture admin service.
// It returns ErrAgentNotFound for unknown agents.
func (c *Client) VerifyAgent(ctx context.Context, agentID string) error {
	_, status, err := c.get(ctx, "/capture-admin/agents/"+url.PathEscape(agentID)+".json", nil)
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if err != nil {
		return &faults.ScheduleFetchError{Agent: agentID, Status: status, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	u := c.server + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxCalendarBytes))
		return nil, resp.StatusCode, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCalendarBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
