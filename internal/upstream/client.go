package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"playerdash/internal/analytics"

	log "github.com/sirupsen/logrus"
)

const (
	endpointPlayers   = "/api/players"
	endpointTimeRange = "/api/player-time-range"
	endpointAnalytics = "/api/player-analytics"

	// maxErrorBody bounds how much of a failed response body is kept
	maxErrorBody = 512
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the remote analytics service. It is read-only and never retries.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	metrics    *Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics enables request instrumentation
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client for the service rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Players fetches the roster in arrival order
func (c *Client) Players(ctx context.Context) ([]analytics.Subject, error) {
	var wire []analytics.WirePlayer
	if err := c.getJSON(ctx, endpointPlayers, nil, &wire); err != nil {
		return nil, err
	}

	subjects := make([]analytics.Subject, 0, len(wire))
	for _, p := range wire {
		subjects = append(subjects, p.Subject())
	}
	return subjects, nil
}

// TimeRange resolves the observation window for a subject. Only the first
// element of the response is used; an empty response yields ErrNoWindow.
func (c *Client) TimeRange(ctx context.Context, subjectID string) (analytics.ObservationWindow, error) {
	var wire []analytics.WireTimeRange
	q := url.Values{"player_id": {subjectID}}
	if err := c.getJSON(ctx, endpointTimeRange, q, &wire); err != nil {
		return analytics.ObservationWindow{}, err
	}
	if len(wire) == 0 {
		return analytics.ObservationWindow{}, fmt.Errorf("player %s: %w", subjectID, analytics.ErrNoWindow)
	}
	if len(wire) > 1 {
		log.Debugf("time range for player %s returned %d windows, using the first", subjectID, len(wire))
	}
	return wire[0].Window()
}

// Analytics runs the bounded-window analytics query
func (c *Client) Analytics(ctx context.Context, req analytics.AnalysisRequest) (analytics.AnalyticsResult, error) {
	q := url.Values{
		"player_id":  {req.SubjectID},
		"start_time": {strconv.FormatInt(req.StartMicros(), 10)},
		"end_time":   {strconv.FormatInt(req.EndMicros(), 10)},
	}

	var wire analytics.WireResult
	if err := c.getJSON(ctx, endpointAnalytics, q, &wire); err != nil {
		return analytics.AnalyticsResult{}, err
	}

	result := wire.Result()
	if err := result.Validate(); err != nil {
		// the service is trusted; keep the result but leave a trace
		log.Warnf("player %s analytics: %s", req.SubjectID, err)
	}
	return result, nil
}

// URL returns the absolute URL for endpoint with query q
func (c *Client) URL(endpoint string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		c.observe(endpoint, start, err)
	}()

	reqURL := c.URL(endpoint, q)
	log.Debugf("GET %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) observe(endpoint string, start time.Time, err error) {
	outcome := "ok"
	var statusErr *StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		outcome = strconv.Itoa(statusErr.StatusCode)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	default:
		outcome = "error"
	}

	if err != nil {
		log.Warnf("GET %s failed after %s: %s", endpoint, time.Since(start).Round(time.Millisecond), err)
	}

	if c.metrics == nil {
		return
	}
	c.metrics.CounterRequests.WithLabelValues(endpoint, outcome).Inc()
	c.metrics.HistogramRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
