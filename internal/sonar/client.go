// Package sonar queries the analysis server's web API for the measures of
// a scanned project.
package sonar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ppiankov/sonarsweep/internal/logging"
	"github.com/ppiankov/sonarsweep/internal/models"
)

const (
	// DefaultURL is used when no server URL is configured.
	DefaultURL = "http://localhost:9000"

	// DefaultDelay is the wait between a finished scan and the measures
	// query, giving the server time to process the uploaded report.
	DefaultDelay = 15 * time.Second

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	measuresPath  = "/api/measures/component"
	componentPath = "/api/components/show"
	statusPath    = "/api/system/status"
)

// ErrUnexpectedResponse is returned when a 200 response lacks component.measures.
var ErrUnexpectedResponse = errors.New("response has no component.measures")

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the context-aware default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options configures a Client.
type Options struct {
	Delay   time.Duration
	Timeout time.Duration
	Metrics []string
	Sleep   SleepFunc
}

// Client talks to the measures API with a bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	metrics    []string
	sleep      SleepFunc
	log        *logging.Logger
}

// New creates an API client. Returns nil if token is empty; every method
// on a nil Client returns an empty result.
func New(baseURL, token string, opts Options, log *logging.Logger) *Client {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if len(opts.Metrics) == 0 {
		opts.Metrics = models.MeasureMetrics
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = opts.Timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		delay:      opts.Delay,
		metrics:    opts.Metrics,
		sleep:      opts.Sleep,
		log:        log,
	}
}

// measuresResponse is the body of GET /api/measures/component.
type measuresResponse struct {
	Component *struct {
		Key      string    `json:"key"`
		Measures []measure `json:"measures"`
	} `json:"component"`
}

type measure struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// Poll waits the configured delay, then fetches the measures of key once.
// Any failure is logged and yields an empty map; there is no retry.
func (c *Client) Poll(ctx context.Context, key string) map[string]models.Value {
	if c == nil {
		return map[string]models.Value{}
	}

	if c.delay > 0 {
		c.log.Verbosef("waiting %s for the server to process %s", c.delay, key)
		if err := c.sleep(ctx, c.delay); err != nil {
			c.log.Warnf("wait for %s interrupted: %v", key, err)
			return map[string]models.Value{}
		}
	}

	measures, err := c.FetchMeasures(ctx, key)
	if err != nil {
		c.log.Errorf("failed to fetch measures for %s: %v", key, err)
		return map[string]models.Value{}
	}

	out := make(map[string]models.Value, len(measures))
	for k, v := range measures {
		out[k] = models.String(v)
	}
	c.log.Verbosef("fetched %d measures for %s", len(out), key)
	return out
}

// FetchMeasures issues one authenticated GET and flattens the measures list
// into metric name -> value.
func (c *Client) FetchMeasures(ctx context.Context, key string) (map[string]string, error) {
	if c == nil {
		return map[string]string{}, nil
	}

	q := url.Values{}
	q.Set("component", key)
	q.Set("metricKeys", strings.Join(c.metrics, ","))

	resp, err := c.get(ctx, measuresPath, q)
	if err != nil {
		return nil, fmt.Errorf("fetch measures: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (HTTP %d)", resp.StatusCode)
	}

	var body measuresResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if body.Component == nil || body.Component.Measures == nil {
		return nil, ErrUnexpectedResponse
	}

	out := make(map[string]string, len(body.Component.Measures))
	for _, m := range body.Component.Measures {
		if m.Metric == "" {
			continue
		}
		out[m.Metric] = m.Value
	}
	return out, nil
}

// ComponentExists reports whether the server knows a project with key.
func (c *Client) ComponentExists(ctx context.Context, key string) (bool, error) {
	if c == nil {
		return false, nil
	}

	q := url.Values{}
	q.Set("component", key)

	resp, err := c.get(ctx, componentPath, q)
	if err != nil {
		return false, fmt.Errorf("check component: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, fmt.Errorf("token rejected (HTTP %d)", resp.StatusCode)
	default:
		return false, fmt.Errorf("API error (HTTP %d)", resp.StatusCode)
	}
}

// ServerStatus returns the server's reported status, e.g. "UP".
func (c *Client) ServerStatus(ctx context.Context) (string, error) {
	if c == nil {
		return "", nil
	}

	resp, err := c.get(ctx, statusPath, nil)
	if err != nil {
		return "", fmt.Errorf("server status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (HTTP %d)", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.Version != "" {
		return body.Status + " (" + body.Version + ")", nil
	}
	return body.Status, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debugf("GET %s", u)
	return c.httpClient.Do(req)
}
