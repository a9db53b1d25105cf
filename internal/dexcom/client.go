// Package dexcom provides a client for the Dexcom Share follower API
package dexcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Share service endpoints, relative to the region base URL
const (
	endpointAuthenticate = "/General/AuthenticatePublisherAccount"
	endpointLogin        = "/General/LoginPublisherAccountById"
	endpointReadings     = "/Publisher/ReadPublisherLatestGlucoseValues"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultSessionRetries = 1
	maxResponseBytes      = 4 << 20
	userAgent             = "glucoshare"
)

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives client events for metrics. Methods must be safe for
// concurrent use.
type Recorder interface {
	RecordHandshake(result string)
	RecordFetch(result string, duration time.Duration)
	RecordSessionRetry()
}

type nopRecorder struct{}

func (nopRecorder) RecordHandshake(string)            {}
func (nopRecorder) RecordFetch(string, time.Duration) {}
func (nopRecorder) RecordSessionRetry()               {}

// Credentials identify the Share publisher account. Exactly one of
// Username and AccountID must be set.
type Credentials struct {
	Username  string
	AccountID string
	Password  string
	Region    string
}

// Client handles communication with the Dexcom Share API
type Client struct {
	username       string
	password       string
	region         string
	regionConfig   RegionConfig
	regionKnown    bool
	baseURL        string
	httpClient     HTTPDoer
	logger         *slog.Logger
	recorder       Recorder
	sessionRetries int

	// mu serializes handshakes, invalidation and glucose requests
	mu        sync.Mutex
	accountID AccountID
	session   *Session
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP transport
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithTimeout sets the request timeout of the default transport
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.httpClient.(*http.Client); ok && timeout > 0 {
			hc.Timeout = timeout
		}
	}
}

// WithBaseURL overrides the region base URL, keeping the region application id
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithSessionRetries sets how many times a fetch re-authenticates after the
// service rejects the session
func WithSessionRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.sessionRetries = n
		}
	}
}

// NewClient validates credentials and creates a Share client. An unknown
// region is reported on the first request, not here.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if creds.Password == "" {
		return nil, &ConfigurationError{Field: "password", Reason: "is required"}
	}

	username := strings.TrimSpace(creds.Username)
	accountID := strings.TrimSpace(creds.AccountID)
	switch {
	case username == "" && accountID == "":
		return nil, &ConfigurationError{Field: "username", Reason: "or account id is required"}
	case username != "" && accountID != "":
		return nil, &ConfigurationError{Field: "username", Reason: "and account id are mutually exclusive"}
	}

	c := &Client{
		username:       username,
		password:       creds.Password,
		region:         creds.Region,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		logger:         slog.Default(),
		recorder:       nopRecorder{},
		sessionRetries: defaultSessionRetries,
	}

	if accountID != "" {
		id, err := parseAccountID(accountID)
		if err != nil {
			return nil, &ConfigurationError{Field: "account id", Reason: err.Error()}
		}
		c.accountID = id
	}

	c.regionConfig, c.regionKnown = ResolveRegion(creds.Region)
	if c.regionKnown {
		c.baseURL = c.regionConfig.BaseURL
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "dexcom", "region", strings.ToLower(creds.Region))

	return c, nil
}

// Region returns the resolved region configuration
func (c *Client) Region() (RegionConfig, bool) {
	return c.regionConfig, c.regionKnown
}

func (c *Client) checkRegion() error {
	if !c.regionKnown {
		return &ConfigurationError{Field: "region", Reason: fmt.Sprintf("%q is not supported", c.region)}
	}
	return nil
}

// buildRequest creates a JSON POST request against the region base URL
func (c *Client) buildRequest(ctx context.Context, endpoint string, params url.Values, payload any) (*http.Request, error) {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

// doRequest executes a request and returns the body. Error descriptors are
// returned as *ServiceError whatever the status code.
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if se, ok := parseServiceError(body, resp.StatusCode); ok {
		return nil, se
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}

	return body, nil
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values, payload any) ([]byte, error) {
	req, err := c.buildRequest(ctx, endpoint, params, payload)
	if err != nil {
		return nil, err
	}
	return c.doRequest(req)
}
