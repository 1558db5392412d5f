// Package remote is the HTTP client for the flow store protocol.
//
// Transient failures (5xx, 429, dropped connections) are retried with
// exponential backoff, and a circuit breaker stops hammering a store that
// keeps failing. Every error returned wraps one of the sentinels below and,
// for HTTP failures, an *errors.HTTPError carrying the status code.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/randalmurphal/flowedit/pkg/flowedit"
	"github.com/randalmurphal/flowedit/pkg/flowedit/config"
	ferrors "github.com/randalmurphal/flowedit/pkg/flowedit/errors"
)

// Sentinel errors for remote operations.
var (
	// ErrNetwork indicates the store could not be reached.
	ErrNetwork = errors.New("flow store unreachable")

	// ErrNotFound indicates the store has no flow with the requested id.
	ErrNotFound = errors.New("flow not found")

	// ErrConflict indicates the flow was saved by someone else since it
	// was loaded.
	ErrConflict = errors.New("flow version conflict")

	// ErrMalformed indicates a response that is not a valid flow document.
	ErrMalformed = errors.New("malformed flow document")

	// ErrServer indicates any other non-2xx response.
	ErrServer = errors.New("flow store error")

	// ErrCircuitOpen indicates the breaker is rejecting calls.
	ErrCircuitOpen = errors.New("flow store circuit open")
)

const (
	savePath = "/api/flows/save"
	getPath  = "/api/flows/get/"
)

// Client talks to one flow store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	retry      ferrors.RetryConfig
	logger     *slog.Logger
	businessID string

	breakerFailures uint32
	breakerCooldown time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg ferrors.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithBreaker trips the circuit after failures consecutive transient
// failures and keeps it open for cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.breakerFailures = failures
		}
		if cooldown > 0 {
			c.breakerCooldown = cooldown
		}
	}
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBusinessID tags every save with the owning business.
func WithBusinessID(id string) Option {
	return func(c *Client) {
		c.businessID = id
	}
}

// New creates a client for the store at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: config.DefaultClientTimeout},
		retry:           ferrors.DefaultRetry,
		logger:          slog.Default(),
		breakerFailures: 5,
		breakerCooldown: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "flowstore",
		MaxRequests: 1,
		Timeout:     c.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// Only failures a retry could fix count against the store.
		IsSuccessful: func(err error) bool {
			return err == nil || !ferrors.IsRetryable(err)
		},
	})
	return c, nil
}

// NewFromSettings creates a client from validated settings.
func NewFromSettings(s config.ClientSettings, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: s.Timeout}),
		WithRetry(ferrors.NewRetryConfig(
			ferrors.WithMaxAttempts(s.MaxAttempts),
			ferrors.WithInitialBackoff(s.InitialBackoff),
			ferrors.WithMaxBackoff(s.MaxBackoff),
		)),
		WithBreaker(s.BreakerFailures, s.BreakerCooldown),
	}
	return New(s.BaseURL, append(base, opts...)...)
}

// BaseURL returns the store's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Save posts req to the store. Saves that carry an id are retried on
// transient failures; a first save (no id) is attempted once and the
// caller decides whether to try again.
func (c *Client) Save(ctx context.Context, req SaveRequest) (SaveResponse, error) {
	if req.Nodes == nil {
		req.Nodes = []flowedit.Node{}
	}
	if req.Edges == nil {
		req.Edges = []flowedit.Edge{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return SaveResponse{}, fmt.Errorf("encode save request: %w", err)
	}

	// A save without an id creates a new document on every attempt, so a
	// retry after a lost reply would leave an orphan behind.
	create := req.ID == nil || *req.ID == ""

	var resp SaveResponse
	if err := c.call(ctx, http.MethodPost, savePath, body, !create, &resp); err != nil {
		return SaveResponse{}, err
	}
	if resp.ID == "" {
		return SaveResponse{}, fmt.Errorf("%w: %w", ErrMalformed,
			&ferrors.DecodeError{Endpoint: savePath, Message: "response has no id"})
	}
	resp.Size = int64(len(body))
	return resp, nil
}

// Get fetches the document stored under id.
func (c *Client) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	path := getPath + url.PathEscape(id)

	var doc Document
	if err := c.call(ctx, http.MethodGet, path, nil, true, &doc); err != nil {
		return Document{}, err
	}
	if doc.Nodes == nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformed,
			&ferrors.DecodeError{Endpoint: path, Message: "document has no nodes"})
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// SaveFlow saves f and returns the store's reply. f is not modified; the
// caller adopts the returned id and version.
func (c *Client) SaveFlow(ctx context.Context, f *flowedit.Flow) (SaveResponse, error) {
	return c.Save(ctx, newSaveRequest(f, c.businessID))
}

// GetFlow fetches and hydrates the flow stored under id.
func (c *Client) GetFlow(ctx context.Context, id string) (*flowedit.Flow, error) {
	doc, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return flowedit.NewFlow(doc.ID, doc.Version, doc.Nodes, doc.Edges), nil
}

// call runs one logical request through retry and the breaker and decodes
// a 2xx body into out. Requests that are not idempotent get one attempt.
func (c *Client) call(ctx context.Context, method, path string, body []byte, idempotent bool, out any) error {
	cfg := c.retryConfig(method, path)
	if !idempotent {
		cfg = cfg.Once()
	}
	result := ferrors.WithRetryContext(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		v, err := c.breaker.Execute(func() (interface{}, error) {
			return c.roundTrip(ctx, method, path, body)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ferrors.Permanent(fmt.Errorf("%w: %w", ErrCircuitOpen, err), method+" "+path)
		}
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	})
	if result.Err != nil {
		return result.Err
	}

	if err := json.Unmarshal(result.Value, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed,
			&ferrors.DecodeError{Endpoint: path, Message: err.Error(), Err: err})
	}
	return nil
}

func (c *Client) retryConfig(method, path string) ferrors.RetryConfig {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
			c.logger.Debug("retrying flow store call",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()),
			)
		}
	}
	return cfg
}

// roundTrip performs a single HTTP exchange and classifies the outcome.
func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	httpErr := &ferrors.HTTPError{
		StatusCode: resp.StatusCode,
		Method:     method,
		Endpoint:   path,
		Message:    errorMessage(data, resp.Status),
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, httpErr)
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: %w", ErrConflict, httpErr)
	default:
		return nil, fmt.Errorf("%w: %w", ErrServer, httpErr)
	}
}

// errorMessage extracts the store's message from an error body.
func errorMessage(data []byte, fallback string) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if s := strings.TrimSpace(string(data)); s != "" && len(s) < 256 {
		return s
	}
	return fallback
}
