package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultBaseURL is the Census Bureau data API root.
	DefaultBaseURL = "https://api.census.gov/data"
	// DefaultDataset is the ACS 5-year profile dataset path under a vintage.
	DefaultDataset = "acs/acs5/profile"

	defaultMaxAttempts = 5
	defaultBackoffBase = 500 * time.Millisecond
	defaultJitter      = 200 * time.Millisecond
	defaultTimeout     = 30 * time.Second
)

// Client issues parameterized GET requests against the remote statistical
// API, retrying transient failures with exponential backoff and jitter.
// Each individual attempt is bounded by the underlying http.Client timeout;
// there is no overall deadline across the retry sequence beyond ctx.
type Client struct {
	http        *http.Client
	baseURL     string
	dataset     string
	apiKey      string
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// WithAPIKey attaches a Census API key to every data query.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each individual request attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBackoffBase sets the base delay of the exponential backoff.
func WithBackoffBase(d time.Duration) ClientOption {
	return func(c *Client) { c.backoffBase = d }
}

// WithMaxAttempts sets the total attempt budget (first try included).
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a Client with the default retry policy.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:        &http.Client{Timeout: defaultTimeout},
		baseURL:     DefaultBaseURL,
		dataset:     DefaultDataset,
		apiKey:      "",
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadJSON fetches rawURL and decodes the response body into v. Transport
// failures and retryable HTTP statuses (429, 500, 502, 503, 504) are retried
// up to the attempt budget; any other HTTP error is fatal immediately. After
// exhausting retries the last observed error is returned, never swallowed.
func (c *Client) ReadJSON(ctx context.Context, rawURL string, v any) error {
	backoff := retry.WithJitter(defaultJitter, retry.NewExponential(c.backoffBase))
	backoff = retry.WithMaxRetries(uint64(c.maxAttempts-1), backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.readOnce(ctx, rawURL, v)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !retryableStatuses[se.Code] {
			return err
		}
		c.logger.Debug("retryable fetch failure", "url", rawURL, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

// Query URL-encodes params as a query string on the vintage's dataset base
// and delegates to ReadJSON. The API key, when configured, rides along.
func (c *Client) Query(ctx context.Context, vintage string, params url.Values, v any) error {
	if c.apiKey != "" {
		params = cloneValues(params)
		params.Set("key", c.apiKey)
	}
	return c.ReadJSON(ctx, c.DatasetURL(vintage)+"?"+params.Encode(), v)
}

// DatasetURL returns the dataset base URL for a vintage, e.g.
// {base}/2023/acs/acs5/profile.
func (c *Client) DatasetURL(vintage string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, vintage, c.dataset)
}

// GroupMetadataURL returns the variable-group metadata document URL.
func (c *Client) GroupMetadataURL(vintage, group string) string {
	return fmt.Sprintf("%s/groups/%s.json", c.DatasetURL(vintage), group)
}

func (c *Client) readOnce(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

func cloneValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, vs := range in {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
