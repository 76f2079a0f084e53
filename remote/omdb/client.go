// Package omdb is a remote.Lookup for the OMDb search endpoint.
package omdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-media-cache/media"
	"github.com/goliatone/go-media-cache/remote"
)

const (
	DefaultBaseURL = "https://www.omdbapi.com/"
	defaultTimeout = 10 * time.Second
	userAgent      = "mediasearch/1.0"
	maxBodySize    = 1 << 20
)

// Errors returned by the client. The transport and status errors match
// media.ErrRemote, the body errors match media.ErrEmptyBody.
var (
	ErrUnreachable      = fmt.Errorf("omdb: server unreachable: %w", media.ErrRemote)
	ErrUnauthorized     = fmt.Errorf("omdb: unauthorized: %w", media.ErrRemote)
	ErrUnexpectedStatus = fmt.Errorf("omdb: unexpected status: %w", media.ErrRemote)
	ErrEmptyBody        = fmt.Errorf("omdb: %w", media.ErrEmptyBody)
	ErrMalformedBody    = fmt.Errorf("omdb: malformed body: %w", media.ErrEmptyBody)
)

// Config holds the client settings.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables limiting
	Burst     int           `mapstructure:"burst"`
	MediaType string        `mapstructure:"media_type"` // "", "movie", "series" or "episode"
}

// DefaultConfig returns the public endpoint with a 10s timeout and 5 req/s.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   defaultTimeout,
		RateLimit: 5,
		Burst:     1,
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(1)),
		validation.Field(&c.MediaType, validation.In("movie", "series", "episode")),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

// Client calls the OMDb search endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ remote.Lookup = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("omdb config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logger:     logger.With("component", "omdb"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search returns the first page of results for query.
func (c *Client) Search(ctx context.Context, query string) (*media.SearchResult, error) {
	return c.SearchPage(ctx, query, 0)
}

// SearchPage returns one page of results. Pages start at 1; 0 lets OMDb
// pick its default.
func (c *Client) SearchPage(ctx context.Context, query string, page int) (*media.SearchResult, error) {
	params := url.Values{}
	params.Set("s", query)
	if c.cfg.MediaType != "" {
		params.Set("type", c.cfg.MediaType)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	resp, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}
	return MapSearchResponse(resp), nil
}

// doRequest waits for the rate limiter and performs the GET.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	logged := params.Encode()
	params.Set("apikey", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("omdb request", "params", logged)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("omdb request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnreachable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, upstreamMessage(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("omdb request error", "status", resp.StatusCode, "bodyLen", len(body))
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return body, nil
}

func (c *Client) parseResponse(body []byte) (*SearchResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyBody
	}

	var resp *SearchResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if resp == nil {
		return nil, ErrEmptyBody
	}
	return resp, nil
}

// upstreamMessage extracts the Error field of an OMDb error body, if any.
func upstreamMessage(body []byte) string {
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return http.StatusText(http.StatusUnauthorized)
}
