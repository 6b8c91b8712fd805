// Package pypi looks up projects on the Python Package Index JSON API.
package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/depscan/internal/requirements"
)

const (
	// defaultBaseURL is the public package index.
	defaultBaseURL = "https://pypi.org"

	// defaultTimeout is the HTTP client timeout.
	defaultTimeout = 30 * time.Second

	// maxResponseSize caps the JSON API response. Popular projects list
	// thousands of release files, so this is generous.
	maxResponseSize = 64 * 1024 * 1024
)

// ErrEmptyName is returned when a lookup is requested for an empty name.
var ErrEmptyName = errors.New("empty project name")

// Project is the result of a PyPI lookup.
type Project struct {
	// Name is the normalized name that was looked up.
	Name string `json:"name"`

	// Exists is true only when the index answered 200.
	Exists bool `json:"exists"`

	// Version is the latest release, when the project exists.
	Version string `json:"version,omitempty"`

	// Summary is the project's one-line description.
	Summary string `json:"summary,omitempty"`

	// StatusCode is the HTTP status returned by the index.
	StatusCode int `json:"status_code"`

	// CheckedAt is when the lookup was performed.
	CheckedAt time.Time `json:"checked_at"`
}

// Cache stores lookup results between runs.
type Cache interface {
	// GetProject returns a cached project no older than maxAge.
	GetProject(ctx context.Context, name string, maxAge time.Duration) (*Project, bool, error)
	// PutProject stores a lookup result.
	PutProject(ctx context.Context, project *Project) error
}

// Client queries the PyPI JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	cache      Cache
	cacheTTL   time.Duration
	onCache    func(hit bool)
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBaseURL sets the index base URL.
func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// WithRateLimit limits outbound requests to rps per second.
// A non-positive value disables limiting.
func WithRateLimit(rps float64) Option {
	return func(client *Client) {
		if rps <= 0 {
			client.limiter = nil
			return
		}
		client.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCache enables lookup caching with the given TTL.
// A nil cache or non-positive TTL disables caching.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(client *Client) {
		client.cache = cache
		client.cacheTTL = ttl
	}
}

// WithCacheObserver registers fn to be called with the outcome of every
// cache read.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(client *Client) {
		client.onCache = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a new PyPI client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		userAgent:  "depscan",
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type projectResponse struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Summary string `json:"summary"`
	} `json:"info"`
}

// Lookup queries the index for a project.
//
// Only a 200 response marks the project as existing. Any other status
// yields Exists=false with StatusCode set. Transport failures are returned
// as errors.
func (c *Client) Lookup(ctx context.Context, name string) (*Project, error) {
	normalized := requirements.NormalizeName(name)
	if normalized == "" {
		return nil, ErrEmptyName
	}

	if c.cacheEnabled() {
		cached, ok, err := c.cache.GetProject(ctx, normalized, c.cacheTTL)
		if err != nil {
			c.logger.Warn("failed to read lookup cache", "package", normalized, "error", err)
		} else {
			if c.onCache != nil {
				c.onCache(ok)
			}
			if ok {
				c.logger.Debug("lookup cache hit", "package", normalized)
				return cached, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(normalized))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured index base
	if err != nil {
		return nil, fmt.Errorf("PyPI request failed: %w", err)
	}
	defer resp.Body.Close()

	project := &Project{
		Name:       normalized,
		StatusCode: resp.StatusCode,
		CheckedAt:  time.Now().UTC(),
	}

	if resp.StatusCode == http.StatusOK {
		var body projectResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode PyPI response: %w", err)
		}
		project.Exists = true
		project.Version = body.Info.Version
		project.Summary = body.Info.Summary
	}

	c.logger.Debug("looked up package", "package", normalized, "status", resp.StatusCode)

	// Only definitive answers are cached; 5xx and throttling are retried next time.
	if c.cacheEnabled() && (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound) {
		if err := c.cache.PutProject(ctx, project); err != nil {
			c.logger.Warn("failed to write lookup cache", "package", normalized, "error", err)
		}
	}

	return project, nil
}

// Exists reports whether the index answers 200 for name.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	p, err := c.Lookup(ctx, name)
	if err != nil {
		return false, err
	}
	return p.Exists, nil
}

func (c *Client) cacheEnabled() bool {
	return c.cache != nil && c.cacheTTL > 0
}
