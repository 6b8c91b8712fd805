package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
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
	// defaultBaseURL is the public GitHub REST API.
	defaultBaseURL = "https://api.github.com"

	// defaultTimeout is the HTTP client timeout.
	defaultTimeout = 30 * time.Second

	// maxResponseSize caps the contents API response body.
	maxResponseSize = 10 * 1024 * 1024

	apiVersion = "2022-11-28"
)

// Client reads files from GitHub repositories.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
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

// WithBaseURL sets the API base URL. Used for GitHub Enterprise and tests.
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

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a new GitHub client.
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

// contentsResponse is the subset of the contents API response we use.
type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}

// FetchFile returns the decoded contents of path in the repository.
// An empty ref reads from the default branch.
func (c *Client) FetchFile(ctx context.Context, repo Repository, path, ref string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := c.contentsURL(repo, path, ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("fetching repository file", "repo", repo.String(), "path", path, "ref", ref)

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured API base
	if err != nil {
		return nil, fmt.Errorf("GitHub request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrFileNotFound, repo, path)
	case isRateLimited(resp):
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var contents contentsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&contents); err != nil {
		return nil, fmt.Errorf("failed to decode contents response: %w", err)
	}

	if contents.Type != "" && contents.Type != "file" {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAFile, path, contents.Type)
	}
	if contents.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q for %s", contents.Encoding, path)
	}

	// GitHub wraps base64 content at 60 columns.
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}
	return data, nil
}

// FetchRequirements fetches and parses a dependency manifest from a
// repository URL. manifest defaults to requirements.txt.
func (c *Client) FetchRequirements(ctx context.Context, repoURL, manifest, ref string) ([]requirements.Requirement, error) {
	repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	if manifest == "" {
		manifest = "requirements.txt"
	}

	data, err := c.FetchFile(ctx, repo, manifest, ref)
	if err != nil {
		return nil, err
	}

	reqs, err := requirements.ParseManifest(manifest, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", manifest, err)
	}
	return reqs, nil
}

func (c *Client) contentsURL(repo Repository, path, ref string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name), strings.Join(segments, "/"))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}
