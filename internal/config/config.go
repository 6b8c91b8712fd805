package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each outbound HTTP request (GitHub, PyPI).
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of repositories scanned concurrently.
	DefaultBatchSize = 4

	// DefaultConcurrency is the number of packages checked concurrently
	// within a single scan. PyPI lookups dominate scan time, so a small
	// amount of parallelism helps without hammering the index.
	DefaultConcurrency = 4

	// DefaultManifest is the dependency manifest fetched from repositories.
	DefaultManifest = "requirements.txt"

	// DefaultGitHubAPIURL is the GitHub REST API base URL.
	DefaultGitHubAPIURL = "https://api.github.com"

	// DefaultPyPIURL is the PyPI base URL used for the JSON API.
	DefaultPyPIURL = "https://pypi.org"

	// DefaultRequestsPerSecond limits outbound requests per upstream.
	// Unauthenticated GitHub API access allows 60 requests per hour, so
	// this mostly matters for PyPI.
	DefaultRequestsPerSecond = 10.0

	// DefaultLookupCacheTTL is how long PyPI existence lookups are reused.
	DefaultLookupCacheTTL = 6 * time.Hour

	// DefaultMaxFileSize limits how much of an installed file is read by the
	// code injection check.
	DefaultMaxFileSize = 4 * 1024 * 1024 // 4MB

	// DefaultServerAddr is the address the bundled web frontend posts to.
	DefaultServerAddr = "127.0.0.1:8000"

	// DefaultAllowedOrigin is the origin the bundled web frontend is served from.
	DefaultAllowedOrigin = "http://127.0.0.1:5500"

	// DefaultUserAgent identifies depscan in HTTP requests.
	DefaultUserAgent = "depscan/1.0 (+https://github.com/nao1215/depscan)"

	// AppName is the application name used for XDG directory paths.
	AppName = "depscan"
)

// Config holds all configuration options for depscan.
// It is populated from CLI flags and the optional configuration file and
// passed through the application rather than kept in global state.
type Config struct {
	// Targets is the list of GitHub repository URLs to scan.
	Targets []string

	// Packages restricts a local scan to these distribution names.
	// Empty means every installed distribution.
	Packages []string

	// Timeout is the per-request timeout for GitHub and PyPI calls.
	Timeout time.Duration

	// BatchSize is the number of repositories scanned concurrently.
	BatchSize int

	// Concurrency is the number of packages checked concurrently per scan.
	Concurrency int

	// Manifest is the path of the dependency manifest inside a repository.
	// Overridden per repository by the configuration file.
	Manifest string

	// Ref is the git ref (branch, tag, commit) to read the manifest from.
	// Empty means the repository's default branch.
	Ref string

	// SitePackages lists site-packages directories searched for installed
	// distributions. Empty means auto-discovery.
	SitePackages []string

	// GitHubAPIURL is the GitHub REST API base URL.
	GitHubAPIURL string

	// PyPIURL is the PyPI base URL.
	PyPIURL string

	// RequestsPerSecond limits outbound requests per upstream service.
	// Zero disables rate limiting.
	RequestsPerSecond float64

	// LookupCacheTTL is how long PyPI lookups are cached in the database.
	// Zero disables the cache.
	LookupCacheTTL time.Duration

	// MaxFileSize limits the bytes read from each installed file.
	MaxFileSize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .depscan is searched in the current and home directories.
	ConfigFilePath string

	// File holds the settings loaded from the configuration file.
	File *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// SaveToDB persists scan reports for later comparison.
	SaveToDB bool

	// ServerAddr is the listen address of the HTTP API.
	ServerAddr string

	// AllowedOrigins lists the CORS origins permitted by the HTTP API.
	AllowedOrigins []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		BatchSize:         DefaultBatchSize,
		Concurrency:       DefaultConcurrency,
		Manifest:          DefaultManifest,
		GitHubAPIURL:      DefaultGitHubAPIURL,
		PyPIURL:           DefaultPyPIURL,
		RequestsPerSecond: DefaultRequestsPerSecond,
		LookupCacheTTL:    DefaultLookupCacheTTL,
		MaxFileSize:       DefaultMaxFileSize,
		UserAgent:         DefaultUserAgent,
		ServerAddr:        DefaultServerAddr,
		AllowedOrigins:    []string{DefaultAllowedOrigin},
		File:              NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for depscan.
// On Linux: ~/.local/share/depscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for depscan.
// On Linux: ~/.config/depscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the settings shared by every command.
// Target presence is checked separately by the commands that need targets.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxFileSize < 0 {
		return ErrInvalidMaxFileSize
	}
	if c.Manifest == "" {
		return ErrEmptyManifest
	}
	return nil
}

// ValidateTargets checks that at least one repository URL was given.
func (c *Config) ValidateTargets() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return nil
}

// RepoSettings returns the effective manifest, ref and ignore list for a
// repository, layering the config file over the command-line values.
func (c *Config) RepoSettings(repoURL string) RepoConfig {
	result := RepoConfig{
		Manifest: c.Manifest,
		Ref:      c.Ref,
	}
	if c.File == nil {
		return result
	}
	return mergeRepoConfig(result, c.File.GetRepoConfig(repoURL))
}
