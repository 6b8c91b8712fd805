package config

import (
	"strings"
)

// RepoConfig holds repository-specific scan settings.
type RepoConfig struct {
	// Manifest is the path of the dependency manifest inside the repository.
	Manifest string `yaml:"manifest,omitempty"`

	// Ref is the branch, tag or commit to read the manifest from.
	Ref string `yaml:"ref,omitempty"`

	// Ignore lists dependency names that are not checked.
	// Names are compared after PEP 503 normalization.
	Ignore []string `yaml:"ignore,omitempty"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr,omitempty"`

	// AllowedOrigins lists CORS origins allowed to call the API.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// File represents the structure of the .depscan configuration file.
type File struct {
	// Defaults apply to every repository unless overridden.
	Defaults RepoConfig `yaml:"defaults,omitempty"`

	// Repositories maps repository URLs to their settings.
	Repositories map[string]RepoConfig `yaml:"repositories,omitempty"`

	// SitePackages lists site-packages directories for local checks.
	SitePackages []string `yaml:"sitePackages,omitempty"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{
		Repositories: make(map[string]RepoConfig),
	}
}

// GetRepoConfig returns the configuration for a repository URL,
// merging the repository-specific section over the defaults.
func (cf *File) GetRepoConfig(repoURL string) RepoConfig {
	result := cf.Defaults
	if repoConfig, ok := cf.Repositories[normalizeRepoKey(repoURL)]; ok {
		result = mergeRepoConfig(result, repoConfig)
	}
	return result
}

// mergeRepoConfig overlays non-zero override values onto base.
// Ignore lists are concatenated.
func mergeRepoConfig(base, override RepoConfig) RepoConfig {
	result := base
	if override.Manifest != "" {
		result.Manifest = override.Manifest
	}
	if override.Ref != "" {
		result.Ref = override.Ref
	}
	if len(override.Ignore) > 0 {
		ignore := make([]string, 0, len(base.Ignore)+len(override.Ignore))
		ignore = append(ignore, base.Ignore...)
		ignore = append(ignore, override.Ignore...)
		result.Ignore = ignore
	}
	return result
}

// normalizeRepoKey canonicalizes a repository URL for map lookups.
// The scheme and a leading "www." are dropped so that "github.com/a/b" and
// "https://github.com/a/b.git" name the same repository.
func normalizeRepoKey(repoURL string) string {
	key := strings.ToLower(strings.TrimSpace(repoURL))
	key = strings.TrimPrefix(key, "https://")
	key = strings.TrimPrefix(key, "http://")
	key = strings.TrimPrefix(key, "www.")
	key = strings.TrimSuffix(key, "/")
	key = strings.TrimSuffix(key, ".git")
	return key
}
