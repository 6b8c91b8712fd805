package github

import (
	"fmt"
	"regexp"
	"strings"
)

// reRepoURL matches https://github.com/<owner>/<repo> with an optional suffix.
var reRepoURL = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/\s?#]+)/([^/\s?#]+)`)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// URL returns the canonical web URL of the repository.
func (r Repository) URL() string {
	return "https://github.com/" + r.String()
}

// ParseRepoURL extracts the owner and repository name from a GitHub URL.
// Anything after the repository segment (tree/main, issues, ...) is ignored
// and a trailing ".git" is removed.
func ParseRepoURL(rawURL string) (Repository, error) {
	m := reRepoURL.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return Repository{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, rawURL)
	}

	repo := Repository{
		Owner: m[1],
		Name:  strings.TrimSuffix(m[2], ".git"),
	}
	if repo.Name == "" {
		return Repository{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, rawURL)
	}
	return repo, nil
}
