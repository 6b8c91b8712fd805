package github

import "errors"

var (
	// ErrInvalidRepoURL is returned when a URL does not point at a GitHub repository.
	ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

	// ErrFileNotFound is returned when the requested file does not exist.
	ErrFileNotFound = errors.New("file not found in repository")

	// ErrNotAFile is returned when the requested path is a directory or symlink.
	ErrNotAFile = errors.New("path is not a regular file")

	// ErrRateLimited is returned when the GitHub API rate limit is exhausted.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded")

	// ErrUnexpectedStatus is returned for any other non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected GitHub API status")
)
