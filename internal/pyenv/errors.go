package pyenv

import "errors"

var (
	// ErrPackageNotFound is returned when no installed distribution matches a name.
	ErrPackageNotFound = errors.New("package not installed")

	// ErrOutsideRoot is returned when a path escapes the site-packages root.
	ErrOutsideRoot = errors.New("path escapes site-packages root")

	// ErrFileTooLarge is returned when a file exceeds the read limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrNoMetadata is returned when a distribution has no METADATA or PKG-INFO.
	ErrNoMetadata = errors.New("distribution has no metadata")
)
