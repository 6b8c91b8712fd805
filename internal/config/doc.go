// Package config provides configuration structures and utilities for depscan.
// It defines the main configuration options for scanning Python dependencies,
// the HTTP API server, and report generation preferences.
package config
