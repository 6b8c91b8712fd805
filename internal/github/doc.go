// Package github fetches dependency manifests from GitHub repositories
// through the REST contents API.
//
// Requests are unauthenticated. Only the single-file contents endpoint is
// used, so pagination never comes into play.
package github
