// Package server implements the depscan HTTP API.
//
// POST /analyze takes a repo_url form field (or query parameter, or JSON
// body) and answers with the total vulnerability percentage and one entry
// per dependency. Any failure to produce dependencies is a 400 with a fixed
// message. The API is meant to be called from a browser page, so it
// answers CORS preflights for a configured origin allow-list.
package server
