// Package log provides slog loggers that mask sensitive values.
//
// depscan talks to GitHub and PyPI and reads manifests that may contain
// private index URLs. SecureHandler masks:
//   - HTTP headers (Authorization, Cookie, X-Api-Key)
//   - attributes whose key mentions a password, token or secret
//   - GitHub and PyPI tokens, JWTs, bearer and basic credentials
//   - URLs carrying user:password@ credentials
//
// Masking applies in verbose mode too.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("fetching manifest",
//	    "repo", "https://github.com/pallets/flask", // logged as-is
//	    "token", os.Getenv("GITHUB_TOKEN"),         // logged as ***REDACTED***
//	)
package log
