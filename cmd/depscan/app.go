package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/depscan/internal/check"
	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/database"
	"github.com/nao1215/depscan/internal/github"
	seclog "github.com/nao1215/depscan/internal/log"
	"github.com/nao1215/depscan/internal/metrics"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pipeline"
	"github.com/nao1215/depscan/internal/pyenv"
	"github.com/nao1215/depscan/internal/pypi"
	"github.com/spf13/cobra"
)

// app holds the collaborators shared by the scan, local, serve and mcp
// commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	// db is nil when neither history nor the lookup cache is enabled.
	db  *database.ScanDB
	env *pyenv.Environment

	deps pipeline.Deps
}

// newApp wires the GitHub and PyPI clients, the installed environment and
// the analyzer from cfg. m may be nil.
func newApp(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.DBDir != "" && (cfg.SaveToDB || cfg.LookupCacheTTL > 0) {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("database opened", "path", db.Path())
		a.db = db
	}

	a.env = pyenv.NewEnvironment(sitePackages(cfg), pyenv.WithMaxFileSize(cfg.MaxFileSize))
	logger.Debug("site-packages", "paths", a.env.Paths())

	httpClient := &http.Client{Timeout: cfg.Timeout}

	gh := github.NewClient(
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithHTTPClient(httpClient),
		github.WithUserAgent(cfg.UserAgent),
		github.WithRateLimit(cfg.RequestsPerSecond),
		github.WithLogger(logger),
	)

	pypiOpts := []pypi.Option{
		pypi.WithBaseURL(cfg.PyPIURL),
		pypi.WithHTTPClient(httpClient),
		pypi.WithUserAgent(cfg.UserAgent),
		pypi.WithRateLimit(cfg.RequestsPerSecond),
		pypi.WithLogger(logger),
	}
	if a.db != nil && cfg.LookupCacheTTL > 0 {
		pypiOpts = append(pypiOpts, pypi.WithCache(a.db, cfg.LookupCacheTTL))
	}
	analyzerOpts := []check.Option{
		check.WithConcurrency(cfg.Concurrency),
		check.WithLogger(logger),
	}
	if m != nil {
		pypiOpts = append(pypiOpts, pypi.WithCacheObserver(m.ObserveCacheLookup))
		analyzerOpts = append(analyzerOpts, check.WithObserver(m))
	}

	a.deps = pipeline.Deps{
		Fetcher:     gh,
		Environment: a.env,
		Analyzer:    check.NewAnalyzer(a.env, pypi.NewClient(pypiOpts...), analyzerOpts...),
	}
	return a, nil
}

// Close releases the database, if one was opened.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// service returns a pipeline.Service saving successful scans to history.
func (a *app) service(opts ...pipeline.ServiceOption) *pipeline.Service {
	opts = append(opts, pipeline.WithServiceLogger(a.logger))
	if a.db != nil && a.cfg.SaveToDB {
		opts = append(opts, pipeline.WithStore(a.db))
	}
	return pipeline.NewService(a.deps, a.cfg, opts...)
}

// saveScanReport saves the scan report to the database if enabled.
// Failed scans are not saved, so history only holds comparable results.
func (a *app) saveScanReport(ctx context.Context, report *model.ScanReport) error {
	if a.db == nil || !a.cfg.SaveToDB || report.ErrorMessage != "" {
		return nil
	}

	id, err := a.db.SaveScanReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	a.logger.Info("scan report saved to database", "target", report.Target, "id", id)
	return nil
}

// sitePackages returns the site-packages directories from the flags,
// falling back to the configuration file.
func sitePackages(cfg *config.Config) []string {
	if len(cfg.SitePackages) > 0 {
		return cfg.SitePackages
	}
	if cfg.File != nil {
		return cfg.File.SitePackages
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the redacting logger used by every command.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return seclog.NewSecureLogger(w, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// errScansFailed is returned when at least one scan ended with an error.
var errScansFailed = errors.New("scan failed")
