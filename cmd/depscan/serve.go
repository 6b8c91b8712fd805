package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nao1215/depscan/internal/config"
	seclog "github.com/nao1215/depscan/internal/log"
	"github.com/nao1215/depscan/internal/metrics"
	"github.com/nao1215/depscan/internal/pipeline"
	"github.com/nao1215/depscan/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is the prefix of environment variables read by serve.
// DEPSCAN_ADDR sets --addr, DEPSCAN_RATE_LIMIT sets --rate-limit, and so on.
const envPrefix = "DEPSCAN"

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes the repository scan over HTTP.

Endpoints:
  POST /analyze   form field (or JSON key) repo_url; returns
                  {"total_vulnerability_percentage": ..., "dependencies": [...]}
                  or 400 {"message": "No dependencies found in the repository."}
  GET  /healthz   liveness check
  GET  /metrics   Prometheus metrics (disable with --metrics=false)

Every flag can also be set with a DEPSCAN_ environment variable, e.g.
DEPSCAN_ADDR=0.0.0.0:8000 or DEPSCAN_ALLOWED_ORIGINS=https://a,https://b.
Variables are also read from a .env file in the current directory, or
from the file given with --env-file.

Examples:
  # Serve the bundled frontend's default origin
  depscan serve

  # Listen on all interfaces and allow any origin
  depscan serve --addr 0.0.0.0:8000 --allowed-origins '*'`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", config.DefaultServerAddr,
		"Listen address")
	cmd.Flags().StringSlice("allowed-origins", []string{config.DefaultAllowedOrigin},
		"CORS origins allowed to call the API (* allows any)")
	cmd.Flags().Duration("scan-timeout", 2*time.Minute,
		"Maximum duration of one analysis (0 disables)")
	cmd.Flags().Bool("metrics", true,
		"Expose Prometheus metrics at /metrics")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON lines")
	cmd.Flags().String("env-file", "",
		"Load environment variables from this file (default: .env if present)")

	addCheckFlags(cmd)

	return cmd
}

// serveSettings are the serve-only settings after flags, environment and
// configuration file have been merged.
type serveSettings struct {
	addr           string
	allowedOrigins []string
	scanTimeout    time.Duration
	metrics        bool
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	v, err := newServeViper(cmd)
	if err != nil {
		return err
	}
	if err := applyEnv(cmd, v); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	settings := resolveServeSettings(v, cfg.File)
	cfg.ServerAddr = settings.addr
	cfg.AllowedOrigins = settings.allowedOrigins

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if logJSON {
		logger = seclog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	var m *metrics.Metrics
	if settings.metrics {
		m = metrics.New()
	}

	a, err := newApp(cfg, logger, m)
	if err != nil {
		return err
	}
	defer a.Close()

	var svcOpts []pipeline.ServiceOption
	serverOpts := []server.Option{
		server.WithAddr(cfg.ServerAddr),
		server.WithAllowedOrigins(cfg.AllowedOrigins),
		server.WithScanTimeout(settings.scanTimeout),
		server.WithLogger(logger),
	}
	if m != nil {
		svcOpts = append(svcOpts, pipeline.WithScanObserver(m))
		serverOpts = append(serverOpts, server.WithMetrics(m))
	}

	srv := server.New(a.service(svcOpts...), serverOpts...)
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s (allowed origins: %s)\n",
		cfg.ServerAddr, strings.Join(cfg.AllowedOrigins, ", "))
	return srv.Run(ctx)
}

// loadEnvFile loads variables from path, or from .env when path is empty.
// A missing default .env is not an error. Variables already set in the
// environment are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// newServeViper binds every flag of cmd to its DEPSCAN_ variable.
func newServeViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// applyEnv copies values that were set through the environment, and not
// on the command line, into the flags, so buildConfig sees them.
func applyEnv(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		value := v.GetString(f.Name)
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(splitList(v.GetStringSlice(f.Name)), ",")
		}
		if err := f.Value.Set(value); err != nil {
			errs = append(errs, fmt.Errorf("%s_%s: %w", envPrefix, envName(f.Name), err))
		}
	})
	return errors.Join(errs...)
}

// resolveServeSettings merges flags and environment over the server
// section of the configuration file. Explicit values win.
func resolveServeSettings(v *viper.Viper, file *config.File) serveSettings {
	s := serveSettings{
		addr:           v.GetString("addr"),
		allowedOrigins: splitList(v.GetStringSlice("allowed-origins")),
		scanTimeout:    v.GetDuration("scan-timeout"),
		metrics:        v.GetBool("metrics"),
	}
	if file == nil {
		return s
	}
	if !v.IsSet("addr") && file.Server.Addr != "" {
		s.addr = file.Server.Addr
	}
	if !v.IsSet("allowed-origins") && len(file.Server.AllowedOrigins) > 0 {
		s.allowedOrigins = file.Server.AllowedOrigins
	}
	return s
}

// splitList flattens comma-separated entries and drops empty ones.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func envName(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
