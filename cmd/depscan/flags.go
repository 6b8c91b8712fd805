package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/depscan/internal/config"
	"github.com/spf13/cobra"
)

// addCheckFlags registers the flags shared by every command that runs
// checks: network, environment, storage and configuration file.
func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each GitHub and PyPI request")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of packages checked concurrently per scan")
	cmd.Flags().Float64("rate-limit", config.DefaultRequestsPerSecond,
		"Maximum requests per second to each upstream (0 disables)")
	cmd.Flags().Duration("cache-ttl", config.DefaultLookupCacheTTL,
		"How long PyPI lookups are cached (0 disables the cache)")
	cmd.Flags().StringSlice("site-packages", nil,
		"site-packages directories to inspect (default: auto-discover)")
	cmd.Flags().Int64("max-file-size", config.DefaultMaxFileSize,
		"Maximum bytes read from each installed file")
	cmd.Flags().String("pypi-url", config.DefaultPyPIURL,
		"PyPI base URL")
	cmd.Flags().String("github-api-url", config.DefaultGitHubAPIURL,
		"GitHub REST API base URL")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .depscan in current or home directory)")
	cmd.Flags().Bool("no-save", false,
		"Do not save scan results to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")
}

// addReportFlags registers output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// buildConfig creates a Config from the flags registered by addCheckFlags
// and, when present, addReportFlags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = flags.GetFloat64("rate-limit"); err != nil {
		return nil, err
	}
	if cfg.LookupCacheTTL, err = flags.GetDuration("cache-ttl"); err != nil {
		return nil, err
	}
	if cfg.SitePackages, err = flags.GetStringSlice("site-packages"); err != nil {
		return nil, err
	}
	if cfg.MaxFileSize, err = flags.GetInt64("max-file-size"); err != nil {
		return nil, err
	}
	if cfg.PyPIURL, err = flags.GetString("pypi-url"); err != nil {
		return nil, err
	}
	if cfg.GitHubAPIURL, err = flags.GetString("github-api-url"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	if flags.Lookup("json") != nil {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return nil, err
		}
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return nil, err
		}
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}

	// An explicitly requested file must exist; otherwise a missing file
	// means no repository-specific settings.
	cfg.File, err = config.Load(cfg.ConfigFilePath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}
