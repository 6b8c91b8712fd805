package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/github"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <github-url>...",
		Short: "Scan the Python dependencies of GitHub repositories",
		Long: `Scan fetches the dependency manifest (requirements.txt by default) of each
GitHub repository and checks every dependency.

The name lookup runs against PyPI. The install record, source and metadata
checks inspect the packages installed in the local environment, so run
depscan inside the project's virtualenv for meaningful results; packages
that are not installed are flagged by those checks.

Examples:
  # Scan a single repository
  depscan scan https://github.com/pallets/flask

  # Scan several repositories, four at a time
  depscan scan -b 4 https://github.com/a/one https://github.com/b/two

  # Read a different manifest from a release branch
  depscan scan --file requirements/prod.txt --ref release-2.x https://github.com/a/one

  # Output JSON in the same shape as the HTTP API
  depscan scan --json --api https://github.com/a/one

Configuration file (.depscan) example:
  defaults:
    ignore: [pip, setuptools]
  repositories:
    https://github.com/a/one:
      manifest: pyproject.toml
      ref: main`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of repositories scanned concurrently")
	cmd.Flags().StringP("file", "f", config.DefaultManifest,
		"Manifest path inside the repository (requirements.txt or pyproject.toml)")
	cmd.Flags().StringP("ref", "r", "",
		"Branch, tag or commit to read the manifest from (default: default branch)")
	cmd.Flags().Bool("api", false,
		"With --json, print the HTTP API response shape")

	addCheckFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if cfg.Manifest, err = cmd.Flags().GetString("file"); err != nil {
		return err
	}
	if cfg.Ref, err = cmd.Flags().GetString("ref"); err != nil {
		return err
	}
	apiShape, err := cmd.Flags().GetBool("api")
	if err != nil {
		return err
	}
	cfg.Targets = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateTargets(); err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr(), apiShape)
}

// runScan scans every target and writes the reports once all are done.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer, apiShape bool) error {
	targets := make([]string, len(cfg.Targets))
	for i, target := range cfg.Targets {
		repo, err := github.ParseRepoURL(target)
		if err != nil {
			return fmt.Errorf("invalid repository URL %q: %w", target, err)
		}
		targets[i] = repo.URL()
	}

	logger.Info("starting scan",
		"targets", targets,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stderr))
	s.Suffix = fmt.Sprintf(" Scanning %d repositories...", len(targets))
	if len(targets) == 1 {
		s.Suffix = " Scanning " + targets[0] + "..."
	}
	if !cfg.Verbose {
		s.Start()
	}

	start := time.Now()
	var reports []*model.ScanReport
	if len(targets) > 1 && cfg.BatchSize > 1 {
		reports, err = runBatchScan(ctx, a, targets, stderr)
	} else {
		reports, err = runSequentialScan(ctx, a, targets, stderr)
	}
	s.Stop()
	if err != nil {
		// Reports finished before the interruption are still written.
		if len(reports) > 0 {
			if outErr := outputReports(cfg, stdout, reports, apiShape); outErr != nil {
				logger.Error("failed to write report", "error", outErr)
			}
		}
		return fmt.Errorf("scan interrupted after %d of %d targets: %w", len(reports), len(targets), err)
	}
	fmt.Fprintf(stderr, "Scan completed in %s\n\n", time.Since(start).Round(time.Millisecond))

	if err := outputReports(cfg, stdout, reports, apiShape); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	failed := 0
	for _, r := range reports {
		if r.ErrorMessage != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d targets", errScansFailed, failed, len(reports))
	}
	return nil
}

// repositoryPipeline builds the pipeline for one target with its
// repository-specific settings.
func (a *app) repositoryPipeline(target string) *pipeline.Pipeline {
	return pipeline.RepositoryPipeline(a.deps, a.cfg.RepoSettings(target),
		pipeline.WithLogger(a.logger),
		pipeline.WithContinueOnError(true),
	)
}

// runSequentialScan scans targets one at a time. On cancellation the
// reports finished so far are returned with the error.
func runSequentialScan(ctx context.Context, a *app, targets []string, stderr io.Writer) ([]*model.ScanReport, error) {
	reports := make([]*model.ScanReport, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		scanReport := model.NewScanReport(target, model.SourceGitHub)
		if err := a.repositoryPipeline(target).Execute(ctx, scanReport); err != nil {
			a.logger.Error("scan failed", "target", target, "error", err)
		}
		if scanReport.ErrorMessage != "" {
			fmt.Fprintf(stderr, "Scan error for %s: %s\n", target, scanReport.ErrorMessage)
		}

		if err := a.saveScanReport(ctx, scanReport); err != nil {
			a.logger.Error("failed to save scan report", "target", target, "error", err)
		}
		reports = append(reports, scanReport)
	}
	return reports, nil
}

// runBatchScan scans targets concurrently using BatchProcessor. On
// cancellation the reports finished so far are returned, in target order.
func runBatchScan(ctx context.Context, a *app, targets []string, stderr io.Writer) ([]*model.ScanReport, error) {
	bp := pipeline.NewBatchProcessor(a.repositoryPipeline,
		pipeline.WithConcurrency(a.cfg.BatchSize),
		pipeline.WithBatchLogger(a.logger),
	)

	reports := make([]*model.ScanReport, len(targets))
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.ScanReport, index int) {
		if saveErr := a.saveScanReport(ctx, report); saveErr != nil {
			a.logger.Error("failed to save scan report", "target", report.Target, "error", saveErr)
		}

		mu.Lock()
		defer mu.Unlock()
		reports[index] = report
		if report.ErrorMessage != "" {
			fmt.Fprintf(stderr, "Scan error for %s: %s\n", report.Target, report.ErrorMessage)
		}
	})
	if err != nil {
		return completed(reports), err
	}
	return reports, nil
}

// completed drops the slots of targets that never finished.
func completed(reports []*model.ScanReport) []*model.ScanReport {
	done := make([]*model.ScanReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			done = append(done, r)
		}
	}
	return done
}
