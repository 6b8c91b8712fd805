package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/briandowns/spinner"
	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewLocalCmd creates the local command.
func NewLocalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local [package...]",
		Short: "Scan the locally installed Python packages",
		Long: `Local runs the checks against packages installed in the local Python
environment. Without arguments every installed distribution is checked;
otherwise only the named packages are.

site-packages directories are discovered from $VIRTUAL_ENV, the user
site-packages and the system site-packages unless --site-packages is set.

Examples:
  # Check every installed distribution
  depscan local

  # Check two packages
  depscan local requests flask

  # Check a specific virtualenv
  depscan local --site-packages .venv/lib/python3.12/site-packages`,
		Args: cobra.ArbitraryArgs,
		RunE: runLocalCmd,
	}

	addCheckFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runLocalCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Packages = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runLocal(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runLocal checks the installed environment and writes one report.
func runLocal(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var ignore []string
	if cfg.File != nil {
		ignore = cfg.File.Defaults.Ignore
	}

	scanReport := model.NewScanReport(pipeline.LocalTarget(a.env.Paths()), model.SourceLocal)
	p := pipeline.LocalPipeline(a.deps, cfg.Packages, ignore,
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stderr))
	s.Suffix = " Checking installed packages..."
	if !cfg.Verbose {
		s.Start()
	}
	if err := p.Execute(ctx, scanReport); err != nil {
		logger.Error("scan failed", "target", scanReport.Target, "error", err)
	}
	s.Stop()

	if errors.Is(scanReport.Error, pipeline.ErrNoDependencies) {
		return errors.New("no installed Python packages found (use --site-packages to point at an environment)")
	}

	if err := a.saveScanReport(ctx, scanReport); err != nil {
		logger.Error("failed to save scan report", "target", scanReport.Target, "error", err)
	}

	if err := outputReports(cfg, stdout, []*model.ScanReport{scanReport}, false); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if scanReport.ErrorMessage != "" {
		return fmt.Errorf("%w: %s", errScansFailed, scanReport.ErrorMessage)
	}
	return nil
}
