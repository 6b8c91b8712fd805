package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/depscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of targets scanned at once when
// WithConcurrency is not given.
const DefaultBatchConcurrency = 4

// Factory builds the pipeline for one target.
// Targets can carry their own settings (manifest path, ref, ignore list),
// so each gets a fresh pipeline.
type Factory func(target string) *Pipeline

// BatchProcessor scans many targets concurrently.
type BatchProcessor struct {
	factory     Factory
	source      string
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithSource sets the Source recorded on every report. Default is
// model.SourceGitHub.
func WithSource(source string) BatchOption {
	return func(b *BatchProcessor) {
		b.source = source
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		source:      model.SourceGitHub,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch scans targets concurrently and returns one report per
// target in input order. A failed scan does not stop the others; its error
// is recorded in its report. The returned error is only non-nil when the
// context ended before every target was started, in which case the
// missing reports are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.ScanReport, error) {
	results := make([]*model.ScanReport, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.ScanReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback scans targets and calls callback for each
// completed scan with its index in targets. The callback runs on the
// goroutine that finished the scan, so it must be safe for concurrent use
// when it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.ScanReport, index int),
) error {
	bp.logger.Info("starting batch",
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("scanning target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewScanReport(target, bp.source)
			if err := bp.factory(target).Execute(ctx, report); err != nil {
				bp.logger.Warn("scan failed", "target", target, "error", err)
			} else {
				bp.logger.Info("scan completed",
					"target", target,
					"packages", len(report.Packages),
					"total_vulnerability_percentage", report.TotalVulnerabilityPercentage,
				)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete",
		"targets", len(targets),
		"elapsed", time.Since(start),
	)
	return err
}
