package check

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pyenv"
	"github.com/nao1215/depscan/internal/requirements"
)

// DefaultConcurrency is the number of packages analyzed at once.
const DefaultConcurrency = 4

// Observer receives the outcome of every check run.
type Observer interface {
	ObserveCheck(name string, flagged bool, duration time.Duration)
}

// Analyzer runs the registered checks against dependencies.
type Analyzer struct {
	checks      []Check
	resolver    Resolver
	concurrency int
	observer    Observer
	logger      *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConcurrency sets how many packages are analyzed concurrently.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithObserver reports check outcomes, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) {
		a.observer = o
	}
}

// WithChecks replaces the built-in checks.
func WithChecks(checks ...Check) Option {
	return func(a *Analyzer) {
		a.checks = append([]Check(nil), checks...)
	}
}

// NewAnalyzer creates an Analyzer with the four built-in checks.
// A nil resolver treats every package as not installed.
func NewAnalyzer(resolver Resolver, lookup ProjectLookup, opts ...Option) *Analyzer {
	a := &Analyzer{
		resolver:    resolver,
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
		checks: []Check{
			NewTyposquatCheck(lookup),
			NewSupplyChainCheck(),
			NewCodeInjectionCheck(),
			NewCredentialHarvestCheck(),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds a check.
func (a *Analyzer) Register(c Check) {
	a.checks = append(a.checks, c)
}

// CheckNames returns the registered check names in run order.
func (a *Analyzer) CheckNames() []string {
	names := make([]string, 0, len(a.checks))
	for _, c := range a.checks {
		names = append(names, c.Name())
	}
	return names
}

// AnalyzePackage resolves the requirement against the environment once and
// runs every check. Check errors are recorded as flagged results.
func (a *Analyzer) AnalyzePackage(ctx context.Context, req requirements.Requirement) model.PackageReport {
	report := model.PackageReport{
		PackageName: req.Raw,
		Name:        req.Name,
		Checks:      make([]model.CheckResult, 0, len(a.checks)),
	}
	if report.PackageName == "" {
		report.PackageName = req.Name
	}

	target := &Target{Requirement: req}
	if a.resolver != nil {
		dist, err := a.resolver.Distribution(req.Name)
		switch {
		case err == nil:
			target.Distribution = dist
			report.Installed = true
			report.InstalledVersion = dist.Version
		case errors.Is(err, pyenv.ErrPackageNotFound):
		default:
			a.logger.Warn("failed to resolve installed package", "package", req.Name, "error", err)
		}
	}

	for _, c := range a.checks {
		start := time.Now()
		result, err := c.Run(ctx, target)
		if err != nil {
			result = model.CheckResult{
				Name:     c.Name(),
				Category: c.Category(),
				Flagged:  true,
				Reason:   "check failed",
				Error:    err.Error(),
			}
			a.logger.Debug("check failed", "check", c.Name(), "package", req.Name, "error", err)
		}
		if a.observer != nil {
			a.observer.ObserveCheck(c.Name(), result.Flagged, time.Since(start))
		}
		report.Checks = append(report.Checks, result)
	}

	report.VulnerabilityPercentage = model.Percentage(report.Checks)
	return report
}

// Analyze checks every requirement with bounded concurrency. Results keep
// the input order. If ctx is cancelled, the reports analyzed so far are
// returned together with the context error; unfinished entries are omitted.
func (a *Analyzer) Analyze(ctx context.Context, reqs []requirements.Requirement) ([]model.PackageReport, error) {
	results := make([]model.PackageReport, len(reqs))
	done := make([]bool, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.AnalyzePackage(gctx, req)
			done[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		partial := make([]model.PackageReport, 0, len(reqs))
		for i, ok := range done {
			if ok {
				partial = append(partial, results[i])
			}
		}
		return partial, err
	}
	return results, nil
}
