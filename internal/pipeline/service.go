package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/github"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/requirements"
)

// ReportStore persists finished scans. *database.ScanDB implements it.
type ReportStore interface {
	SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error)
}

// ScanObserver is told about every finished scan. *metrics.Metrics
// implements it.
type ScanObserver interface {
	ObserveScan(source string, failed bool, packages int, total float64)
}

// Service runs single scans on behalf of the HTTP API and the MCP server.
type Service struct {
	deps     Deps
	cfg      *config.Config
	store    ReportStore
	observer ScanObserver
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore saves every successful scan to store.
func WithStore(store ReportStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithScanObserver reports every finished scan to o.
func WithScanObserver(o ScanObserver) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// WithServiceLogger sets the logger passed to every pipeline.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service. cfg supplies the default manifest, ref and
// per-repository settings; nil means defaults.
func NewService(deps Deps, cfg *config.Config, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	s := &Service{deps: deps, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// AnalyzeRepository scans the requirements of a GitHub repository.
// The report is returned even when the scan fails, so callers can show
// partial results; it is nil only for an invalid URL.
func (s *Service) AnalyzeRepository(ctx context.Context, repoURL string) (*model.ScanReport, error) {
	repo, err := github.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	target := repo.URL()
	report := model.NewScanReport(target, model.SourceGitHub)
	p := RepositoryPipeline(s.deps, s.cfg.RepoSettings(target), WithLogger(s.logger))
	err = p.Execute(ctx, report)

	s.finish(ctx, report, err)
	return report, err
}

// AnalyzePackage runs every check against a single requirement string
// such as "requests" or "flask==2.3.2".
func (s *Service) AnalyzePackage(ctx context.Context, pkg string) (model.PackageReport, error) {
	req, ok := requirements.ParseRequirement(pkg)
	if !ok {
		return model.PackageReport{}, fmt.Errorf("invalid package %q", pkg)
	}
	reports, err := s.deps.Analyzer.Analyze(ctx, []requirements.Requirement{req})
	if err != nil {
		return model.PackageReport{}, err
	}
	if len(reports) == 0 {
		return model.PackageReport{}, errors.New("analyzer returned no result")
	}
	return reports[0], nil
}

func (s *Service) finish(ctx context.Context, report *model.ScanReport, err error) {
	if s.observer != nil {
		s.observer.ObserveScan(report.Source, err != nil, len(report.Packages), report.TotalVulnerabilityPercentage)
	}
	if err != nil || s.store == nil {
		return
	}
	if _, saveErr := s.store.SaveScanReport(ctx, report); saveErr != nil {
		s.logger.Warn("failed to save scan report", "target", report.Target, "error", saveErr)
	}
}
