package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pyenv"
	"github.com/nao1215/depscan/internal/requirements"
)

// RequirementsFetcher retrieves a repository's dependency manifest.
// *github.Client implements it.
type RequirementsFetcher interface {
	FetchRequirements(ctx context.Context, repoURL, manifest, ref string) ([]requirements.Requirement, error)
}

// DistributionLister lists installed distributions.
// *pyenv.Environment implements it.
type DistributionLister interface {
	Distributions() ([]*pyenv.Distribution, error)
}

// PackageAnalyzer runs the checks over a dependency list.
// *check.Analyzer implements it.
type PackageAnalyzer interface {
	Analyze(ctx context.Context, reqs []requirements.Requirement) ([]model.PackageReport, error)
}

// FetchRequirementsStep reads the manifest of report.Target from GitHub.
type FetchRequirementsStep struct {
	fetcher  RequirementsFetcher
	settings config.RepoConfig
	logger   *slog.Logger
}

// NewFetchRequirementsStep creates the step. settings supplies the manifest
// path, git ref and the names to ignore.
func NewFetchRequirementsStep(fetcher RequirementsFetcher, settings config.RepoConfig, logger *slog.Logger) *FetchRequirementsStep {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Manifest == "" {
		settings.Manifest = config.DefaultManifest
	}
	return &FetchRequirementsStep{fetcher: fetcher, settings: settings, logger: logger}
}

// Name returns the step name.
func (s *FetchRequirementsStep) Name() string {
	return "fetch_requirements"
}

// Do executes the step.
func (s *FetchRequirementsStep) Do(ctx context.Context, report *model.ScanReport) error {
	report.Manifest = s.settings.Manifest
	report.Ref = s.settings.Ref

	reqs, err := s.fetcher.FetchRequirements(ctx, report.Target, s.settings.Manifest, s.settings.Ref)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", s.settings.Manifest, err)
	}

	s.logger.Debug("manifest parsed",
		"target", report.Target,
		"manifest", s.settings.Manifest,
		"requirements", len(reqs),
	)
	return setDependencies(report, reqs, s.settings.Ignore)
}

// InstalledPackagesStep uses every installed distribution as a dependency.
type InstalledPackagesStep struct {
	lister DistributionLister
	ignore []string
}

// NewInstalledPackagesStep creates the step. Distributions named in ignore
// are skipped.
func NewInstalledPackagesStep(lister DistributionLister, ignore []string) *InstalledPackagesStep {
	return &InstalledPackagesStep{lister: lister, ignore: ignore}
}

// Name returns the step name.
func (s *InstalledPackagesStep) Name() string {
	return "installed_packages"
}

// Do executes the step.
func (s *InstalledPackagesStep) Do(_ context.Context, report *model.ScanReport) error {
	dists, err := s.lister.Distributions()
	if err != nil {
		return fmt.Errorf("list installed distributions: %w", err)
	}

	reqs := make([]requirements.Requirement, 0, len(dists))
	for _, d := range dists {
		raw := d.Name
		specifier := ""
		if d.Version != "" {
			specifier = "==" + d.Version
			raw += specifier
		}
		reqs = append(reqs, requirements.Requirement{
			Raw:       raw,
			Name:      d.Name,
			Specifier: specifier,
		})
	}
	return setDependencies(report, reqs, s.ignore)
}

// ExplicitPackagesStep checks a fixed list of requirement strings, such as
// package names given on the command line.
type ExplicitPackagesStep struct {
	packages []string
}

// NewExplicitPackagesStep creates the step.
func NewExplicitPackagesStep(packages []string) *ExplicitPackagesStep {
	return &ExplicitPackagesStep{packages: packages}
}

// Name returns the step name.
func (s *ExplicitPackagesStep) Name() string {
	return "explicit_packages"
}

// Do executes the step.
func (s *ExplicitPackagesStep) Do(_ context.Context, report *model.ScanReport) error {
	reqs := make([]requirements.Requirement, 0, len(s.packages))
	for _, p := range s.packages {
		req, ok := requirements.ParseRequirement(p)
		if !ok {
			return fmt.Errorf("invalid package %q", p)
		}
		reqs = append(reqs, req)
	}
	return setDependencies(report, reqs, nil)
}

// CheckStep runs every registered check against report.Dependencies.
type CheckStep struct {
	analyzer PackageAnalyzer
}

// NewCheckStep creates the step.
func NewCheckStep(analyzer PackageAnalyzer) *CheckStep {
	return &CheckStep{analyzer: analyzer}
}

// Name returns the step name.
func (s *CheckStep) Name() string {
	return "check"
}

// Do executes the step. Reports for packages finished before a
// cancellation are kept.
func (s *CheckStep) Do(ctx context.Context, report *model.ScanReport) error {
	if len(report.Dependencies) == 0 {
		return nil
	}

	packages, err := s.analyzer.Analyze(ctx, report.Dependencies)
	report.Packages = packages
	if err != nil {
		return fmt.Errorf("check dependencies: %w", err)
	}
	return nil
}

// SummaryStep computes the project total and ranks findings.
type SummaryStep struct{}

// NewSummaryStep creates the step.
func NewSummaryStep() *SummaryStep {
	return &SummaryStep{}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the step.
func (s *SummaryStep) Do(_ context.Context, report *model.ScanReport) error {
	report.TotalVulnerabilityPercentage = model.TotalPercentage(report.Packages)
	report.Summary = model.NewSummary(report)
	return nil
}

// setDependencies stores reqs minus the ignored names on the report.
func setDependencies(report *model.ScanReport, reqs []requirements.Requirement, ignore []string) error {
	kept := requirements.Without(reqs, ignore...)
	report.Ignored = ignoredNames(reqs, kept)
	report.Dependencies = kept
	if len(kept) == 0 {
		return ErrNoDependencies
	}
	return nil
}

func ignoredNames(all, kept []requirements.Requirement) []string {
	if len(all) == len(kept) {
		return nil
	}
	keep := make(map[string]bool, len(kept))
	for _, r := range kept {
		keep[r.NormalizedName()] = true
	}
	var names []string
	for _, r := range all {
		n := r.NormalizedName()
		if !keep[n] && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

// Deps are the collaborators a scan pipeline is assembled from.
type Deps struct {
	Fetcher     RequirementsFetcher
	Environment DistributionLister
	Analyzer    PackageAnalyzer
}

// RepositoryPipeline builds the pipeline for a GitHub repository scan.
func RepositoryPipeline(deps Deps, settings config.RepoConfig, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewFetchRequirementsStep(deps.Fetcher, settings, p.logger),
		NewCheckStep(deps.Analyzer),
		NewSummaryStep(),
	)
	return p
}

// LocalPipeline builds the pipeline for a scan of the installed
// environment. With no packages every installed distribution is checked.
func LocalPipeline(deps Deps, packages, ignore []string, opts ...Option) *Pipeline {
	p := New(opts...)
	var source Step
	if len(packages) > 0 {
		source = NewExplicitPackagesStep(packages)
	} else {
		source = NewInstalledPackagesStep(deps.Environment, ignore)
	}
	p.AddSteps(source, NewCheckStep(deps.Analyzer), NewSummaryStep())
	return p
}

// LocalTarget is the report target used for environment scans.
func LocalTarget(paths []string) string {
	if len(paths) == 0 {
		return model.SourceLocal
	}
	return model.SourceLocal + ":" + strings.Join(paths, ",")
}
