package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pyenv"
	"github.com/nao1215/depscan/internal/requirements"
)

type fakeFetcher struct {
	reqs     []requirements.Requirement
	err      error
	manifest string
	ref      string
}

func (f *fakeFetcher) FetchRequirements(_ context.Context, _, manifest, ref string) ([]requirements.Requirement, error) {
	f.manifest = manifest
	f.ref = ref
	return f.reqs, f.err
}

type fakeLister struct {
	dists []*pyenv.Distribution
	err   error
}

func (f fakeLister) Distributions() ([]*pyenv.Distribution, error) {
	return f.dists, f.err
}

// fakeAnalyzer flags every check for packages named in flagged.
type fakeAnalyzer struct {
	flagged []string
	err     error
}

func (f fakeAnalyzer) Analyze(_ context.Context, reqs []requirements.Requirement) ([]model.PackageReport, error) {
	out := make([]model.PackageReport, 0, len(reqs))
	for _, r := range reqs {
		pct := 0.0
		var checks []model.CheckResult
		if slices.Contains(f.flagged, r.Name) {
			pct = 100
			checks = []model.CheckResult{{Name: model.CheckTyposquatting, Flagged: true}}
		}
		out = append(out, model.PackageReport{
			PackageName:             r.Raw,
			Name:                    r.Name,
			VulnerabilityPercentage: pct,
			Checks:                  checks,
		})
	}
	return out, f.err
}

func mustParse(t *testing.T, lines ...string) []requirements.Requirement {
	t.Helper()
	reqs := make([]requirements.Requirement, 0, len(lines))
	for _, l := range lines {
		r, ok := requirements.ParseRequirement(l)
		if !ok {
			t.Fatalf("invalid requirement %q", l)
		}
		reqs = append(reqs, r)
	}
	return reqs
}

func TestFetchRequirementsStep(t *testing.T) {
	t.Parallel()

	t.Run("stores dependencies and settings", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{reqs: mustParse(t, "flask==2.3.2", "requests", "Django>=4")}
		step := NewFetchRequirementsStep(fetcher, config.RepoConfig{
			Manifest: "requirements/prod.txt",
			Ref:      "v1",
			Ignore:   []string{"django"},
		}, nil)

		report := model.NewScanReport("https://github.com/a/b", model.SourceGitHub)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetcher.manifest != "requirements/prod.txt" || fetcher.ref != "v1" {
			t.Errorf("unexpected fetch arguments %q %q", fetcher.manifest, fetcher.ref)
		}
		if report.Manifest != "requirements/prod.txt" || report.Ref != "v1" {
			t.Errorf("settings not recorded: %q %q", report.Manifest, report.Ref)
		}
		if len(report.Dependencies) != 2 {
			t.Fatalf("expected 2 dependencies, got %d", len(report.Dependencies))
		}
		if len(report.Ignored) != 1 || report.Ignored[0] != "django" {
			t.Errorf("expected django to be ignored, got %v", report.Ignored)
		}
	})

	t.Run("defaults manifest", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{reqs: mustParse(t, "six")}
		step := NewFetchRequirementsStep(fetcher, config.RepoConfig{}, nil)
		report := model.NewScanReport("https://github.com/a/b", model.SourceGitHub)
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fetcher.manifest != config.DefaultManifest {
			t.Errorf("expected %s, got %s", config.DefaultManifest, fetcher.manifest)
		}
	})

	t.Run("empty manifest", func(t *testing.T) {
		t.Parallel()

		step := NewFetchRequirementsStep(&fakeFetcher{}, config.RepoConfig{}, nil)
		err := step.Do(context.Background(), model.NewScanReport("https://github.com/a/b", model.SourceGitHub))
		if !errors.Is(err, ErrNoDependencies) {
			t.Errorf("expected ErrNoDependencies, got %v", err)
		}
	})

	t.Run("fetch error is wrapped", func(t *testing.T) {
		t.Parallel()

		fetchErr := errors.New("not found")
		step := NewFetchRequirementsStep(&fakeFetcher{err: fetchErr}, config.RepoConfig{}, nil)
		err := step.Do(context.Background(), model.NewScanReport("https://github.com/a/b", model.SourceGitHub))
		if !errors.Is(err, fetchErr) {
			t.Errorf("expected wrapped fetch error, got %v", err)
		}
	})
}

func TestInstalledPackagesStep(t *testing.T) {
	t.Parallel()

	lister := fakeLister{dists: []*pyenv.Distribution{
		{Name: "flask", Version: "3.0.0"},
		{Name: "pip", Version: "24.0"},
		{Name: "noversion"},
	}}
	step := NewInstalledPackagesStep(lister, []string{"pip"})

	report := model.NewScanReport(model.SourceLocal, model.SourceLocal)
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(report.Dependencies))
	}
	if report.Dependencies[0].Raw != "flask==3.0.0" {
		t.Errorf("expected flask==3.0.0, got %q", report.Dependencies[0].Raw)
	}
	if report.Dependencies[1].Raw != "noversion" {
		t.Errorf("expected bare name, got %q", report.Dependencies[1].Raw)
	}

	listErr := errors.New("permission denied")
	err := NewInstalledPackagesStep(fakeLister{err: listErr}, nil).Do(context.Background(), report)
	if !errors.Is(err, listErr) {
		t.Errorf("expected list error, got %v", err)
	}
}

func TestExplicitPackagesStep(t *testing.T) {
	t.Parallel()

	report := model.NewScanReport(model.SourceLocal, model.SourceLocal)
	if err := NewExplicitPackagesStep([]string{"requests", "flask==3.0"}).Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Dependencies) != 2 || report.Dependencies[1].Name != "flask" {
		t.Errorf("unexpected dependencies: %+v", report.Dependencies)
	}

	if err := NewExplicitPackagesStep([]string{"==1.0"}).Do(context.Background(), report); err == nil {
		t.Error("expected error for invalid package")
	}
	if err := NewExplicitPackagesStep(nil).Do(context.Background(), report); !errors.Is(err, ErrNoDependencies) {
		t.Errorf("expected ErrNoDependencies, got %v", err)
	}
}

func TestCheckAndSummarySteps(t *testing.T) {
	t.Parallel()

	t.Run("computes total", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("https://github.com/a/b", model.SourceGitHub)
		report.Dependencies = mustParse(t, "reqeusts", "flask")

		if err := NewCheckStep(fakeAnalyzer{flagged: []string{"reqeusts"}}).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := NewSummaryStep().Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.TotalVulnerabilityPercentage != 50 {
			t.Errorf("expected total 50, got %v", report.TotalVulnerabilityPercentage)
		}
		if report.Summary == nil || report.Summary.FlaggedPackages != 1 {
			t.Errorf("unexpected summary: %+v", report.Summary)
		}
	})

	t.Run("no dependencies is a no-op", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("https://github.com/a/b", model.SourceGitHub)
		if err := NewCheckStep(fakeAnalyzer{err: errors.New("unused")}).Do(context.Background(), report); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("keeps partial results on error", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("https://github.com/a/b", model.SourceGitHub)
		report.Dependencies = mustParse(t, "flask")
		err := NewCheckStep(fakeAnalyzer{err: context.DeadlineExceeded}).Do(context.Background(), report)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
		if len(report.Packages) != 1 {
			t.Errorf("expected partial packages to be kept, got %d", len(report.Packages))
		}
	})
}

func TestRepositoryPipeline(t *testing.T) {
	t.Parallel()

	deps := Deps{
		Fetcher:  &fakeFetcher{reqs: mustParse(t, "a", "b", "c", "d")},
		Analyzer: fakeAnalyzer{flagged: []string{"a"}},
	}
	p := RepositoryPipeline(deps, config.RepoConfig{})

	expected := []string{"fetch_requirements", "check", "summary"}
	if !slices.Equal(p.StepNames(), expected) {
		t.Errorf("expected steps %v, got %v", expected, p.StepNames())
	}

	report := model.NewScanReport("https://github.com/a/b", model.SourceGitHub)
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalVulnerabilityPercentage != 25 {
		t.Errorf("expected total 25, got %v", report.TotalVulnerabilityPercentage)
	}
}

func TestLocalPipeline(t *testing.T) {
	t.Parallel()

	deps := Deps{Environment: fakeLister{}, Analyzer: fakeAnalyzer{}}

	if got := LocalPipeline(deps, nil, nil).StepNames()[0]; got != "installed_packages" {
		t.Errorf("expected installed_packages first, got %s", got)
	}
	if got := LocalPipeline(deps, []string{"flask"}, nil).StepNames()[0]; got != "explicit_packages" {
		t.Errorf("expected explicit_packages first, got %s", got)
	}
}

func TestLocalTarget(t *testing.T) {
	t.Parallel()

	if got := LocalTarget(nil); got != "local" {
		t.Errorf("expected local, got %s", got)
	}
	if got := LocalTarget([]string{"/a", "/b"}); got != "local:/a,/b" {
		t.Errorf("expected local:/a,/b, got %s", got)
	}
}
