package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/github"
	"github.com/nao1215/depscan/internal/model"
)

type memoryStore struct {
	mu      sync.Mutex
	reports []*model.ScanReport
}

func (m *memoryStore) SaveScanReport(_ context.Context, r *model.ScanReport) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return int64(len(m.reports)), nil
}

type scanRecorder struct {
	failed []bool
}

func (s *scanRecorder) ObserveScan(_ string, failed bool, _ int, _ float64) {
	s.failed = append(s.failed, failed)
}

func TestServiceAnalyzeRepository(t *testing.T) {
	t.Parallel()

	t.Run("scans saves and observes", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		rec := &scanRecorder{}
		fetcher := &fakeFetcher{reqs: mustParse(t, "flask", "reqeusts", "pip")}

		cfg := config.NewConfig()
		cfg.File.Repositories["github.com/example/app"] = config.RepoConfig{Ignore: []string{"pip"}}

		svc := NewService(Deps{
			Fetcher:  fetcher,
			Analyzer: fakeAnalyzer{flagged: []string{"reqeusts"}},
		}, cfg, WithStore(store), WithScanObserver(rec))

		report, err := svc.AnalyzeRepository(context.Background(), "https://github.com/example/app.git")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Target != "https://github.com/example/app" {
			t.Errorf("expected canonical target, got %s", report.Target)
		}
		if len(report.Packages) != 2 {
			t.Fatalf("expected ignored package to be skipped, got %d packages", len(report.Packages))
		}
		if report.TotalVulnerabilityPercentage != 50 {
			t.Errorf("expected total 50, got %v", report.TotalVulnerabilityPercentage)
		}
		if len(store.reports) != 1 {
			t.Errorf("expected report to be saved, got %d", len(store.reports))
		}
		if len(rec.failed) != 1 || rec.failed[0] {
			t.Errorf("expected one successful observation, got %v", rec.failed)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		svc := NewService(Deps{Fetcher: &fakeFetcher{}, Analyzer: fakeAnalyzer{}}, nil)
		report, err := svc.AnalyzeRepository(context.Background(), "https://gitlab.com/a/b")
		if !errors.Is(err, github.ErrInvalidRepoURL) {
			t.Errorf("expected ErrInvalidRepoURL, got %v", err)
		}
		if report != nil {
			t.Error("expected nil report")
		}
	})

	t.Run("failed scans are not saved", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		rec := &scanRecorder{}
		svc := NewService(Deps{Fetcher: &fakeFetcher{}, Analyzer: fakeAnalyzer{}}, nil,
			WithStore(store), WithScanObserver(rec))

		report, err := svc.AnalyzeRepository(context.Background(), "https://github.com/a/b")
		if !errors.Is(err, ErrNoDependencies) {
			t.Errorf("expected ErrNoDependencies, got %v", err)
		}
		if report == nil || report.ErrorMessage == "" {
			t.Error("expected report with error message")
		}
		if len(store.reports) != 0 {
			t.Error("failed scan should not be saved")
		}
		if len(rec.failed) != 1 || !rec.failed[0] {
			t.Errorf("expected one failed observation, got %v", rec.failed)
		}
	})
}

func TestServiceAnalyzePackage(t *testing.T) {
	t.Parallel()

	svc := NewService(Deps{Analyzer: fakeAnalyzer{flagged: []string{"reqeusts"}}}, nil)

	pkg, err := svc.AnalyzePackage(context.Background(), "reqeusts==1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.Name != "reqeusts" || pkg.VulnerabilityPercentage != 100 {
		t.Errorf("unexpected package report %+v", pkg)
	}

	if _, err := svc.AnalyzePackage(context.Background(), ""); err == nil {
		t.Error("expected error for empty package")
	}
}
