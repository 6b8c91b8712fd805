package check

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/requirements"
)

// failingCheck always returns an error.
type failingCheck struct{}

func (failingCheck) Name() string     { return "always_fails" }
func (failingCheck) Category() string { return "test" }
func (failingCheck) Run(context.Context, *Target) (model.CheckResult, error) {
	return model.CheckResult{}, errors.New("boom")
}

// recordingObserver collects observed check names.
type recordingObserver struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingObserver) ObserveCheck(name string, _ bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func reqs(names ...string) []requirements.Requirement {
	out := make([]requirements.Requirement, 0, len(names))
	for _, n := range names {
		out = append(out, requirements.Requirement{Raw: n + ">=1", Name: n})
	}
	return out
}

func TestAnalyzerAnalyzePackage(t *testing.T) {
	t.Parallel()

	env := newSitePackages(t,
		distSpec{name: "safe", version: "3.1", metadata: "Name: safe\nSummary: nothing to see\n", files: map[string]string{"safe.py": "x = 1\n"}},
	)
	lookup := &fakeLookup{existing: map[string]bool{"safe": true}}

	t.Run("clean installed package scores zero", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(env, lookup)
		report := a.AnalyzePackage(context.Background(), requirements.Requirement{Raw: "safe==3.1", Name: "safe"})

		if report.PackageName != "safe==3.1" {
			t.Errorf("expected raw requirement as package name, got %s", report.PackageName)
		}
		if !report.Installed || report.InstalledVersion != "3.1" {
			t.Errorf("expected installed 3.1, got installed=%v version=%s", report.Installed, report.InstalledVersion)
		}
		if len(report.Checks) != 4 {
			t.Fatalf("expected 4 checks, got %d", len(report.Checks))
		}
		if report.VulnerabilityPercentage != 0 {
			t.Errorf("expected 0%%, got %v: %+v", report.VulnerabilityPercentage, report.Checks)
		}
	})

	t.Run("unknown and not installed scores 100", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(env, lookup)
		report := a.AnalyzePackage(context.Background(), requirements.Requirement{Raw: "ghost", Name: "ghost"})
		if report.VulnerabilityPercentage != 100 {
			t.Errorf("expected 100%%, got %v", report.VulnerabilityPercentage)
		}
		if report.Installed {
			t.Error("expected package to be reported as not installed")
		}
	})

	t.Run("nil resolver treats everything as not installed", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(nil, lookup)
		report := a.AnalyzePackage(context.Background(), requirements.Requirement{Name: "safe"})
		if report.VulnerabilityPercentage != 75 {
			t.Errorf("expected 75%%, got %v", report.VulnerabilityPercentage)
		}
		if report.PackageName != "safe" {
			t.Errorf("expected name fallback, got %q", report.PackageName)
		}
	})

	t.Run("check errors are flagged", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(env, lookup, WithChecks(failingCheck{}, NewSupplyChainCheck()))
		report := a.AnalyzePackage(context.Background(), requirements.Requirement{Name: "safe"})

		if len(report.Checks) != 2 {
			t.Fatalf("expected 2 checks, got %d", len(report.Checks))
		}
		failed := report.Checks[0]
		if !failed.Flagged || failed.Error != "boom" {
			t.Errorf("expected flagged error result, got %+v", failed)
		}
		if report.VulnerabilityPercentage != 50 {
			t.Errorf("expected 50%%, got %v", report.VulnerabilityPercentage)
		}
	})

	t.Run("no checks scores zero", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(env, lookup, WithChecks())
		report := a.AnalyzePackage(context.Background(), requirements.Requirement{Name: "safe"})
		if report.VulnerabilityPercentage != 0 {
			t.Errorf("expected 0%%, got %v", report.VulnerabilityPercentage)
		}
	})

	t.Run("observer sees every check", func(t *testing.T) {
		t.Parallel()

		obs := &recordingObserver{}
		a := NewAnalyzer(env, lookup, WithObserver(obs))
		a.AnalyzePackage(context.Background(), requirements.Requirement{Name: "safe"})
		if len(obs.names) != 4 {
			t.Errorf("expected 4 observations, got %v", obs.names)
		}
	})
}

func TestAnalyzerAnalyze(t *testing.T) {
	t.Parallel()

	env := newSitePackages(t)
	lookup := &fakeLookup{existing: map[string]bool{"a": true, "c": true}}

	t.Run("preserves input order", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(env, lookup, WithConcurrency(3))
		input := reqs("a", "b", "c", "d", "e", "f")
		reports, err := a.Analyze(context.Background(), input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(input) {
			t.Fatalf("expected %d reports, got %d", len(input), len(reports))
		}
		for i, r := range reports {
			if r.Name != input[i].Name {
				t.Errorf("position %d: expected %s, got %s", i, input[i].Name, r.Name)
			}
		}
		if reports[0].VulnerabilityPercentage != 75 || reports[1].VulnerabilityPercentage != 100 {
			t.Errorf("unexpected percentages: %v, %v", reports[0].VulnerabilityPercentage, reports[1].VulnerabilityPercentage)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		a := NewAnalyzer(env, lookup)
		reports, err := a.Analyze(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != 0 {
			t.Errorf("expected no reports, got %d", len(reports))
		}
	})

	t.Run("cancelled context returns error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := NewAnalyzer(env, lookup)
		_, err := a.Analyze(ctx, reqs("a", "b"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestAnalyzerCheckNames(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(nil, &fakeLookup{})
	a.Register(failingCheck{})

	names := a.CheckNames()
	want := []string{
		model.CheckTyposquatting,
		model.CheckSupplyChain,
		model.CheckCodeInjection,
		model.CheckCredentialHarvesting,
		"always_fails",
	}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
			break
		}
	}
}
