package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nao1215/depscan/internal/github"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pipeline"
	"github.com/nao1215/depscan/internal/requirements"
)

type mockScanner struct {
	report     *model.ScanReport
	reportErr  error
	pkg        model.PackageReport
	pkgErr     error
	gotRepoURL string
	gotPackage string
}

func (m *mockScanner) AnalyzeRepository(_ context.Context, repoURL string) (*model.ScanReport, error) {
	m.gotRepoURL = repoURL
	return m.report, m.reportErr
}

func (m *mockScanner) AnalyzePackage(_ context.Context, pkg string) (model.PackageReport, error) {
	m.gotPackage = pkg
	return m.pkg, m.pkgErr
}

func newMock() *mockScanner {
	report := model.NewScanReport("https://github.com/example/app", model.SourceGitHub)
	report.Packages = []model.PackageReport{
		{
			PackageName:             "reqeusts",
			Name:                    "reqeusts",
			VulnerabilityPercentage: 100,
			Checks: []model.CheckResult{
				{Name: model.CheckTyposquatting, Flagged: true},
			},
		},
	}
	report.TotalVulnerabilityPercentage = 100

	return &mockScanner{
		report: report,
		pkg: model.PackageReport{
			PackageName: "requests",
			Name:        "requests",
			Installed:   true,
			Checks:      []model.CheckResult{{Name: model.CheckTyposquatting}},
		},
	}
}

func TestAnalyzeTool(t *testing.T) {
	t.Parallel()

	t.Run("returns the api response", func(t *testing.T) {
		t.Parallel()

		mock := newMock()
		h := &handlers{scanner: mock}

		_, out, err := h.analyze(context.Background(), nil, analyzeInput{RepoURL: " https://github.com/example/app "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock.gotRepoURL != "https://github.com/example/app" {
			t.Errorf("expected trimmed URL, got %q", mock.gotRepoURL)
		}
		if out.TotalVulnerabilityPercentage != 100 {
			t.Errorf("expected total 100, got %v", out.TotalVulnerabilityPercentage)
		}
		if len(out.Dependencies) != 1 || out.Dependencies[0].Checks[model.CheckTyposquatting] != 1 {
			t.Errorf("expected one flagged dependency, got %+v", out.Dependencies)
		}
	})

	tests := []struct {
		name string
		in   analyzeInput
		mock func() *mockScanner
	}{
		{
			name: "empty url",
			in:   analyzeInput{},
			mock: newMock,
		},
		{
			name: "scan error",
			in:   analyzeInput{RepoURL: "https://github.com/example/app"},
			mock: func() *mockScanner {
				m := newMock()
				m.reportErr = errors.New("file not found")
				return m
			},
		},
		{
			name: "no packages",
			in:   analyzeInput{RepoURL: "https://github.com/example/app"},
			mock: func() *mockScanner {
				m := newMock()
				m.report = model.NewScanReport("x", model.SourceGitHub)
				return m
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &handlers{scanner: tt.mock()}
			if _, _, err := h.analyze(context.Background(), nil, tt.in); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

type unusedAnalyzer struct{}

func (unusedAnalyzer) Analyze(context.Context, []requirements.Requirement) ([]model.PackageReport, error) {
	return nil, errors.New("analyzer must not run for an empty manifest")
}

func TestAnalyzeToolEmptyManifest(t *testing.T) {
	t.Parallel()

	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte("# pinned elsewhere\n-r base.txt\n")),
		})
	}))
	t.Cleanup(gh.Close)

	svc := pipeline.NewService(pipeline.Deps{
		Fetcher:  github.NewClient(github.WithBaseURL(gh.URL), github.WithRateLimit(0)),
		Analyzer: unusedAnalyzer{},
	}, nil)
	h := &handlers{scanner: svc}

	_, _, err := h.analyze(context.Background(), nil, analyzeInput{RepoURL: "https://github.com/example/app"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != model.NoDependenciesMessage {
		t.Errorf("expected %q, got %q", model.NoDependenciesMessage, err.Error())
	}
}

func TestCheckTool(t *testing.T) {
	t.Parallel()

	t.Run("returns the package report", func(t *testing.T) {
		t.Parallel()

		mock := newMock()
		h := &handlers{scanner: mock}

		_, out, err := h.check(context.Background(), nil, checkInput{Package: "requests"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock.gotPackage != "requests" {
			t.Errorf("expected requests, got %q", mock.gotPackage)
		}
		if !out.Installed || out.Name != "requests" {
			t.Errorf("unexpected report: %+v", out.PackageReport)
		}
	})

	t.Run("empty package", func(t *testing.T) {
		t.Parallel()

		h := &handlers{scanner: newMock()}
		_, _, err := h.check(context.Background(), nil, checkInput{Package: "  "})
		if !errors.Is(err, errPackageRequired) {
			t.Errorf("expected errPackageRequired, got %v", err)
		}
	})

	t.Run("scanner error", func(t *testing.T) {
		t.Parallel()

		mock := newMock()
		mock.pkgErr = errors.New("invalid package")
		h := &handlers{scanner: mock}
		if _, _, err := h.check(context.Background(), nil, checkInput{Package: "!!"}); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestServerListsTools(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := New(newMock(), "test").Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{ToolAnalyze, ToolCheck} {
		if !slices.Contains(names, want) {
			t.Errorf("expected tool %s, got %v", want, names)
		}
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolCheck,
		Arguments: map[string]any{"package": "requests"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if result.IsError {
		t.Errorf("expected success, got error result: %+v", result.Content)
	}
}
