// Package mcpserver exposes depscan as Model Context Protocol tools over
// stdio, so that assistants can vet a repository or a single package
// before it is installed.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pipeline"
)

// Scanner is what the tools need. *pipeline.Service implements it.
type Scanner interface {
	AnalyzeRepository(ctx context.Context, repoURL string) (*model.ScanReport, error)
	AnalyzePackage(ctx context.Context, pkg string) (model.PackageReport, error)
}

// Tool names.
const (
	ToolAnalyze = "depscan_analyze"
	ToolCheck   = "depscan_check"
)

var (
	errRepoURLRequired = errors.New("repo_url is required")
	errPackageRequired = errors.New("package is required")

	// errNoDependencies carries the same message as the HTTP API.
	errNoDependencies = errors.New(model.NoDependenciesMessage)
)

type analyzeInput struct {
	RepoURL string `json:"repo_url" jsonschema:"GitHub repository URL, e.g. https://github.com/owner/repo"`
}

type analyzeOutput struct {
	model.AnalyzeResponse
}

type checkInput struct {
	Package string `json:"package" jsonschema:"requirement to check, e.g. requests or flask==2.3.2"`
}

type checkOutput struct {
	model.PackageReport
}

// New creates an MCP server with the depscan tools registered.
func New(scanner Scanner, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "depscan",
		Version: version,
	}, nil)

	h := &handlers{scanner: scanner}
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAnalyze,
		Description: "Fetch requirements.txt from a GitHub repository and run the typosquatting, supply chain, code injection and credential harvesting checks on every dependency",
	}, h.analyze)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolCheck,
		Description: "Run the depscan checks against a single Python package",
	}, h.check)

	return server
}

// Run serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, scanner Scanner, version string) error {
	return New(scanner, version).Run(ctx, &mcp.StdioTransport{})
}

type handlers struct {
	scanner Scanner
}

func (h *handlers) analyze(ctx context.Context, _ *mcp.CallToolRequest, in analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
	repoURL := strings.TrimSpace(in.RepoURL)
	if repoURL == "" {
		return nil, analyzeOutput{}, errRepoURLRequired
	}

	report, err := h.scanner.AnalyzeRepository(ctx, repoURL)
	if errors.Is(err, pipeline.ErrNoDependencies) {
		return nil, analyzeOutput{}, errNoDependencies
	}
	if err != nil {
		return nil, analyzeOutput{}, err
	}
	if len(report.Packages) == 0 {
		return nil, analyzeOutput{}, errNoDependencies
	}
	return nil, analyzeOutput{AnalyzeResponse: model.NewAnalyzeResponse(report)}, nil
}

func (h *handlers) check(ctx context.Context, _ *mcp.CallToolRequest, in checkInput) (*mcp.CallToolResult, checkOutput, error) {
	pkg := strings.TrimSpace(in.Package)
	if pkg == "" {
		return nil, checkOutput{}, errPackageRequired
	}

	result, err := h.scanner.AnalyzePackage(ctx, pkg)
	if err != nil {
		return nil, checkOutput{}, err
	}
	return nil, checkOutput{PackageReport: result}, nil
}
