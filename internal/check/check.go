package check

import (
	"context"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pyenv"
	"github.com/nao1215/depscan/internal/pypi"
	"github.com/nao1215/depscan/internal/requirements"
)

// Check categories.
const (
	CategoryRegistry = "registry"
	CategoryInstall  = "install"
	CategorySource   = "source"
	CategoryMetadata = "metadata"
)

// Check is a single heuristic run against one dependency.
type Check interface {
	// Name returns the check name used in reports.
	Name() string

	// Category returns the check category.
	Category() string

	// Run inspects the target. A returned error marks the result flagged.
	Run(ctx context.Context, target *Target) (model.CheckResult, error)
}

// Target is the dependency a check inspects.
type Target struct {
	// Requirement is the declared dependency.
	Requirement requirements.Requirement

	// Distribution is the installed distribution, or nil if not installed.
	Distribution *pyenv.Distribution
}

// Installed reports whether the dependency is installed locally.
func (t *Target) Installed() bool {
	return t.Distribution != nil
}

// Resolver finds installed distributions. *pyenv.Environment implements it.
type Resolver interface {
	Distribution(name string) (*pyenv.Distribution, error)
}

// ProjectLookup queries a package index. *pypi.Client implements it.
type ProjectLookup interface {
	Lookup(ctx context.Context, name string) (*pypi.Project, error)
}

func newResult(c Check) model.CheckResult {
	return model.CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
	}
}
