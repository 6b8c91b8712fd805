package check

import (
	"context"
	"fmt"

	"github.com/nao1215/depscan/internal/model"
)

// TyposquatCheck flags dependencies whose name does not resolve on PyPI.
type TyposquatCheck struct {
	lookup ProjectLookup
}

// NewTyposquatCheck creates a TyposquatCheck.
func NewTyposquatCheck(lookup ProjectLookup) *TyposquatCheck {
	return &TyposquatCheck{lookup: lookup}
}

// Name returns the check name.
func (c *TyposquatCheck) Name() string {
	return model.CheckTyposquatting
}

// Category returns the check category.
func (c *TyposquatCheck) Category() string {
	return CategoryRegistry
}

// Run looks the name up on PyPI.
func (c *TyposquatCheck) Run(ctx context.Context, target *Target) (model.CheckResult, error) {
	result := newResult(c)
	name := target.Requirement.Name

	project, err := c.lookup.Lookup(ctx, name)
	if err != nil {
		return result, fmt.Errorf("failed to look up %s: %w", name, err)
	}

	if !project.Exists {
		result.Flagged = true
		result.Reason = fmt.Sprintf("PyPI returned status %d for %q", project.StatusCode, name)
		return result, nil
	}

	result.Reason = fmt.Sprintf("%q exists on PyPI", name)
	if project.Version != "" {
		result.Reason = fmt.Sprintf("%q exists on PyPI (latest %s)", name, project.Version)
	}
	return result, nil
}
