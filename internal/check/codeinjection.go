package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pyenv"
)

// DefaultInjectionPatterns are the substrings searched for in source files.
var DefaultInjectionPatterns = []string{"exec(", "eval("}

// maxEvidence caps the number of file paths reported per package.
const maxEvidence = 10

// CodeInjectionCheck flags packages whose installed Python files contain
// dynamic evaluation calls.
//
// Only files listed in the install record are read. Entries outside the
// site-packages root (console scripts) and files over the size limit are
// skipped. A package that is not installed is flagged.
type CodeInjectionCheck struct {
	patterns [][]byte
}

// NewCodeInjectionCheck creates a CodeInjectionCheck.
// With no patterns, DefaultInjectionPatterns are used.
func NewCodeInjectionCheck(patterns ...string) *CodeInjectionCheck {
	if len(patterns) == 0 {
		patterns = DefaultInjectionPatterns
	}
	c := &CodeInjectionCheck{patterns: make([][]byte, 0, len(patterns))}
	for _, p := range patterns {
		c.patterns = append(c.patterns, []byte(p))
	}
	return c
}

// Name returns the check name.
func (c *CodeInjectionCheck) Name() string {
	return model.CheckCodeInjection
}

// Category returns the check category.
func (c *CodeInjectionCheck) Category() string {
	return CategorySource
}

// Run scans the installed .py files.
func (c *CodeInjectionCheck) Run(ctx context.Context, target *Target) (model.CheckResult, error) {
	result := newResult(c)

	if !target.Installed() {
		result.Flagged = true
		result.Reason = "package is not installed; source unavailable"
		return result, nil
	}

	dist := target.Distribution
	files, err := dist.Files()
	if err != nil {
		return result, err
	}

	scanned := 0
	for _, f := range files {
		if !strings.HasSuffix(f.Path, ".py") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := dist.ReadFile(f.Path)
		switch {
		case err == nil:
		case errors.Is(err, pyenv.ErrOutsideRoot),
			errors.Is(err, pyenv.ErrFileTooLarge),
			errors.Is(err, fs.ErrNotExist):
			continue
		default:
			return result, fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		scanned++

		if c.matches(data) {
			result.Flagged = true
			if len(result.Evidence) < maxEvidence {
				result.Evidence = append(result.Evidence, f.Path)
			}
		}
	}

	switch {
	case result.Flagged:
		result.Reason = fmt.Sprintf("dynamic evaluation found in %d of %d source files", len(result.Evidence), scanned)
		if len(result.Evidence) == maxEvidence {
			result.Reason = fmt.Sprintf("dynamic evaluation found in at least %d of %d source files", maxEvidence, scanned)
		}
	case scanned == 0:
		result.Reason = "no installed source files to scan"
	default:
		result.Reason = fmt.Sprintf("no dynamic evaluation in %d source files", scanned)
	}
	return result, nil
}

func (c *CodeInjectionCheck) matches(data []byte) bool {
	for _, p := range c.patterns {
		if bytes.Contains(data, p) {
			return true
		}
	}
	return false
}
