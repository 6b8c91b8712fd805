package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/pyenv"
)

// DefaultCredentialKeywords must all appear in the metadata to flag a package.
var DefaultCredentialKeywords = []string{"username", "password"}

// CredentialHarvestCheck flags packages whose metadata mentions every
// credential keyword. Matching is case-insensitive. Packages that are not
// installed or ship no metadata are flagged.
type CredentialHarvestCheck struct {
	keywords [][]byte
}

// NewCredentialHarvestCheck creates a CredentialHarvestCheck.
// With no keywords, DefaultCredentialKeywords are used.
func NewCredentialHarvestCheck(keywords ...string) *CredentialHarvestCheck {
	if len(keywords) == 0 {
		keywords = DefaultCredentialKeywords
	}
	c := &CredentialHarvestCheck{keywords: make([][]byte, 0, len(keywords))}
	for _, k := range keywords {
		c.keywords = append(c.keywords, []byte(strings.ToLower(k)))
	}
	return c
}

// Name returns the check name.
func (c *CredentialHarvestCheck) Name() string {
	return model.CheckCredentialHarvesting
}

// Category returns the check category.
func (c *CredentialHarvestCheck) Category() string {
	return CategoryMetadata
}

// Run searches the raw metadata.
func (c *CredentialHarvestCheck) Run(_ context.Context, target *Target) (model.CheckResult, error) {
	result := newResult(c)

	if !target.Installed() {
		result.Flagged = true
		result.Reason = "package is not installed; metadata unavailable"
		return result, nil
	}

	raw, err := target.Distribution.RawMetadata()
	if err != nil {
		if errors.Is(err, pyenv.ErrNoMetadata) {
			result.Flagged = true
			result.Reason = "distribution has no metadata"
			return result, nil
		}
		return result, err
	}

	lower := bytes.ToLower(raw)
	for _, k := range c.keywords {
		if !bytes.Contains(lower, k) {
			result.Reason = fmt.Sprintf("metadata does not mention %q", k)
			return result, nil
		}
	}

	result.Flagged = true
	result.Reason = "metadata mentions all credential keywords"
	result.Evidence = []string{target.Distribution.InfoPath}
	return result, nil
}
