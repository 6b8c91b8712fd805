package check

import (
	"context"

	"github.com/nao1215/depscan/internal/model"
)

// SupplyChainCheck flags distributions installed without a RECORD file.
// pip writes RECORD on every wheel install, so its absence means the files
// were placed some other way. Packages that are not installed are flagged
// because nothing can be verified.
type SupplyChainCheck struct{}

// NewSupplyChainCheck creates a SupplyChainCheck.
func NewSupplyChainCheck() *SupplyChainCheck {
	return &SupplyChainCheck{}
}

// Name returns the check name.
func (c *SupplyChainCheck) Name() string {
	return model.CheckSupplyChain
}

// Category returns the check category.
func (c *SupplyChainCheck) Category() string {
	return CategoryInstall
}

// Run looks for the RECORD file.
func (c *SupplyChainCheck) Run(_ context.Context, target *Target) (model.CheckResult, error) {
	result := newResult(c)

	if !target.Installed() {
		result.Flagged = true
		result.Reason = "package is not installed; install record unavailable"
		return result, nil
	}

	if !target.Distribution.HasRecord() {
		result.Flagged = true
		result.Reason = "installed without a RECORD file"
		result.Evidence = []string{target.Distribution.InfoPath}
		return result, nil
	}

	result.Reason = "RECORD file present"
	return result, nil
}
