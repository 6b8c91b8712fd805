package model

// Check names. They double as finding types.
const (
	CheckTyposquatting        = "typosquatting"
	CheckSupplyChain          = "supply_chain_attack"
	CheckCodeInjection        = "code_injection"
	CheckCredentialHarvesting = "credential_harvesting"
)

// CheckResult is the outcome of running one check against one package.
type CheckResult struct {
	// Name is the check name, one of the Check* constants.
	Name string `json:"name"`

	// Category groups related checks (registry, install, source, metadata).
	Category string `json:"category"`

	// Flagged is true when the check considers the package suspicious.
	// Errors are reported as flagged.
	Flagged bool `json:"flagged"`

	// Reason explains the outcome in one sentence.
	Reason string `json:"reason,omitempty"`

	// Evidence lists supporting details such as file paths.
	Evidence []string `json:"evidence,omitempty"`

	// Error is set when the check could not complete.
	Error string `json:"error,omitempty"`
}

// Score returns 1 for a flagged result and 0 otherwise.
func (c CheckResult) Score() int {
	if c.Flagged {
		return 1
	}
	return 0
}

// Percentage averages check scores into a value in [0, 100].
// An empty result set scores 0.
func Percentage(results []CheckResult) float64 {
	if len(results) == 0 {
		return 0
	}
	flagged := 0
	for _, r := range results {
		flagged += r.Score()
	}
	return float64(flagged) / float64(len(results)) * 100
}
