package model

// NoDependenciesMessage is returned by the API when nothing could be analyzed.
const NoDependenciesMessage = "No dependencies found in the repository."

// AnalyzeResponse is the body of a successful POST /analyze.
type AnalyzeResponse struct {
	TotalVulnerabilityPercentage float64            `json:"total_vulnerability_percentage"`
	Dependencies                 []DependencyResult `json:"dependencies"`
}

// DependencyResult is one entry of AnalyzeResponse.
type DependencyResult struct {
	PackageName             string  `json:"package_name"`
	VulnerabilityPercentage float64 `json:"vulnerability_percentage"`

	// Checks maps check names to 0 (clean) or 1 (flagged).
	Checks map[string]int `json:"checks,omitempty"`
}

// MessageResponse is an error body with a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewAnalyzeResponse converts a ScanReport to the API shape.
func NewAnalyzeResponse(report *ScanReport) AnalyzeResponse {
	resp := AnalyzeResponse{
		TotalVulnerabilityPercentage: report.TotalVulnerabilityPercentage,
		Dependencies:                 make([]DependencyResult, 0, len(report.Packages)),
	}
	for _, p := range report.Packages {
		checks := make(map[string]int, len(p.Checks))
		for _, c := range p.Checks {
			checks[c.Name] = c.Score()
		}
		resp.Dependencies = append(resp.Dependencies, DependencyResult{
			PackageName:             p.PackageName,
			VulnerabilityPercentage: p.VulnerabilityPercentage,
			Checks:                  checks,
		})
	}
	return resp
}
