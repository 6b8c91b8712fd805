package model

// Severity represents the risk level of a finding.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct risk.
	SeverityInfo Severity = iota

	// SeverityLow indicates findings that only matter combined with others,
	// such as a package that is not installed locally.
	SeverityLow

	// SeverityMedium indicates findings worth a manual look.
	SeverityMedium

	// SeverityHigh indicates findings that suggest a compromised or
	// impostor package.
	SeverityHigh

	// SeverityCritical indicates findings that point at code able to run
	// arbitrary input.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// Finding types that are not produced by a check.
const (
	// FindingCheckError is recorded when a check could not run.
	FindingCheckError = "check_error"

	// FindingHighRiskPackage is recorded when most checks flag a package.
	FindingHighRiskPackage = "high_risk_package"
)

// findingInfoMapping maps finding types to their metadata.
var findingInfoMapping = map[string]FindingInfo{
	CheckCodeInjection: {
		Severity:       SeverityCritical,
		Impact:         "Installed source calls exec() or eval(), which can run attacker-controlled input.",
		Recommendation: "Review the flagged files and confirm the dynamic evaluation is intentional and never fed untrusted data.",
	},
	CheckTyposquatting: {
		Severity:       SeverityHigh,
		Impact:         "The package name does not resolve on PyPI. It may be misspelled, removed, or an impostor of a popular project.",
		Recommendation: "Verify the spelling against the intended project and pin it with a hash.",
	},
	CheckSupplyChain: {
		Severity:       SeverityHigh,
		Impact:         "The installed distribution has no RECORD file, so its installed files cannot be tied to a verified install.",
		Recommendation: "Reinstall the package with pip from a trusted index and enable hash-checking mode.",
	},
	FindingHighRiskPackage: {
		Severity:       SeverityHigh,
		Impact:         "Most checks flagged this package.",
		Recommendation: "Treat the package as untrusted until it has been reviewed manually.",
	},
	CheckCredentialHarvesting: {
		Severity:       SeverityMedium,
		Impact:         "The package metadata mentions both usernames and passwords, which is common in credential-stealing packages.",
		Recommendation: "Read the package description and source to confirm it does not collect credentials.",
	},
	FindingCheckError: {
		Severity:       SeverityLow,
		Impact:         "A check could not complete and was counted as flagged.",
		Recommendation: "Re-run the scan, or install the package locally so all checks can inspect it.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess risk.",
	}
}
