package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// highRiskThreshold is the package percentage at which a package is
// reported as high risk on top of its individual findings.
const highRiskThreshold = 75.0

// Summary is a severity-ranked view of a ScanReport.
type Summary struct {
	// Target is the scanned repository URL or "local".
	Target string `json:"target"`

	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// === Severity Summary ===

	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
	InfoCount     int `json:"info_count"`

	// === Packages ===

	// PackagesScanned is the number of dependencies checked.
	PackagesScanned int `json:"packages_scanned"`

	// FlaggedPackages is the number of dependencies with any flagged check.
	FlaggedPackages int `json:"flagged_packages"`

	// TotalVulnerabilityPercentage mirrors the report total.
	TotalVulnerabilityPercentage float64 `json:"total_vulnerability_percentage"`

	// Findings contains all findings, most severe first.
	Findings []Finding `json:"findings,omitempty"`

	// TimedOut indicates if the scan was terminated due to timeout.
	TimedOut bool `json:"timed_out"`

	// Error contains any error message if the scan failed.
	Error string `json:"error,omitempty"`
}

// Finding represents a single finding in the summary.
type Finding struct {
	// Type is the finding type identifier, usually a check name.
	Type string `json:"type"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Description provides more detail about the finding.
	Description string `json:"description,omitempty"`

	// Impact explains the security implications of this finding.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address this finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the affected package name.
	Value string `json:"value,omitempty"`

	// Location is where the finding was discovered, such as a file path.
	Location string `json:"location,omitempty"`
}

var findingTitles = map[string]string{
	CheckTyposquatting:        "Package Not Found on PyPI",
	CheckSupplyChain:          "Missing Install Record",
	CheckCodeInjection:        "Dynamic Code Execution",
	CheckCredentialHarvesting: "Credential Keywords in Metadata",
	FindingCheckError:         "Check Failed",
	FindingHighRiskPackage:    "High Risk Package",
}

// NewSummary builds a Summary from a ScanReport.
func NewSummary(report *ScanReport) *Summary {
	s := &Summary{
		Target:                       report.Target,
		DateScanned:                  report.DateScanned,
		PackagesScanned:              len(report.Packages),
		FlaggedPackages:              report.FlaggedPackages(),
		TotalVulnerabilityPercentage: report.TotalVulnerabilityPercentage,
		TimedOut:                     report.TimedOut,
	}
	if report.Error != nil {
		s.Error = report.Error.Error()
	} else if report.ErrorMessage != "" {
		s.Error = report.ErrorMessage
	}

	for _, pkg := range report.Packages {
		s.collectFindings(pkg)
	}

	sort.SliceStable(s.Findings, func(i, j int) bool {
		return s.Findings[i].Severity > s.Findings[j].Severity
	})
	s.countBySeverity()

	return s
}

func (s *Summary) collectFindings(pkg PackageReport) {
	for _, c := range pkg.Checks {
		if !c.Flagged {
			continue
		}
		if c.Error != "" {
			s.addFinding(FindingCheckError, fmt.Sprintf("%s: %s", c.Name, c.Error), pkg.Name, "")
			continue
		}
		location := ""
		if len(c.Evidence) > 0 {
			location = strings.Join(c.Evidence, ", ")
		}
		s.addFinding(c.Name, c.Reason, pkg.Name, location)
	}

	if pkg.VulnerabilityPercentage >= highRiskThreshold {
		s.addFinding(FindingHighRiskPackage,
			fmt.Sprintf("%.0f%% of checks flagged %s", pkg.VulnerabilityPercentage, pkg.Name),
			pkg.Name, "")
	}
}

// addFinding adds a finding to the summary.
func (s *Summary) addFinding(findingType, description, value, location string) {
	info := GetFindingInfo(findingType)
	title := findingTitles[findingType]
	if title == "" {
		title = findingType
	}
	s.Findings = append(s.Findings, Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Description:    description,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	})
}

func (s *Summary) count(sev Severity) {
	switch sev {
	case SeverityCritical:
		s.CriticalCount++
	case SeverityHigh:
		s.HighCount++
	case SeverityMedium:
		s.MediumCount++
	case SeverityLow:
		s.LowCount++
	case SeverityInfo:
		s.InfoCount++
	}
}

// countBySeverity counts findings by severity level.
func (s *Summary) countBySeverity() {
	for _, f := range s.Findings {
		s.count(f.Severity)
	}
}

// TotalFindings returns the total number of findings.
func (s *Summary) TotalFindings() int {
	return len(s.Findings)
}

// HasFindings returns true if there are any findings.
func (s *Summary) HasFindings() bool {
	return len(s.Findings) > 0
}

// GetFindingsBySeverity returns findings filtered by severity.
func (s *Summary) GetFindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range s.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}
