package model

import (
	"time"

	"github.com/nao1215/depscan/internal/requirements"
)

// Scan sources.
const (
	// SourceGitHub is a manifest fetched from a GitHub repository.
	SourceGitHub = "github"

	// SourceLocal is the locally installed environment.
	SourceLocal = "local"
)

// PackageReport holds every check result for one dependency.
type PackageReport struct {
	// PackageName is the requirement as written in the manifest.
	PackageName string `json:"package_name"`

	// Name is the project name used for lookups.
	Name string `json:"name"`

	// InstalledVersion is the locally installed version, if any.
	InstalledVersion string `json:"installed_version,omitempty"`

	// Installed reports whether the package was found in the environment.
	Installed bool `json:"installed"`

	// VulnerabilityPercentage is the share of flagged checks in [0, 100].
	VulnerabilityPercentage float64 `json:"vulnerability_percentage"`

	// Checks holds results in check registration order.
	Checks []CheckResult `json:"checks"`
}

// FlaggedChecks returns the names of flagged checks.
func (p PackageReport) FlaggedChecks() []string {
	var names []string
	for _, c := range p.Checks {
		if c.Flagged {
			names = append(names, c.Name)
		}
	}
	return names
}

// Check returns the result of the named check.
func (p PackageReport) Check(name string) (CheckResult, bool) {
	for _, c := range p.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// ScanReport is the main scan result structure.
type ScanReport struct {
	// Target is the repository URL, or "local" for environment scans.
	Target string `json:"target"`

	// Source is SourceGitHub or SourceLocal.
	Source string `json:"source"`

	// Manifest is the manifest path inside the repository.
	Manifest string `json:"manifest,omitempty"`

	// Ref is the git ref the manifest was read from.
	Ref string `json:"ref,omitempty"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// Dependencies are the requirements that were checked, in manifest order.
	Dependencies []requirements.Requirement `json:"dependencies,omitempty"`

	// Ignored lists dependency names skipped by configuration.
	Ignored []string `json:"ignored,omitempty"`

	// Packages holds one report per dependency, in the same order.
	Packages []PackageReport `json:"packages"`

	// TotalVulnerabilityPercentage is the mean of package percentages.
	TotalVulnerabilityPercentage float64 `json:"total_vulnerability_percentage"`

	// Summary contains findings ranked by severity.
	Summary *Summary `json:"summary,omitempty"`

	// TimedOut is true if the scan was cancelled by its deadline.
	TimedOut bool `json:"timed_out"`

	// PerformedScans lists the pipeline steps that completed.
	PerformedScans []string `json:"performed_scans,omitempty"`

	// Error contains any error that occurred during scanning.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewScanReport creates a new report for the given target.
func NewScanReport(target, source string) *ScanReport {
	return &ScanReport{
		Target:      target,
		Source:      source,
		DateScanned: time.Now(),
		Packages:    make([]PackageReport, 0),
	}
}

// TotalPercentage returns the mean vulnerability percentage of packages,
// or 0 for an empty list.
func TotalPercentage(packages []PackageReport) float64 {
	if len(packages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range packages {
		sum += p.VulnerabilityPercentage
	}
	return sum / float64(len(packages))
}

// FlaggedPackages returns the number of packages with at least one flagged check.
func (r *ScanReport) FlaggedPackages() int {
	n := 0
	for _, p := range r.Packages {
		if p.VulnerabilityPercentage > 0 {
			n++
		}
	}
	return n
}

// AddFinding adds a finding to the summary.
// If the summary doesn't exist, it initializes one.
func (r *ScanReport) AddFinding(finding Finding) {
	if r.Summary == nil {
		r.Summary = &Summary{
			Target:      r.Target,
			DateScanned: r.DateScanned,
			Findings:    make([]Finding, 0),
		}
	}

	for _, f := range r.Summary.Findings {
		if f.Type == finding.Type && f.Value == finding.Value && f.Location == finding.Location {
			return
		}
	}

	r.Summary.Findings = append(r.Summary.Findings, finding)
	r.Summary.count(finding.Severity)
}
