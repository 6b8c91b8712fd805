// Package model defines the core data structures used throughout depscan.
//
// This package contains the following main types:
//   - CheckResult: The outcome of one check against one package
//   - PackageReport: All check results for a single dependency
//   - ScanReport: The result of scanning a repository or environment
//   - Summary: Severity-ranked findings derived from a ScanReport
//   - AnalyzeResponse: The HTTP API response shape
//
// The models live in their own package so that the check, pipeline, report
// and database packages can share them without import cycles.
package model
