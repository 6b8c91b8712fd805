package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/database"
	"github.com/nao1215/depscan/internal/github"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// Constants for risk direction and summary messages.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
	noFindingsMessage      = "No findings"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "List past scans and compare results",
		Long: `History reads the scans saved by 'depscan scan' and 'depscan local'.

Without arguments it lists every scanned target. With a target it compares
the latest scan against the previous one and shows:
- New and resolved findings
- Added and removed dependencies
- The change in total vulnerability percentage and severity counts

Examples:
  # List scanned targets
  depscan history

  # List saved scans of a repository
  depscan history --list https://github.com/pallets/flask

  # Compare the latest scan with the previous one
  depscan history https://github.com/pallets/flask

  # Compare with a specific scan by ID
  depscan history -i 5 https://github.com/pallets/flask

  # Compare with the first scan since a date, as JSON
  depscan history --since 2025-01-01 --json https://github.com/pallets/flask

  # Remove expired PyPI lookups from the cache
  depscan history --purge-cache`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified target")
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().Bool("purge-cache", false,
		"Delete PyPI lookups older than --cache-ttl and exit")
	cmd.Flags().Duration("cache-ttl", config.DefaultLookupCacheTTL,
		"Age after which cached lookups are purged")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	list       bool
	withScanID int64
	since      string
	json       bool
	markdown   bool
	purgeCache bool
	cacheTTL   time.Duration
	dbDir      string
}

func parseHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.withScanID, err = flags.GetInt64("with-scan-id"); err != nil {
		return opts, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.purgeCache, err = flags.GetBool("purge-cache"); err != nil {
		return opts, err
	}
	if opts.cacheTTL, err = flags.GetDuration("cache-ttl"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	return opts, nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var target string
	if len(args) > 0 {
		target, err = normalizeTarget(args[0])
		if err != nil {
			return err
		}
	} else if opts.list || opts.withScanID != 0 || opts.since != "" {
		return errors.New("a target is required (run 'depscan history' to list scanned targets)")
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.purgeCache:
		n, err := db.PurgeLookupCache(ctx, opts.cacheTTL)
		if err != nil {
			return fmt.Errorf("failed to purge lookup cache: %w", err)
		}
		fmt.Fprintf(out, "Removed %d cached lookups older than %s\n", n, opts.cacheTTL)
		return nil
	case target == "":
		return listScannedTargets(ctx, out, db)
	case opts.list:
		return listScanHistory(ctx, out, db, target)
	}

	result, err := runComparison(ctx, db, target, opts.withScanID, opts.since)
	if err != nil {
		return err
	}
	switch {
	case opts.json:
		return outputComparisonJSON(out, result)
	case opts.markdown:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// normalizeTarget maps a repository URL to the form scans are saved
// under. Local targets are used as given.
func normalizeTarget(target string) (string, error) {
	if strings.HasPrefix(target, model.SourceLocal) {
		return target, nil
	}
	repo, err := github.ParseRepoURL(target)
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", target, err)
	}
	return repo.URL(), nil
}

// listScannedTargets lists all targets that have scan records in the database.
func listScannedTargets(ctx context.Context, out io.Writer, db *database.ScanDB) error {
	targets, err := db.ListScannedTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No scanned targets found in the database.")
		fmt.Fprintln(out, "\nUse 'depscan scan <github-url>' to scan a repository.")
		return nil
	}

	fmt.Fprintf(out, "Scanned targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  • %s\n", target)
	}
	fmt.Fprintln(out, "\nUse 'depscan history --list <target>' to see scan history for a target.")

	return nil
}

// listScanHistory lists all scan records for a target.
func listScanHistory(ctx context.Context, out io.Writer, db *database.ScanDB, target string) error {
	reports, err := db.GetScanHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", target)
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", target, len(reports))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Total", "Risk Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 66))

	for _, meta := range reports {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1f%%", meta.TotalVulnerabilityPercentage),
			formatRiskSummary(meta.RiskSummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'depscan history <target>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'depscan history --with-scan-id <id> <target>' to compare with a specific scan.")

	return nil
}

// formatRiskSummary formats the risk summary map into a human-readable string.
func formatRiskSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, s := range []struct {
		key, label string
	}{
		{"critical", "C"},
		{"high", "H"},
		{"medium", "M"},
		{"low", "L"},
		{"info", "I"},
	} {
		if v := summary[s.key]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", s.label, v))
		}
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison picks the two reports to compare and diffs them.
// The latest report is always the current one.
func runComparison(ctx context.Context, db *database.ScanDB, target string, withScanID int64, sinceDate string) (*ComparisonResult, error) {
	reports, err := db.GetScanHistory(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return nil, fmt.Errorf("no scan history found for %s", target)
	}

	if len(reports) < 2 && withScanID == 0 && sinceDate == "" {
		return nil, fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	current := reports[0]
	var previous *model.ScanReport

	switch {
	case withScanID > 0:
		previous, err = db.GetScanReportByID(ctx, withScanID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("scan with ID %d not found", withScanID)
		}
		if previous.Target != target {
			return nil, fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previous.Target, target)
		}
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are newest first; walk backwards to find the oldest
		// report at or after the date.
		for i := len(reports) - 1; i >= 0; i-- {
			if !reports[i].DateScanned.Before(parsedDate) {
				previous = reports[i]
				break
			}
		}
		if previous == nil {
			return nil, fmt.Errorf("no scans found since %s", sinceDate)
		}
		if previous == current {
			return nil, fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", sinceDate)
		}
	default:
		previous = reports[1]
	}

	return compareReports(previous, current), nil
}

// ComparisonResult holds the result of comparing two scan reports.
type ComparisonResult struct {
	// Target is the scanned repository URL or local target.
	Target string `json:"target"`

	// PreviousScan contains metadata about the previous scan.
	PreviousScan ScanMetadata `json:"previous_scan"`

	// CurrentScan contains metadata about the current scan.
	CurrentScan ScanMetadata `json:"current_scan"`

	// NewFindings contains findings that are new in the current scan.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings that were in the previous scan but not in current.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings that remain unchanged.
	UnchangedCount int `json:"unchanged_count"`

	// AddedPackages are dependencies only present in the current scan.
	AddedPackages []string `json:"added_packages,omitempty"`

	// RemovedPackages are dependencies only present in the previous scan.
	RemovedPackages []string `json:"removed_packages,omitempty"`

	// RiskChange describes the overall change in risk level.
	RiskChange RiskChange `json:"risk_change"`
}

// ScanMetadata contains metadata about a scan for comparison display.
type ScanMetadata struct {
	DateScanned                  time.Time `json:"date_scanned"`
	Packages                     int       `json:"packages"`
	FlaggedPackages              int       `json:"flagged_packages"`
	TotalVulnerabilityPercentage float64   `json:"total_vulnerability_percentage"`
	TotalFindings                int       `json:"total_findings"`
	CriticalCount                int       `json:"critical_count"`
	HighCount                    int       `json:"high_count"`
	MediumCount                  int       `json:"medium_count"`
	LowCount                     int       `json:"low_count"`
	InfoCount                    int       `json:"info_count"`
}

// RiskChange describes the change in risk level between scans.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// PercentageDelta is the change in total vulnerability percentage.
	PercentageDelta float64 `json:"percentage_delta"`

	CriticalDelta int `json:"critical_delta"`
	HighDelta     int `json:"high_delta"`
	MediumDelta   int `json:"medium_delta"`
	LowDelta      int `json:"low_delta"`
	InfoDelta     int `json:"info_delta"`
}

func scanMetadata(r *model.ScanReport) ScanMetadata {
	summary := r.Summary
	if summary == nil {
		summary = model.NewSummary(r)
	}
	return ScanMetadata{
		DateScanned:                  r.DateScanned,
		Packages:                     len(r.Packages),
		FlaggedPackages:              r.FlaggedPackages(),
		TotalVulnerabilityPercentage: r.TotalVulnerabilityPercentage,
		TotalFindings:                len(summary.Findings),
		CriticalCount:                summary.CriticalCount,
		HighCount:                    summary.HighCount,
		MediumCount:                  summary.MediumCount,
		LowCount:                     summary.LowCount,
		InfoCount:                    summary.InfoCount,
	}
}

func findingsOf(r *model.ScanReport) []model.Finding {
	if r.Summary == nil {
		return model.NewSummary(r).Findings
	}
	return r.Summary.Findings
}

// compareReports compares two scan reports and generates a comparison result.
// Finding and package lists are sorted so the output is stable.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		Target:       current.Target,
		PreviousScan: scanMetadata(previous),
		CurrentScan:  scanMetadata(current),
	}

	previousFindings := make(map[string]model.Finding)
	for _, f := range findingsOf(previous) {
		previousFindings[findingKey(f)] = f
	}
	currentFindings := make(map[string]model.Finding)
	for _, f := range findingsOf(current) {
		currentFindings[findingKey(f)] = f
	}

	for key, finding := range currentFindings {
		if _, exists := previousFindings[key]; !exists {
			result.NewFindings = append(result.NewFindings, finding)
		}
	}
	for key, finding := range previousFindings {
		if _, exists := currentFindings[key]; !exists {
			result.ResolvedFindings = append(result.ResolvedFindings, finding)
		} else {
			result.UnchangedCount++
		}
	}
	sortFindings(result.NewFindings)
	sortFindings(result.ResolvedFindings)

	result.AddedPackages, result.RemovedPackages = diffPackages(previous.Packages, current.Packages)
	result.RiskChange = calculateRiskChange(result.PreviousScan, result.CurrentScan)

	return result
}

// findingKey generates a unique key for a finding for comparison purposes.
func findingKey(f model.Finding) string {
	return f.Type + "|" + f.Value + "|" + f.Location
}

func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		return findingKey(findings[i]) < findingKey(findings[j])
	})
}

func diffPackages(previous, current []model.PackageReport) (added, removed []string) {
	before := make(map[string]bool, len(previous))
	for _, p := range previous {
		before[p.Name] = true
	}
	after := make(map[string]bool, len(current))
	for _, p := range current {
		after[p.Name] = true
		if !before[p.Name] {
			added = append(added, p.Name)
		}
	}
	for _, p := range previous {
		if !after[p.Name] {
			removed = append(removed, p.Name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// calculateRiskChange calculates the change in risk between two scans.
// Severity counts are weighted; the total percentage breaks ties.
func calculateRiskChange(previous, current ScanMetadata) RiskChange {
	change := RiskChange{
		PercentageDelta: current.TotalVulnerabilityPercentage - previous.TotalVulnerabilityPercentage,
		CriticalDelta:   current.CriticalCount - previous.CriticalCount,
		HighDelta:       current.HighCount - previous.HighCount,
		MediumDelta:     current.MediumCount - previous.MediumCount,
		LowDelta:        current.LowCount - previous.LowCount,
		InfoDelta:       current.InfoCount - previous.InfoCount,
	}

	previousScore := previous.CriticalCount*100 + previous.HighCount*50 + previous.MediumCount*10 + previous.LowCount*5 + previous.InfoCount
	currentScore := current.CriticalCount*100 + current.HighCount*50 + current.MediumCount*10 + current.LowCount*5 + current.InfoCount

	switch {
	case currentScore < previousScore:
		change.Direction = riskDirectionImproved
	case currentScore > previousScore:
		change.Direction = riskDirectionWorsened
	case change.PercentageDelta < 0:
		change.Direction = riskDirectionImproved
	case change.PercentageDelta > 0:
		change.Direction = riskDirectionWorsened
	default:
		change.Direction = riskDirectionUnchanged
	}

	return change
}

func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)
	md.H1f("Scan Comparison: %s", result.Target)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	prev, cur, delta := result.PreviousScan, result.CurrentScan, result.RiskChange
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", prev.DateScanned.Format("2006-01-02 15:04"), cur.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Total Vulnerability", formatPct(prev.TotalVulnerabilityPercentage), formatPct(cur.TotalVulnerabilityPercentage), formatPctDelta(delta.PercentageDelta)},
			{"Packages", strconv.Itoa(prev.Packages), strconv.Itoa(cur.Packages), formatDelta(cur.Packages - prev.Packages)},
			{"Critical", strconv.Itoa(prev.CriticalCount), strconv.Itoa(cur.CriticalCount), formatDelta(delta.CriticalDelta)},
			{"High", strconv.Itoa(prev.HighCount), strconv.Itoa(cur.HighCount), formatDelta(delta.HighDelta)},
			{"Medium", strconv.Itoa(prev.MediumCount), strconv.Itoa(cur.MediumCount), formatDelta(delta.MediumDelta)},
			{"Low", strconv.Itoa(prev.LowCount), strconv.Itoa(cur.LowCount), formatDelta(delta.LowDelta)},
			{"Info", strconv.Itoa(prev.InfoCount), strconv.Itoa(cur.InfoCount), formatDelta(delta.InfoDelta)},
			{"**Total**", "**" + strconv.Itoa(prev.TotalFindings) + "**", "**" + strconv.Itoa(cur.TotalFindings) + "**", "**" + formatDelta(cur.TotalFindings-prev.TotalFindings) + "**"},
		},
	})

	if len(result.AddedPackages) > 0 || len(result.RemovedPackages) > 0 {
		md.PlainText("")
		md.H2("Dependency Changes")
		md.PlainText("")
		var items []string
		for _, p := range result.AddedPackages {
			items = append(items, "added `"+p+"`")
		}
		for _, p := range result.RemovedPackages {
			items = append(items, "removed `"+p+"`")
		}
		md.BulletList(items...)
	}

	if len(result.NewFindings) > 0 {
		md.PlainText("")
		md.H2f("New Findings (%d)", len(result.NewFindings))
		md.PlainText("")
		items := make([]string, 0, len(result.NewFindings))
		for _, f := range result.NewFindings {
			item := fmt.Sprintf("**[%s]** %s: %s", f.SeverityText, f.Title, f.Value)
			if f.Location != "" {
				item += fmt.Sprintf(" (`%s`)", f.Location)
			}
			items = append(items, item)
		}
		md.BulletList(items...)
	}

	if len(result.ResolvedFindings) > 0 {
		md.PlainText("")
		md.H2f("Resolved Findings (%d)", len(result.ResolvedFindings))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			items = append(items, fmt.Sprintf("~~**[%s]** %s: %s~~", f.SeverityText, f.Title, f.Value))
		}
		md.BulletList(items...)
	}

	if result.UnchangedCount > 0 {
		md.PlainText("")
		md.HorizontalRule()
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Scan Comparison: %s\n", result.Target)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))

	prev, cur, delta := result.PreviousScan, result.CurrentScan, result.RiskChange
	fmt.Fprintf(out, "\nPrevious scan: %s\n", prev.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current scan:  %s\n", cur.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "\nTotal vulnerability: %s -> %s (%s)\n",
		formatPct(prev.TotalVulnerabilityPercentage),
		formatPct(cur.TotalVulnerabilityPercentage),
		formatPctDelta(delta.PercentageDelta))

	row := func(label string, p, c, d int) {
		fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", label, p, c, formatDelta(d))
	}
	fmt.Fprintln(out, "\nFindings Summary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	row("Critical", prev.CriticalCount, cur.CriticalCount, delta.CriticalDelta)
	row("High", prev.HighCount, cur.HighCount, delta.HighDelta)
	row("Medium", prev.MediumCount, cur.MediumCount, delta.MediumDelta)
	row("Low", prev.LowCount, cur.LowCount, delta.LowDelta)
	row("Info", prev.InfoCount, cur.InfoCount, delta.InfoDelta)
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	row("Total", prev.TotalFindings, cur.TotalFindings, cur.TotalFindings-prev.TotalFindings)

	for _, p := range result.AddedPackages {
		fmt.Fprintf(out, "\n  [+] dependency %s", p)
	}
	for _, p := range result.RemovedPackages {
		fmt.Fprintf(out, "\n  [-] dependency %s", p)
	}
	if len(result.AddedPackages)+len(result.RemovedPackages) > 0 {
		fmt.Fprintln(out)
	}

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(out, "  [+] [%s] %s: %s\n", f.SeverityText, f.Title, f.Value)
			if f.Location != "" {
				fmt.Fprintf(out, "      Location: %s\n", f.Location)
			}
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(out, "  [-] [%s] %s: %s\n", f.SeverityText, f.Title, f.Value)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (risk decreased)"
	case riskDirectionWorsened:
		return "WORSENED (risk increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatPctDelta(v float64) string {
	if v > 0 {
		return "+" + formatPct(v)
	}
	return formatPct(v)
}
