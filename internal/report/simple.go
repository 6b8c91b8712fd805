package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nao1215/depscan/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for the terminal.
// Colour is off unless WithColor is given, so output piped to files stays
// plain.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have nothing in them.
	showEmpty bool

	// verbose adds check reasons and evidence.
	verbose bool

	color bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor colours severities and percentages.
func WithColor(color bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.color = color
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var (
	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		model.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		model.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		model.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		model.SeverityInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	titleStyle = lipgloss.NewStyle().Bold(true)
	cleanStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func (w *SimpleWriter) paint(style lipgloss.Style, s string) string {
	if !w.color {
		return s
	}
	return style.Render(s)
}

// percentStyle picks a colour for a vulnerability percentage.
func percentStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 75:
		return severityStyles[model.SeverityCritical]
	case pct >= 50:
		return severityStyles[model.SeverityHigh]
	case pct > 0:
		return severityStyles[model.SeverityMedium]
	default:
		return cleanStyle
	}
}

// Write outputs the full report.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	summary := summaryOf(report)

	var sb strings.Builder
	w.writeHeader(&sb, report)
	w.writePackages(&sb, report)
	w.writeSeverity(&sb, summary)
	w.writeFindings(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs the severity section and findings only.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Target: %s\n\n", summary.Target)
	w.writeSeverity(&sb, summary)
	w.writeFindings(&sb, summary)
	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.paint(titleStyle, "                          DEPSCAN REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:         %s\n", report.Target)
	if report.Manifest != "" {
		fmt.Fprintf(sb, "Manifest:       %s\n", report.Manifest)
	}
	if report.Ref != "" {
		fmt.Fprintf(sb, "Ref:            %s\n", report.Ref)
	}
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Dependencies:   %d\n", len(report.Packages))
	fmt.Fprintf(sb, "Vulnerability:  %s\n",
		w.paint(percentStyle(report.TotalVulnerabilityPercentage), formatPercent(report.TotalVulnerabilityPercentage)))

	switch {
	case report.TimedOut:
		sb.WriteString("Status:         TIMED OUT (partial results)\n")
	case report.ErrorMessage != "":
		fmt.Fprintf(sb, "Status:         ERROR - %s\n", report.ErrorMessage)
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePackages(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Packages) == 0 && !w.showEmpty {
		return
	}
	section(sb, "DEPENDENCIES")

	if len(report.Packages) == 0 {
		sb.WriteString("  No dependencies checked\n\n")
		return
	}

	for _, p := range report.Packages {
		fmt.Fprintf(sb, "  %-40s %s\n", p.PackageName,
			w.paint(percentStyle(p.VulnerabilityPercentage), formatPercent(p.VulnerabilityPercentage)))
		if flagged := p.FlaggedChecks(); len(flagged) > 0 {
			fmt.Fprintf(sb, "    flagged: %s\n", strings.Join(flagged, ", "))
		}
		if !w.verbose {
			continue
		}
		for _, c := range p.Checks {
			if c.Reason != "" {
				fmt.Fprintf(sb, "    %s: %s\n", c.Name, c.Reason)
			}
			for _, e := range c.Evidence {
				fmt.Fprintf(sb, "      - %s\n", e)
			}
		}
	}
	sb.WriteString("\n")

	if len(report.Ignored) > 0 {
		fmt.Fprintf(sb, "  Ignored: %s\n\n", strings.Join(report.Ignored, ", "))
	}
}

func (w *SimpleWriter) writeSeverity(sb *strings.Builder, summary *model.Summary) {
	section(sb, "SEVERITY SUMMARY")

	for _, s := range []struct {
		level model.Severity
		count int
	}{
		{model.SeverityCritical, summary.CriticalCount},
		{model.SeverityHigh, summary.HighCount},
		{model.SeverityMedium, summary.MediumCount},
		{model.SeverityLow, summary.LowCount},
		{model.SeverityInfo, summary.InfoCount},
	} {
		label := fmt.Sprintf("%-9s", s.level.String()+":")
		fmt.Fprintf(sb, "  %s %d\n", w.paint(severityStyles[s.level], label), s.count)
	}
	fmt.Fprintf(sb, "\n  TOTAL:    %d findings\n\n", summary.TotalFindings())
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, summary *model.Summary) {
	if !summary.HasFindings() && !w.showEmpty {
		return
	}
	section(sb, "FINDINGS")

	for _, severity := range []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
		model.SeverityInfo,
	} {
		findings := summary.GetFindingsBySeverity(severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	header := fmt.Sprintf("[%s] %s", severityIndicator(severity), severity.String())
	sb.WriteString(w.paint(severityStyles[severity], header))
	sb.WriteString("\n")

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		fmt.Fprintf(sb, "  * %s\n", f.Title)
		if f.Value != "" {
			fmt.Fprintf(sb, "    Package: %s\n", f.Value)
		}
		if f.Location != "" {
			fmt.Fprintf(sb, "    Location: %s\n", f.Location)
		}
		if w.verbose && f.Description != "" {
			fmt.Fprintf(sb, "    Description: %s\n", f.Description)
		}
		if w.verbose && f.Recommendation != "" {
			fmt.Fprintf(sb, "    Recommendation: %s\n", f.Recommendation)
		}
	}
	sb.WriteString("\n")
}

func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by depscan\n")
	sb.WriteString("https://github.com/nao1215/depscan\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
