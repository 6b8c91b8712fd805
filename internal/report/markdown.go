package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports as GitHub-flavoured Markdown, suitable
// for pull request comments and job summaries.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	summary := summaryOf(report)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeDependencies(md, report)
	w.writeSeverity(md, summary)
	w.writeFindings(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the severity section and findings only.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("depscan Summary")
	md.PlainText("")
	md.PlainTextf("Target: `%s`", summary.Target)
	md.PlainText("")
	w.writeSeverity(md, summary)
	w.writeFindings(md, summary)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("depscan Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + report.Target + "`"},
		{"Source", report.Source},
	}
	if report.Manifest != "" {
		rows = append(rows, []string{"Manifest", "`" + report.Manifest + "`"})
	}
	if report.Ref != "" {
		rows = append(rows, []string{"Ref", "`" + report.Ref + "`"})
	}
	rows = append(rows,
		[]string{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		[]string{"Dependencies", strconv.Itoa(len(report.Packages))},
		[]string{"Total Vulnerability", formatPercent(report.TotalVulnerabilityPercentage)},
		[]string{"Status", statusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(report *model.ScanReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeDependencies(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Dependencies")
	md.PlainText("")

	if len(report.Packages) == 0 {
		md.PlainText("No dependencies were checked.")
		md.PlainText("")
		return
	}

	header := []string{"Package", "Installed"}
	for _, c := range checkColumns {
		header = append(header, c.label)
	}
	header = append(header, "Vulnerability")

	rows := make([][]string, 0, len(report.Packages))
	for _, p := range report.Packages {
		installed := "-"
		if p.Installed {
			installed = p.InstalledVersion
			if installed == "" {
				installed = "yes"
			}
		}
		row := []string{"`" + p.PackageName + "`", installed}
		for _, c := range checkColumns {
			row = append(row, checkMark(p, c.name))
		}
		row = append(row, formatPercent(p.VulnerabilityPercentage))
		rows = append(rows, row)
	}

	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")

	if len(report.Ignored) > 0 {
		md.PlainText("Ignored by configuration:")
		md.PlainText("")
		md.BulletList(report.Ignored...)
		md.PlainText("")
	}
}

func checkMark(p model.PackageReport, name string) string {
	c, ok := p.Check(name)
	switch {
	case !ok:
		return "-"
	case c.Error != "":
		return "⚠️"
	case c.Flagged:
		return "❌"
	default:
		return "✅"
	}
}

func (w *MarkdownWriter) writeSeverity(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(summary.CriticalCount)},
			{"🟠 High", strconv.Itoa(summary.HighCount)},
			{"🟡 Medium", strconv.Itoa(summary.MediumCount)},
			{"🔵 Low", strconv.Itoa(summary.LowCount)},
			{"⚪ Info", strconv.Itoa(summary.InfoCount)},
			{"**Total**", "**" + strconv.Itoa(summary.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if summary.HasFindings() {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, s := range []struct {
		label string
		count int
	}{
		{"Critical", summary.CriticalCount},
		{"High", summary.HighCount},
		{"Medium", summary.MediumCount},
		{"Low", summary.LowCount},
		{"Info", summary.InfoCount},
	} {
		if s.count > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.count)) //nolint:gosec // counts are never negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	switch {
	case summary.CriticalCount > 0:
		md.Cautionf("%d package(s) contain dynamic code execution. Review them before installing.",
			summary.CriticalCount)
	case summary.HighCount > 0:
		md.Warningf("%d high severity finding(s). Verify package names and install records.",
			summary.HighCount)
	case summary.MediumCount > 0:
		md.Importantf("%d package(s) mention credentials in their metadata.", summary.MediumCount)
	case summary.TotalFindings() > 0:
		md.Note("Only low severity findings detected. Some checks could not run.")
	default:
		md.Tip("No dependency was flagged by any check.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Findings")
	md.PlainText("")

	if !summary.HasFindings() {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	for _, sev := range []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityCritical, "### 🔴 Critical"},
		{model.SeverityHigh, "### 🟠 High"},
		{model.SeverityMedium, "### 🟡 Medium"},
		{model.SeverityLow, "### 🔵 Low"},
		{model.SeverityInfo, "### ⚪ Info"},
	} {
		findings := summary.GetFindingsBySeverity(sev.level)
		if len(findings) == 0 {
			continue
		}
		md.PlainText(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			f.Title,
			orDash(f.Value),
			truncateString(orDash(f.Location), 40),
			truncateString(orDash(f.Recommendation), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Package", "Location", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Description != "" {
			md.Details(fmt.Sprintf("%s: %s", f.Title, f.Value), f.Description)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [depscan](https://github.com/nao1215/depscan)*")
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
