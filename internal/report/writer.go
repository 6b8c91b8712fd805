package report

import (
	"io"

	"github.com/nao1215/depscan/internal/model"
)

// Writer renders reports to a destination.
type Writer interface {
	// Write outputs the full report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ScanReport) (int, error)

	// WriteSummary outputs only the severity-ranked findings.
	WriteSummary(summary *model.Summary) (int, error)
}

// MultiWriter writes to multiple Writers, for example the terminal and a
// file at once. It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary *model.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// summaryOf returns the report summary, building it when missing.
func summaryOf(report *model.ScanReport) *model.Summary {
	if report.Summary == nil {
		report.Summary = model.NewSummary(report)
	}
	return report.Summary
}

// checkColumns are the check names shown as table columns, in check order.
var checkColumns = []struct {
	name  string
	label string
}{
	{model.CheckTyposquatting, "Typosquatting"},
	{model.CheckSupplyChain, "Supply Chain"},
	{model.CheckCodeInjection, "Code Injection"},
	{model.CheckCredentialHarvesting, "Credentials"},
}
