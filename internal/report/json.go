package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/depscan/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// apiShape writes model.AnalyzeResponse instead of the full report.
	apiShape bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithAPIShape writes the same body POST /analyze returns instead of the
// full report.
func WithAPIShape() JSONWriterOption {
	return func(w *JSONWriter) {
		w.apiShape = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one report.
func (w *JSONWriter) Write(report *model.ScanReport) (int, error) {
	if w.apiShape {
		return w.writeJSON(model.NewAnalyzeResponse(report))
	}
	summaryOf(report)
	return w.writeJSON(report)
}

// WriteSummary outputs only the summary.
func (w *JSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

// WriteBatch outputs several reports as one JSON array.
func (w *JSONWriter) WriteBatch(reports []*model.ScanReport) (int, error) {
	if w.apiShape {
		out := make([]model.AnalyzeResponse, 0, len(reports))
		for _, r := range reports {
			out = append(out, model.NewAnalyzeResponse(r))
		}
		return w.writeJSON(out)
	}
	for _, r := range reports {
		summaryOf(r)
	}
	return w.writeJSON(reports)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
