package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/model"
	"github.com/nao1215/depscan/internal/report"
)

// outputReports writes the reports in the requested format to the report
// file, or to stdout when no file was requested. Several JSON reports are
// written as one array so the output stays parseable.
func outputReports(cfg *config.Config, stdout io.Writer, reports []*model.ScanReport, apiShape bool) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may list private repositories, so only the owner can read them.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if cfg.JSONReport {
		opts := []report.JSONWriterOption{report.WithPrettyPrint()}
		if apiShape {
			opts = append(opts, report.WithAPIShape())
		}
		w := report.NewJSONWriter(output, opts...)
		if len(reports) == 1 {
			_, err := w.Write(reports[0])
			return err
		}
		_, err := w.WriteBatch(reports)
		return err
	}

	var w report.Writer
	if cfg.MarkdownReport {
		w = report.NewMarkdownWriter(output)
	} else {
		w = report.NewSimpleWriter(output,
			report.WithColor(cfg.ReportFile == ""),
			report.WithVerbose(cfg.Verbose),
		)
	}
	for _, r := range reports {
		if _, err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
