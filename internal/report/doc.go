// Package report renders scan reports.
//
// Writers:
//   - SimpleWriter: text for the terminal, optionally coloured with lipgloss
//   - JSONWriter: the full report, or the HTTP API response shape
//   - MarkdownWriter: tables, a mermaid pie chart and GitHub alerts
//
// Every writer implements Writer, so they can be combined with MultiWriter.
package report
