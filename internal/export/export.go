// Package export encodes report documents and analysis results.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/qc7/internal/report"
	"github.com/verte-zerg/qc7/internal/stats"
)

// Format is an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (expected text, json, yaml or markdown)", name)
}

// WriteDocument encodes a report document.
func WriteDocument(w io.Writer, doc report.Document, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		return WriteValue(w, doc, format)
	case FormatMarkdown:
		return writeMarkdown(w, doc)
	case FormatText, "":
		return writeText(w, doc)
	}
	return fmt.Errorf("unsupported document format %q", format)
}

// WriteValue encodes any result as JSON or YAML.
func WriteValue(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("format %q is not a structured encoding", format)
}

func writeMarkdown(w io.Writer, doc report.Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	for _, f := range doc.Cover.Facts {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(&b, "- **%s:** %s\n", f.Label, f.Value)
	}
	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Title)
		if len(s.Facts) > 0 {
			b.WriteString("| Item | Value |\n|---|---|\n")
			for _, f := range s.Facts {
				fmt.Fprintf(&b, "| %s | %s |\n", markdownCell(f.Label), markdownCell(f.Value))
			}
		}
		if len(s.Paragraphs) > 0 {
			if len(s.Facts) > 0 {
				b.WriteByte('\n')
			}
			for _, p := range s.Paragraphs {
				fmt.Fprintf(&b, "%s\n\n", p)
			}
		}
	}
	if len(doc.Skipped) > 0 {
		b.WriteString("\n## Skipped sections\n\n")
		for _, s := range doc.Skipped {
			fmt.Fprintf(&b, "- %s: %s\n", s.Kind, s.Message)
		}
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}

func writeText(w io.Writer, doc report.Document) error {
	var lines []string
	lines = append(lines, doc.Title, strings.Repeat("=", len(doc.Title)))
	for _, f := range doc.Cover.Facts {
		if f.Value == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", f.Label, f.Value))
	}
	for _, s := range doc.Sections {
		lines = append(lines, "", s.Title, strings.Repeat("-", len(s.Title)))
		rows := make([][]string, len(s.Facts))
		for i, f := range s.Facts {
			rows[i] = []string{f.Label, f.Value}
		}
		lines = append(lines, stats.FormatTable(nil, rows, nil)...)
		for _, p := range s.Paragraphs {
			lines = append(lines, "  "+p)
		}
	}
	for _, s := range doc.Skipped {
		lines = append(lines, "", fmt.Sprintf("Skipped %s: %s", s.Kind, s.Message))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
