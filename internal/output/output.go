// Package output renders list results in the operator's chosen format.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat accepts table, json, yaml or csv.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json, yaml or csv)", s)
}

// Table is the tabular projection of a result.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render writes v in format f. Table and CSV use t; JSON and YAML encode v.
func Render(w io.Writer, f Format, t Table, v interface{}) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encoding JSON")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encoding YAML")
		}
		return errors.Wrap(enc.Close(), "encoding YAML")
	case FormatCSV:
		return WriteCSV(w, t)
	default:
		return WriteTable(w, t)
	}
}

// WriteTable aligns t into columns.
func WriteTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteCSV writes t as RFC 4180 CSV with a header line.
func WriteCSV(w io.Writer, t Table) error {
	lines := make([][]string, 0, len(t.Rows)+1)
	if len(t.Headers) > 0 {
		lines = append(lines, t.Headers)
	}
	lines = append(lines, t.Rows...)
	for _, row := range lines {
		fields := make([]string, len(row))
		for i, f := range row {
			fields[i] = CSVEscape(f)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, ",")); err != nil {
			return err
		}
	}
	return nil
}

// CSVEscape wraps a field in quotes if it contains a comma, quote, or newline.
func CSVEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
