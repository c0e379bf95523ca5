package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", s)
	}
}

// Options configures the printer behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
}

// Printer writes CLI output in the configured format.
type Printer struct {
	w       io.Writer
	options Options
}

// NewPrinter creates a Printer writing to w, or stdout when w is nil.
func NewPrinter(w io.Writer, options Options) *Printer {
	if w == nil {
		w = os.Stdout
	}
	if options.Format == "" {
		options.Format = FormatTable
	}
	return &Printer{w: w, options: options}
}

// Options returns the printer options.
func (p *Printer) Options() Options { return p.options }

// structured prints v as JSON or YAML and reports whether it did.
func (p *Printer) structured(v interface{}) (bool, error) {
	switch p.options.Format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return true, err
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = p.w.Write(data)
		return true, err
	default:
		return false, nil
	}
}

// createTable creates a new table with standard styling
func (p *Printer) createTable(headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleRounded)

	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = text.FgHiCyan.Sprint(h)
	}
	t.AppendHeader(row)
	return t
}

// emptyMessage prints a notice for an empty listing.
func (p *Printer) emptyMessage(icon, message string) {
	if p.options.Quiet {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}

func (p *Printer) total(n int, noun string) {
	if p.options.Quiet {
		return
	}
	fmt.Fprintf(p.w, "\n%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(n),
		text.FgHiBlue.Sprint(noun))
}

// Success prints a confirmation line unless the printer is quiet.
func (p *Printer) Success(format string, args ...interface{}) {
	if p.options.Quiet || p.options.Format != FormatTable {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", text.FgGreen.Sprint("✓"), fmt.Sprintf(format, args...))
}
