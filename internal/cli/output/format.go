// Package output renders CLI results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format is an output format accepted by --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses s, defaulting to table when empty.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

// Printer writes results in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// DefaultPrinter writes tables to stdout, with color unless NO_COLOR is set.
func DefaultPrinter() *Printer {
	_, noColor := os.LookupEnv("NO_COLOR")
	return NewPrinter(os.Stdout, FormatTable, !noColor)
}

func (p *Printer) Format() Format     { return p.format }
func (p *Printer) Writer() io.Writer  { return p.out }
func (p *Printer) ColorEnabled() bool { return p.color }

// Print renders data. Table output needs a TableRenderer and falls back
// to JSON otherwise.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatTable:
		if r, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, r)
		}
		return PrintJSON(p.out, data)
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

func (p *Printer) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Success(msg string) { p.line(ansiGreen, msg) }
func (p *Printer) Error(msg string)   { p.line(ansiRed, msg) }
func (p *Printer) Warning(msg string) { p.line(ansiYellow, msg) }

func (p *Printer) line(code, msg string) {
	_, _ = fmt.Fprintln(p.out, p.paint(code, msg))
}

// paint wraps s in an ANSI color when color is enabled.
func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}
