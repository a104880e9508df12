// Package output renders analysis results as text, markdown, JSON or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat maps a flag value to a Format. Unknown values fall back to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// Structured reports whether the format is a machine-readable data dump.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatTOON
}

// Renderable is a result that knows how to present itself.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the value encoded for the structured formats.
	RenderData() any
}

// Formatter writes results in one format to one destination.
type Formatter struct {
	format  Format
	w       io.Writer
	closer  io.Closer
	colored bool
}

// NewFormatter writes to path, or to stdout when path is empty. Files never
// get color codes.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	f := NewWriterFormatter(format, file, false)
	f.closer = file
	return f, nil
}

// NewWriterFormatter creates a formatter that writes to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the output file, if the formatter opened one.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *Formatter) Writer() io.Writer { return f.w }
func (f *Formatter) Format() Format    { return f.format }
func (f *Formatter) Colored() bool     { return f.colored }

// Output writes data. Renderables choose their own text and markdown form;
// any other value is written as JSON in those formats.
func (f *Formatter) Output(data any) error {
	r, isRenderable := data.(Renderable)
	if isRenderable && f.format.Structured() {
		data = r.RenderData()
	}

	switch {
	case f.format == FormatTOON:
		return f.writeTOON(data)
	case f.format == FormatJSON:
		return f.writeJSON(data)
	case isRenderable && f.format == FormatMarkdown:
		return r.RenderMarkdown(f.w)
	case isRenderable:
		return r.RenderText(f.w, f.colored)
	case f.format == FormatMarkdown:
		fmt.Fprintln(f.w, "```json")
		if err := f.writeJSON(data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.w, "```")
		return err
	default:
		return f.writeJSON(data)
	}
}

func (f *Formatter) writeJSON(data any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *Formatter) writeTOON(data any) error {
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return fmt.Errorf("encode toon: %w", err)
	}
	if _, err := f.w.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.w)
	return err
}

// Message helpers. Without color, warnings and errors carry a text prefix.

func (f *Formatter) Success(format string, args ...any) {
	f.message(color.FgGreen, "", format, args...)
}

func (f *Formatter) Warning(format string, args ...any) {
	f.message(color.FgYellow, "WARNING: ", format, args...)
}

func (f *Formatter) Error(format string, args ...any) {
	f.message(color.FgRed, "ERROR: ", format, args...)
}

func (f *Formatter) Info(format string, args ...any) {
	f.message(color.FgCyan, "", format, args...)
}

func (f *Formatter) message(attr color.Attribute, prefix, format string, args ...any) {
	if f.colored {
		color.New(attr).Fprintf(f.w, format+"\n", args...)
		return
	}
	fmt.Fprintf(f.w, prefix+format+"\n", args...)
}

// KindColor colors text by block kind: main, subroutine, function or external.
func KindColor(kind, text string) string {
	switch strings.ToLower(kind) {
	case "main":
		return color.New(color.Bold).Sprint(text)
	case "subroutine":
		return color.CyanString(text)
	case "function":
		return color.GreenString(text)
	case "external":
		return color.YellowString(text)
	default:
		return text
	}
}
