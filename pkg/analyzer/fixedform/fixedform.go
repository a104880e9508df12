// Package fixedform extracts structure from a single fixed-format source
// file: block boundaries, per-block variables, call sites linked to their
// target blocks, and parameters reassigned by subroutines.
//
// Recognition is pattern based. Columns 1-5 hold labels, column 6 marks
// continuation lines, statements start at column 7.
package fixedform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/panbanda/fortmap/pkg/analyzer"
)

// ErrFileTooLarge is returned when a file exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ContentSource provides file content.
type ContentSource = analyzer.ContentSource

// Analyzer runs the fixed-form pipeline over source files.
type Analyzer struct {
	dialect     *Dialect
	maxFileSize int64
}

// Compile-time check that Analyzer implements SourceFileAnalyzer.
var _ analyzer.SourceFileAnalyzer[[]*Program] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithDialect sets the statement patterns and keyword tables.
func WithDialect(d *Dialect) Option {
	return func(a *Analyzer) {
		if d != nil {
			a.dialect = d
		}
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// New creates an analyzer using the default dialect unless overridden.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		dialect: DefaultDialect(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dialect returns the dialect the analyzer classifies lines with.
func (a *Analyzer) Dialect() *Dialect {
	return a.dialect
}

// AnalyzeSource analyzes in-memory content. path is used only for reporting.
func (a *Analyzer) AnalyzeSource(path string, content []byte) (*Program, error) {
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		return nil, fmt.Errorf("%s: %w (%d > %d bytes)", path, ErrFileTooLarge, len(content), a.maxFileSize)
	}
	return Build(a.dialect, path, SplitLines(content)), nil
}

// AnalyzeFile reads path from src (the filesystem when src is nil) and analyzes it.
func (a *Analyzer) AnalyzeFile(path string, src ContentSource) (*Program, error) {
	var (
		content []byte
		err     error
	)
	if src != nil {
		content, err = src.Read(path)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a.AnalyzeSource(path, content)
}

// Analyze analyzes each file in order. Any failure aborts the run and no
// partial results are returned.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src ContentSource) ([]*Program, error) {
	programs := make([]*Program, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prog, err := a.AnalyzeFile(path, src)
		if err != nil {
			return nil, err
		}
		programs = append(programs, prog)
	}
	return programs, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

// SplitLines splits content into lines without their terminators. A final
// newline does not produce an extra empty line.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return []string{}
	}
	content = bytes.TrimSuffix(content, []byte("\n"))
	parts := bytes.Split(content, []byte("\n"))
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(bytes.TrimSuffix(p, []byte("\r")))
	}
	return lines
}
