// Package analyzer defines the interfaces shared by fortmap analyzers.
package analyzer

import "context"

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// SourceFileAnalyzer analyzes files whose content comes from a ContentSource.
type SourceFileAnalyzer[T any] interface {
	// Analyze processes a collection of files and returns the analysis result.
	// The context can be used for cancellation.
	Analyze(ctx context.Context, files []string, src ContentSource) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
