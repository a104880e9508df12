package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/panbanda/fortmap/pkg/source"
)

// Common input structures for tools

// AnalyzeInput is the base input for all analyze tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths" jsonschema:"Fixed-form source files to analyze. Each file is analyzed on its own."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	Ref    string   `json:"ref,omitempty" jsonschema:"Git revision to read the files at instead of the working tree."`
}

// CallGraphInput adds call graph options.
type CallGraphInput struct {
	AnalyzeInput
	MaxDepth       int  `json:"max_depth,omitempty" jsonschema:"Stop expanding the call tree below this depth. 0 means unlimited."`
	UniqueCalls    bool `json:"unique_calls,omitempty" jsonschema:"List each callee once per calling routine."`
	HideUnresolved bool `json:"hide_unresolved,omitempty" jsonschema:"Omit calls to routines not defined in the file."`
	IncludeMetrics bool `json:"include_metrics,omitempty" jsonschema:"Include degree, PageRank and reachability metrics."`
	Mermaid        bool `json:"mermaid,omitempty" jsonschema:"Include a Mermaid flowchart of the call graph."`
}

// SignaturesInput adds signature report options.
type SignaturesInput struct {
	AnalyzeInput
	AlteredOnly bool `json:"altered_only,omitempty" jsonschema:"Only list subroutines that reassign a parameter."`
}

// BlocksInput adds block listing options.
type BlocksInput struct {
	AnalyzeInput
	IncludeVariables bool `json:"include_variables,omitempty" jsonschema:"Include the variables of each block."`
}

// Helper functions

var errNoPaths = errors.New("no files given: paths is required")

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(r output.Renderable, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(r output.Renderable, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(r, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// analyze runs the shared analysis over input's files, reading them from
// the requested git revision when one is given.
func (s *Server) analyze(ctx context.Context, input AnalyzeInput) ([]*fixedform.Program, error) {
	if len(input.Paths) == 0 {
		return nil, errNoPaths
	}

	svc := s.svc
	if input.Ref != "" {
		git, err := source.NewGit(filepath.Dir(input.Paths[0]), input.Ref)
		if err != nil {
			return nil, err
		}
		svc = svc.ForSource(git)
	}
	return svc.AnalyzeFiles(ctx, input.Paths, analysis.FilesOptions{})
}

// Tool handlers

func (s *Server) handleAnalyzeCallGraph(ctx context.Context, req *mcp.CallToolRequest, input CallGraphInput) (*mcp.CallToolResult, any, error) {
	programs, err := s.analyze(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	opts := analysis.GraphOptions{
		MaxDepth:       input.MaxDepth,
		UniqueCalls:    input.UniqueCalls,
		HideUnresolved: input.HideUnresolved,
	}
	parts := make([]output.Renderable, len(programs))
	for i, prog := range programs {
		sections := []output.Renderable{report.NewCallTree(s.svc.CallTree(prog, opts))}
		if input.IncludeMetrics || input.Mermaid {
			g, metrics := s.svc.CallGraph(prog, opts, input.IncludeMetrics)
			if input.Mermaid {
				sections = append(sections, report.NewMermaid(g))
			}
			if metrics != nil {
				sections = append(sections, report.NewMetrics(metrics))
			}
		}
		parts[i] = report.NewGraphView(sections...)
	}
	return toolResult(report.Multi(input.Paths, parts), getFormat(input.AnalyzeInput))
}

func (s *Server) handleAnalyzeSignatures(ctx context.Context, req *mcp.CallToolRequest, input SignaturesInput) (*mcp.CallToolResult, any, error) {
	programs, err := s.analyze(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	parts := make([]output.Renderable, len(programs))
	for i, prog := range programs {
		parts[i] = report.NewSignatures(prog, input.AlteredOnly)
	}
	return toolResult(report.Multi(input.Paths, parts), getFormat(input.AnalyzeInput))
}

func (s *Server) handleAnalyzeBlocks(ctx context.Context, req *mcp.CallToolRequest, input BlocksInput) (*mcp.CallToolResult, any, error) {
	programs, err := s.analyze(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	parts := make([]output.Renderable, len(programs))
	for i, prog := range programs {
		parts[i] = report.NewBlocks(prog, input.IncludeVariables)
	}
	return toolResult(report.Multi(input.Paths, parts), getFormat(input.AnalyzeInput))
}
