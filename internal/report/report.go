// Package report turns analysis results into output.Renderable values.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/panbanda/fortmap/pkg/analyzer/graph"
)

const treeIndent = "|  "

// CallTree renders a call tree one routine per line, indented by depth.
type CallTree struct {
	Tree *graph.CallTree
}

// NewCallTree wraps tree for rendering.
func NewCallTree(tree *graph.CallTree) *CallTree {
	return &CallTree{Tree: tree}
}

func (c *CallTree) RenderData() any {
	return c.Tree
}

func (c *CallTree) RenderText(w io.Writer, colored bool) error {
	for _, e := range c.Tree.Entries {
		name := e.Name
		if colored {
			name = output.KindColor(e.Type.String(), name)
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(treeIndent, e.Depth), name, entrySuffix(e)); err != nil {
			return err
		}
	}
	return nil
}

func (c *CallTree) RenderMarkdown(w io.Writer) error {
	title := "Call Tree"
	if c.Tree.Path != "" {
		title += ": " + c.Tree.Path
	}
	fmt.Fprintf(w, "## %s\n\n```text\n", title)
	if err := c.RenderText(w, false); err != nil {
		return err
	}
	fmt.Fprint(w, "```\n\n")
	return nil
}

func entrySuffix(e graph.TreeEntry) string {
	switch {
	case !e.Resolved:
		return " (external)"
	case e.Recursive:
		return " (recursive)"
	case e.Truncated:
		return " ..."
	default:
		return ""
	}
}

// Mermaid renders a dependency graph as a Mermaid flowchart.
type Mermaid struct {
	Graph *graph.DependencyGraph
}

// NewMermaid wraps g for rendering.
func NewMermaid(g *graph.DependencyGraph) *Mermaid {
	return &Mermaid{Graph: g}
}

func (m *Mermaid) RenderData() any {
	return m.Graph
}

func (m *Mermaid) RenderText(w io.Writer, _ bool) error {
	_, err := io.WriteString(w, m.Graph.ToMermaid())
	return err
}

func (m *Mermaid) RenderMarkdown(w io.Writer) error {
	fmt.Fprint(w, "```mermaid\n")
	if err := m.RenderText(w, false); err != nil {
		return err
	}
	fmt.Fprint(w, "```\n\n")
	return nil
}

// NewGraphView combines the call graph renderables of one file. A single
// part is returned as is; otherwise the structured form keys each part by
// what it holds.
func NewGraphView(parts ...output.Renderable) output.Renderable {
	if len(parts) == 1 {
		return parts[0]
	}
	data := make(map[string]any, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case *CallTree:
			data["call_tree"] = v.RenderData()
		case *Mermaid:
			data["mermaid"] = v.Graph.ToMermaid()
		case *output.Table:
			data["metrics"] = v.RenderData()
		}
	}
	return &output.Report{Sections: parts, Data: data}
}

// NewMetrics builds a table of per-node graph metrics.
func NewMetrics(metrics *graph.Metrics) *output.Table {
	rows := make([][]string, 0, len(metrics.NodeMetrics))
	for _, m := range metrics.NodeMetrics {
		reachable := "yes"
		if !m.Reachable {
			reachable = "no"
		}
		rows = append(rows, []string{
			m.Name,
			strconv.Itoa(m.InDegree),
			strconv.Itoa(m.OutDegree),
			strconv.FormatFloat(m.PageRank, 'f', 4, 64),
			reachable,
		})
	}

	footer := []string{
		fmt.Sprintf("%d nodes", metrics.Summary.TotalNodes),
		fmt.Sprintf("%d edges", metrics.Summary.TotalEdges),
		fmt.Sprintf("%d external", metrics.Summary.ExternalNodes),
		fmt.Sprintf("density %.3f", metrics.Summary.Density),
		fmt.Sprintf("%d unreachable", len(metrics.Summary.Unreachable)),
	}

	return output.NewTable(
		"Call Graph Metrics",
		[]string{"Routine", "In", "Out", "PageRank", "Reachable"},
		rows,
		footer,
		metrics,
	)
}

// SignatureRow is the structured form of one signature report row.
type SignatureRow struct {
	Name    string   `json:"name" toon:"name"`
	Kind    string   `json:"kind" toon:"kind"`
	Line    int      `json:"line" toon:"line"`
	Params  []string `json:"params" toon:"params"`
	Altered []string `json:"altered,omitempty" toon:"altered,omitempty"`
}

// NewSignatures builds a table of routine signatures. With alteredOnly set,
// only subroutines that reassign at least one parameter are listed.
func NewSignatures(prog *fixedform.Program, alteredOnly bool) *output.Table {
	data := make([]SignatureRow, 0)
	rows := make([][]string, 0)
	for _, b := range prog.Routines() {
		altered := b.Altered()
		if alteredOnly && len(altered) == 0 {
			continue
		}
		params := b.Params()
		if params == nil {
			params = []string{}
		}
		row := SignatureRow{
			Name:    b.Name,
			Kind:    b.Kind.String(),
			Line:    b.Range.Start + 1,
			Params:  params,
			Altered: altered,
		}
		data = append(data, row)
		rows = append(rows, []string{
			row.Name,
			row.Kind,
			strconv.Itoa(row.Line),
			"(" + strings.Join(row.Params, ", ") + ")",
			strings.Join(row.Altered, ", "),
		})
	}

	title := "Signatures"
	if alteredOnly {
		title = "Parameter-Altering Subroutines"
	}
	return output.NewTable(
		titleFor(title, prog.Path),
		[]string{"Name", "Kind", "Line", "Params", "Altered"},
		rows,
		nil,
		data,
	)
}

// BlockRow is the structured form of one block listing row. Lines are
// 1-based and inclusive; an empty block has StartLine greater than EndLine.
type BlockRow struct {
	Name      string   `json:"name" toon:"name"`
	Kind      string   `json:"kind" toon:"kind"`
	StartLine int      `json:"start_line" toon:"start_line"`
	EndLine   int      `json:"end_line" toon:"end_line"`
	Calls     int      `json:"calls" toon:"calls"`
	Variables []string `json:"variables,omitempty" toon:"variables,omitempty"`
	VarCount  int      `json:"variable_count" toon:"variable_count"`
}

// NewBlocks lists every block with its span and counts. With withVariables
// set, each block's variables follow the table.
func NewBlocks(prog *fixedform.Program, withVariables bool) output.Renderable {
	data := make([]BlockRow, 0, len(prog.Blocks))
	rows := make([][]string, 0, len(prog.Blocks))
	for i := range prog.Blocks {
		b := &prog.Blocks[i]
		row := BlockRow{
			Name:      b.Label(),
			Kind:      b.Kind.String(),
			StartLine: b.Range.Start + 1,
			EndLine:   b.Range.End,
			Calls:     len(b.Calls),
			VarCount:  len(b.Variables),
		}
		if withVariables {
			row.Variables = b.Variables
		}
		data = append(data, row)
		rows = append(rows, []string{
			row.Name,
			row.Kind,
			span(b.Range),
			strconv.Itoa(row.VarCount),
			strconv.Itoa(row.Calls),
		})
	}

	table := output.NewTable(
		titleFor("Blocks", prog.Path),
		[]string{"Block", "Kind", "Lines", "Variables", "Calls"},
		rows,
		nil,
		data,
	)
	if !withVariables {
		return table
	}

	sections := []output.Renderable{table}
	for i := range prog.Blocks {
		b := &prog.Blocks[i]
		sections = append(sections, &output.Section{
			Title:   b.Label() + " variables",
			Content: variableList(b.Variables),
		})
	}
	return &output.Report{Sections: sections, Data: data}
}

// Analysis is the combined view of one program.
type Analysis struct {
	Program  *fixedform.Program `json:"program" toon:"program"`
	Summary  fixedform.Summary  `json:"summary" toon:"summary"`
	CallTree *graph.CallTree    `json:"call_tree" toon:"call_tree"`
}

// NewAnalysis builds a report with a summary, the block listing, the
// signatures and the call tree of prog.
func NewAnalysis(prog *fixedform.Program, tree *graph.CallTree) *output.Report {
	s := prog.Summary()
	summary := &output.Section{
		Title: "Summary",
		Content: fmt.Sprintf("%d lines, %d subroutines, %d functions, %d calls (%d unresolved)",
			s.Lines, s.Subroutines, s.Functions, s.Calls, s.Unresolved),
	}
	return &output.Report{
		Title: prog.Path,
		Sections: []output.Renderable{
			summary,
			NewBlocks(prog, false),
			NewSignatures(prog, false),
			&headed{title: "Call Tree", Renderable: NewCallTree(tree)},
		},
		Data: &Analysis{Program: prog, Summary: s, CallTree: tree},
	}
}

// headed adds an underlined heading to the text form of a renderable.
type headed struct {
	title string
	output.Renderable
}

func (h *headed) RenderText(w io.Writer, colored bool) error {
	fmt.Fprintln(w, h.title)
	fmt.Fprintln(w, strings.Repeat("-", len(h.title)))
	return h.Renderable.RenderText(w, colored)
}

// Multi combines the renderables of several files, keeping argument order.
// In text form each part is headed by its path.
func Multi(paths []string, parts []output.Renderable) output.Renderable {
	if len(parts) == 1 {
		return parts[0]
	}
	data := make([]any, len(parts))
	sections := make([]output.Renderable, len(parts))
	for i, p := range parts {
		data[i] = p.RenderData()
		sections[i] = p
		if i < len(paths) {
			sections[i] = &headed{title: paths[i], Renderable: p}
		}
	}
	return &output.Report{Sections: sections, Data: data}
}

func titleFor(title, path string) string {
	if path == "" {
		return title
	}
	return title + ": " + path
}

// span formats a half-open range as a 1-based inclusive line span.
func span(r fixedform.LineRange) string {
	switch r.Len() {
	case 0:
		return "-"
	case 1:
		return strconv.Itoa(r.Start + 1)
	default:
		return fmt.Sprintf("%d-%d", r.Start+1, r.End)
	}
}

func variableList(vars []string) string {
	if len(vars) == 0 {
		return "(none)"
	}
	return strings.Join(vars, "\n")
}
