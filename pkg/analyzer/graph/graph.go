// Package graph turns a linked fixedform.Program into a call graph: an
// indented tree rooted at Main, a node/edge model for Mermaid and JSON
// output, and gonum-backed metrics.
package graph

import (
	"fmt"

	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Analyzer builds call graph views from analyzed programs.
type Analyzer struct {
	maxDepth       int
	uniqueCalls    bool
	hideUnresolved bool
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMaxDepth stops expanding the tree below the given depth (0 = no limit).
func WithMaxDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth > 0 {
			a.maxDepth = depth
		}
	}
}

// WithUniqueCalls lists each callee once per block instead of once per call site.
func WithUniqueCalls() Option {
	return func(a *Analyzer) {
		a.uniqueCalls = true
	}
}

// WithHideUnresolved omits calls to routines not defined in the file.
func WithHideUnresolved() Option {
	return func(a *Analyzer) {
		a.hideUnresolved = true
	}
}

// New creates a new graph analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tree unfolds the call graph depth-first from Main. The graph may be
// cyclic, so a block already on the current path is listed but not
// expanded again.
func (a *Analyzer) Tree(prog *fixedform.Program) *CallTree {
	tree := &CallTree{Path: prog.Path, Entries: make([]TreeEntry, 0)}
	main := prog.Main()
	if main == nil {
		return tree
	}

	tree.Entries = append(tree.Entries, TreeEntry{
		Name:     main.Label(),
		Type:     NodeMain,
		Resolved: true,
	})

	onPath := make([]bool, len(prog.Blocks))
	var walk func(b *fixedform.Block, depth int)
	walk = func(b *fixedform.Block, depth int) {
		onPath[b.ID] = true
		defer func() { onPath[b.ID] = false }()

		var seen map[string]bool
		if a.uniqueCalls {
			seen = make(map[string]bool, len(b.Calls))
		}

		for _, cs := range b.Calls {
			if seen != nil {
				if seen[cs.Callee] {
					continue
				}
				seen[cs.Callee] = true
			}

			target := prog.Resolve(cs)
			if target == nil {
				if !a.hideUnresolved {
					tree.Entries = append(tree.Entries, TreeEntry{
						Name:  cs.Callee,
						Depth: depth + 1,
						Type:  NodeExternal,
						Line:  cs.SourceLine,
					})
				}
				continue
			}

			entry := TreeEntry{
				Name:     target.Label(),
				Depth:    depth + 1,
				Type:     nodeType(target.Kind),
				Line:     cs.SourceLine,
				Resolved: true,
			}
			switch {
			case onPath[target.ID]:
				entry.Recursive = true
				tree.Entries = append(tree.Entries, entry)
			case a.maxDepth > 0 && depth+1 >= a.maxDepth:
				entry.Truncated = len(target.Calls) > 0
				tree.Entries = append(tree.Entries, entry)
			default:
				tree.Entries = append(tree.Entries, entry)
				walk(target, depth+1)
			}
		}
	}
	walk(main, 0)

	return tree
}

// Build converts a program into nodes and weighted edges. Every block is a
// node; each distinct unresolved callee becomes one external node.
func (a *Analyzer) Build(prog *fixedform.Program) *DependencyGraph {
	g := NewDependencyGraph()

	for i := range prog.Blocks {
		b := &prog.Blocks[i]
		node := Node{
			ID:   blockNodeID(b.ID),
			Name: b.Label(),
			Type: nodeType(b.Kind),
			File: prog.Path,
			Line: uint32(b.Range.Start + 1),
		}
		if params := b.Params(); len(params) > 0 {
			node.Attributes = map[string]string{"params": fmt.Sprint(len(params))}
		}
		g.AddNode(node)
	}

	type edgeKey struct {
		from, to string
		typ      EdgeType
	}
	edgeIndex := make(map[edgeKey]int)
	external := make(map[string]bool)

	for i := range prog.Blocks {
		b := &prog.Blocks[i]
		for _, cs := range b.Calls {
			var to string
			if cs.Target != nil {
				to = blockNodeID(*cs.Target)
			} else {
				if a.hideUnresolved {
					continue
				}
				to = externalNodeID(cs.Callee)
				if !external[cs.Callee] {
					external[cs.Callee] = true
					g.AddNode(Node{ID: to, Name: cs.Callee, Type: NodeExternal})
				}
			}

			typ := EdgeReference
			if cs.Explicit {
				typ = EdgeCall
			}
			key := edgeKey{from: blockNodeID(b.ID), to: to, typ: typ}
			if idx, ok := edgeIndex[key]; ok {
				g.Edges[idx].Weight++
				continue
			}
			edgeIndex[key] = len(g.Edges)
			g.AddEdge(Edge{From: key.from, To: key.to, Type: typ, Weight: 1})
		}
	}

	return g
}

// gonumGraph holds the gonum representation and mappings.
type gonumGraph struct {
	directed   *simple.DirectedGraph
	nodeIDToID map[string]int64 // our node ID -> gonum int64 ID
	idToNodeID map[int64]string // gonum int64 ID -> our node ID
}

// toGonumGraph converts our DependencyGraph to a gonum directed graph.
func toGonumGraph(graph *DependencyGraph) *gonumGraph {
	g := &gonumGraph{
		directed:   simple.NewDirectedGraph(),
		nodeIDToID: make(map[string]int64),
		idToNodeID: make(map[int64]string),
	}

	for i, node := range graph.Nodes {
		id := int64(i)
		g.nodeIDToID[node.ID] = id
		g.idToNodeID[id] = node.ID
		g.directed.AddNode(simple.Node(id))
	}

	// Self-loops (direct recursion) are skipped: gonum simple graphs reject them.
	for _, edge := range graph.Edges {
		fromID, fromOK := g.nodeIDToID[edge.From]
		toID, toOK := g.nodeIDToID[edge.To]
		if fromOK && toOK && fromID != toID {
			g.directed.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
		}
	}

	return g
}

// CalculateMetrics computes PageRank, degrees and reachability from Main.
func (a *Analyzer) CalculateMetrics(graph *DependencyGraph) *Metrics {
	metrics := &Metrics{
		NodeMetrics: make([]NodeMetric, 0, len(graph.Nodes)),
		Summary: Summary{
			TotalNodes: len(graph.Nodes),
			TotalEdges: len(graph.Edges),
		},
	}
	if len(graph.Nodes) == 0 {
		return metrics
	}

	gGraph := toGonumGraph(graph)
	pageRank := network.PageRank(gGraph.directed, 0.85, 1e-6)

	inDegree := make(map[string]int)
	outDegree := make(map[string]int)
	for _, e := range graph.Edges {
		outDegree[e.From]++
		inDegree[e.To]++
	}

	reachable := make(map[int64]bool)
	for _, node := range graph.Nodes {
		if node.Type != NodeMain {
			continue
		}
		root := gGraph.nodeIDToID[node.ID]
		reachable[root] = true
		bf := traverse.BreadthFirst{
			Visit: func(n gonum.Node) { reachable[n.ID()] = true },
		}
		bf.Walk(gGraph.directed, simple.Node(root), nil)
	}

	for _, node := range graph.Nodes {
		id := gGraph.nodeIDToID[node.ID]
		nm := NodeMetric{
			NodeID:    node.ID,
			Name:      node.Name,
			PageRank:  pageRank[id],
			InDegree:  inDegree[node.ID],
			OutDegree: outDegree[node.ID],
			Reachable: reachable[id],
		}
		metrics.NodeMetrics = append(metrics.NodeMetrics, nm)

		switch node.Type {
		case NodeExternal:
			metrics.Summary.ExternalNodes++
		case NodeSubroutine, NodeFunction:
			if !nm.Reachable {
				metrics.Summary.Unreachable = append(metrics.Summary.Unreachable, node.Name)
			}
		}
	}

	n := float64(len(graph.Nodes))
	metrics.Summary.AvgDegree = float64(len(graph.Edges)) / n
	if n > 1 {
		metrics.Summary.Density = float64(len(graph.Edges)) / (n * (n - 1))
	}

	return metrics
}

func nodeType(k fixedform.Kind) NodeType {
	switch k {
	case fixedform.KindMain:
		return NodeMain
	case fixedform.KindSubroutine:
		return NodeSubroutine
	case fixedform.KindFunction:
		return NodeFunction
	default:
		return NodeExternal
	}
}

func blockNodeID(id fixedform.BlockID) string {
	return fmt.Sprintf("block:%d", id)
}

func externalNodeID(name string) string {
	return "external:" + name
}
