package graph

import "strings"

// Node represents a routine in the call graph.
type Node struct {
	ID         string            `json:"id" toon:"id"`
	Name       string            `json:"name" toon:"name"`
	Type       NodeType          `json:"type" toon:"type"`
	File       string            `json:"file" toon:"file"`
	Line       uint32            `json:"line,omitempty" toon:"line,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" toon:"attributes,omitempty"`
}

// NodeType represents the type of graph node.
type NodeType string

const (
	NodeMain       NodeType = "main"
	NodeSubroutine NodeType = "subroutine"
	NodeFunction   NodeType = "function"
	NodeExternal   NodeType = "external" // called but not defined in the file
)

// String returns the string representation.
func (n NodeType) String() string {
	return string(n)
}

// Edge represents calls from one routine to another.
type Edge struct {
	From   string   `json:"from" toon:"from"`
	To     string   `json:"to" toon:"to"`
	Type   EdgeType `json:"type" toon:"type"`
	Weight float64  `json:"weight,omitempty" toon:"weight,omitempty"` // number of call sites
}

// EdgeType represents how the callee is invoked.
type EdgeType string

const (
	EdgeCall      EdgeType = "call"      // call statement
	EdgeReference EdgeType = "reference" // f(...) inside an expression
)

// String returns the string representation.
func (e EdgeType) String() string {
	return string(e)
}

// DependencyGraph represents the full graph structure.
type DependencyGraph struct {
	Nodes []Node `json:"nodes" toon:"nodes"`
	Edges []Edge `json:"edges" toon:"edges"`
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// AddNode adds a node to the graph.
func (g *DependencyGraph) AddNode(node Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the graph.
func (g *DependencyGraph) AddEdge(edge Edge) {
	g.Edges = append(g.Edges, edge)
}

// ToMermaid generates Mermaid diagram syntax from the graph.
func (g *DependencyGraph) ToMermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		label := node.Name
		if label == "" {
			label = node.ID
		}
		open, close := "[\"", "\"]"
		if node.Type == NodeExternal {
			open, close = "([\"", "\"])"
		}
		b.WriteString("    " + SanitizeID(node.ID) + open + label + close + "\n")
	}

	for _, edge := range g.Edges {
		arrow := "-->"
		if edge.Type == EdgeReference {
			arrow = "-.->"
		}
		b.WriteString("    " + SanitizeID(edge.From) + " " + arrow + " " + SanitizeID(edge.To) + "\n")
	}

	return b.String()
}

// SanitizeID makes an ID safe for Mermaid.
func SanitizeID(id string) string {
	var b strings.Builder
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Metrics represents centrality and reachability metrics.
type Metrics struct {
	NodeMetrics []NodeMetric `json:"node_metrics" toon:"node_metrics"`
	Summary     Summary      `json:"summary" toon:"summary"`
}

// NodeMetric represents computed metrics for a single node.
type NodeMetric struct {
	NodeID    string  `json:"node_id" toon:"node_id"`
	Name      string  `json:"name" toon:"name"`
	PageRank  float64 `json:"pagerank" toon:"pagerank"`
	InDegree  int     `json:"in_degree" toon:"in_degree"`
	OutDegree int     `json:"out_degree" toon:"out_degree"`
	Reachable bool    `json:"reachable" toon:"reachable"` // reachable from main
}

// Summary provides aggregate graph statistics.
type Summary struct {
	TotalNodes    int      `json:"total_nodes" toon:"total_nodes"`
	TotalEdges    int      `json:"total_edges" toon:"total_edges"`
	ExternalNodes int      `json:"external_nodes" toon:"external_nodes"`
	AvgDegree     float64  `json:"avg_degree" toon:"avg_degree"`
	Density       float64  `json:"density" toon:"density"`
	Unreachable   []string `json:"unreachable,omitempty" toon:"unreachable,omitempty"` // routines never reached from main
}

// TreeEntry is one line of the indented call tree.
type TreeEntry struct {
	Name      string   `json:"name" toon:"name"`
	Depth     int      `json:"depth" toon:"depth"`
	Type      NodeType `json:"type" toon:"type"`
	Line      int      `json:"line,omitempty" toon:"line,omitempty"` // 1-based line of the call site
	Resolved  bool     `json:"resolved" toon:"resolved"`
	Recursive bool     `json:"recursive,omitempty" toon:"recursive,omitempty"` // already on the current path, not expanded
	Truncated bool     `json:"truncated,omitempty" toon:"truncated,omitempty"` // depth limit reached with calls left unexpanded
}

// CallTree is the call graph unfolded from Main in depth-first order.
type CallTree struct {
	Path    string      `json:"path" toon:"path"`
	Entries []TreeEntry `json:"entries" toon:"entries"`
}
