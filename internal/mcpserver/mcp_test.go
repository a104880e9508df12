package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/config"
)

const solverSource = `      x = 1
      call step(x)
      y = twice(x)
      call report(y)
      subroutine step(a)
      a = a + 1
      call step(a)
      end
      double precision function twice(b)
      twice = 2 * b
      end
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer("test", analysis.New(analysis.WithConfig(config.DefaultConfig())))
}

func writeSolver(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solver.f")
	if err := os.WriteFile(path, []byte(solverSource), 0644); err != nil {
		t.Fatalf("failed to write solver.f: %v", err)
	}
	return path
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("handler returned nil result")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	if result.IsError {
		t.Fatalf("tool returned error: %s", text.Text)
	}
	return text.Text
}

// TestServerCreation verifies the MCP server can be created without panicking.
func TestServerCreation(t *testing.T) {
	server := newTestServer(t)
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
	if server.svc == nil {
		t.Fatal("NewServer().svc is nil")
	}
}

// TestServerCreationDefaults verifies empty version and nil service are filled in.
func TestServerCreationDefaults(t *testing.T) {
	server := NewServer("", nil)
	if server == nil || server.svc == nil {
		t.Fatal("NewServer(\"\", nil) should create a service")
	}
}

// TestToolDescriptions verifies all description functions carry the guidance sections.
func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"call_graph": describeCallGraph,
		"signatures": describeSignatures,
		"blocks":     describeBlocks,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s section", name, section)
				}
			}
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		input string
		want  output.Format
	}{
		{"", output.FormatTOON},
		{"toon", output.FormatTOON},
		{"json", output.FormatJSON},
		{"markdown", output.FormatMarkdown},
		{"md", output.FormatMarkdown},
		{"unknown", output.FormatTOON},
	}
	for _, tt := range tests {
		if got := getFormat(AnalyzeInput{Format: tt.input}); got != tt.want {
			t.Errorf("getFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestToolError(t *testing.T) {
	result, data, err := toolError("boom")
	if err != nil {
		t.Fatalf("toolError returned error: %v", err)
	}
	if data != nil {
		t.Error("toolError should return nil data")
	}
	if !result.IsError {
		t.Error("IsError should be set")
	}
	if text := result.Content[0].(*mcp.TextContent).Text; text != "Error: boom" {
		t.Errorf("text = %q, want %q", text, "Error: boom")
	}
}

func TestHandleCallGraph(t *testing.T) {
	server := newTestServer(t)
	path := writeSolver(t)

	result, _, err := server.handleAnalyzeCallGraph(context.Background(), nil, CallGraphInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{path}, Format: "json"},
	})
	if err != nil {
		t.Fatalf("handleAnalyzeCallGraph returned error: %v", err)
	}

	var tree struct {
		Path    string `json:"path"`
		Entries []struct {
			Name      string `json:"name"`
			Depth     int    `json:"depth"`
			Resolved  bool   `json:"resolved"`
			Recursive bool   `json:"recursive"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &tree); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var names []string
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "MAIN,step,step,twice,report" {
		t.Errorf("entries = %s", got)
	}
	if !tree.Entries[2].Recursive {
		t.Error("self call should be recursive")
	}
	if tree.Entries[4].Resolved {
		t.Error("report should be unresolved")
	}
}

func TestHandleCallGraphWithMetrics(t *testing.T) {
	server := newTestServer(t)
	path := writeSolver(t)

	result, _, err := server.handleAnalyzeCallGraph(context.Background(), nil, CallGraphInput{
		AnalyzeInput:   AnalyzeInput{Paths: []string{path}, Format: "json"},
		IncludeMetrics: true,
		Mermaid:        true,
	})
	if err != nil {
		t.Fatalf("handleAnalyzeCallGraph returned error: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(resultText(t, result)), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"call_tree", "mermaid", "metrics"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing %q in result", key)
		}
	}
}

func TestHandleCallGraphTOON(t *testing.T) {
	server := newTestServer(t)
	path := writeSolver(t)

	result, _, err := server.handleAnalyzeCallGraph(context.Background(), nil, CallGraphInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{path}},
	})
	if err != nil {
		t.Fatalf("handleAnalyzeCallGraph returned error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "step") || !strings.Contains(text, "report") {
		t.Errorf("toon output missing routines:\n%s", text)
	}
}

func TestHandleSignatures(t *testing.T) {
	server := newTestServer(t)
	path := writeSolver(t)

	result, _, err := server.handleAnalyzeSignatures(context.Background(), nil, SignaturesInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{path}, Format: "json"},
		AlteredOnly:  true,
	})
	if err != nil {
		t.Fatalf("handleAnalyzeSignatures returned error: %v", err)
	}

	var rows []struct {
		Name    string   `json:"name"`
		Altered []string `json:"altered"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "step" || strings.Join(rows[0].Altered, ",") != "a" {
		t.Errorf("rows = %+v, want step altering a", rows)
	}
}

func TestHandleBlocks(t *testing.T) {
	server := newTestServer(t)
	path := writeSolver(t)

	result, _, err := server.handleAnalyzeBlocks(context.Background(), nil, BlocksInput{
		AnalyzeInput:     AnalyzeInput{Paths: []string{path}, Format: "markdown"},
		IncludeVariables: true,
	})
	if err != nil {
		t.Fatalf("handleAnalyzeBlocks returned error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "| step | subroutine | 5-8 | 1 | 1 |") {
		t.Errorf("markdown missing step row:\n%s", text)
	}
}

func TestHandleBlocksMultipleFiles(t *testing.T) {
	server := newTestServer(t)
	first := writeSolver(t)
	second := writeSolver(t)

	result, _, err := server.handleAnalyzeBlocks(context.Background(), nil, BlocksInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{first, second}, Format: "json"},
	})
	if err != nil {
		t.Fatalf("handleAnalyzeBlocks returned error: %v", err)
	}

	var perFile [][]map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &perFile); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(perFile) != 2 || len(perFile[0]) != 3 {
		t.Errorf("expected 2 files with 3 blocks each, got %v", perFile)
	}
}

func TestHandleErrors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name  string
		input AnalyzeInput
	}{
		{name: "no paths", input: AnalyzeInput{}},
		{name: "missing file", input: AnalyzeInput{Paths: []string{filepath.Join(t.TempDir(), "missing.f")}}},
		{name: "not a repository", input: AnalyzeInput{Paths: []string{filepath.Join(t.TempDir(), "a.f")}, Ref: "HEAD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := server.handleAnalyzeSignatures(context.Background(), nil, SignaturesInput{AnalyzeInput: tt.input})
			if err != nil {
				t.Fatalf("handler should report errors in the result, got %v", err)
			}
			if !result.IsError {
				t.Error("expected IsError result")
			}
		})
	}
}

func TestLoadPrompts(t *testing.T) {
	defs, err := loadPrompts()
	if err != nil {
		t.Fatalf("loadPrompts() error = %v", err)
	}
	if len(defs) == 0 {
		t.Fatal("no prompts found")
	}
	for _, def := range defs {
		if def.Description == "" {
			t.Errorf("prompt %s has no description", def.Name)
		}
		if len(def.Arguments) == 0 {
			t.Errorf("prompt %s has no arguments", def.Name)
		}
		if strings.HasPrefix(def.Body, "---") {
			t.Errorf("prompt %s body still has frontmatter", def.Name)
		}
	}
}

func TestParseFrontmatter(t *testing.T) {
	fm, body := parseFrontmatter([]byte("---\ndescription: trace\narguments:\n  - name: file\n    required: true\n---\nbody {{file}}\n"))
	if fm.Description != "trace" {
		t.Errorf("Description = %q, want trace", fm.Description)
	}
	if len(fm.Arguments) != 1 || fm.Arguments[0].Name != "file" || !fm.Arguments[0].Required {
		t.Errorf("Arguments = %+v", fm.Arguments)
	}
	if body != "body {{file}}\n" {
		t.Errorf("body = %q", body)
	}

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	if fm.Description != "" || body != "no frontmatter" {
		t.Errorf("plain content should pass through, got %+v %q", fm, body)
	}
}

func TestPromptHandler(t *testing.T) {
	def := promptDef{
		Name:        "trace",
		Description: "trace a routine",
		Arguments: []promptArgument{
			{Name: "file", Required: true},
			{Name: "ref", Default: "HEAD"},
		},
		Body: "analyze {{file}} at {{ref}}",
	}

	req := &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{
			Name:      "trace",
			Arguments: map[string]string{"file": "solver.f"},
		},
	}
	result, err := makePromptHandler(def)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.Description != def.Description {
		t.Errorf("Description = %q", result.Description)
	}
	if len(result.Messages) != 1 || result.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", result.Messages)
	}
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	if text != "analyze solver.f at HEAD" {
		t.Errorf("text = %q, want substituted arguments", text)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest() error = %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid manifest JSON: %v", err)
	}
	if m.Version != "1.2.3" || m.Name != "io.github.panbanda/fortmap" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Packages) != 1 || m.Packages[0].Identifier != "ghcr.io/panbanda/fortmap:1.2.3" {
		t.Errorf("packages = %+v", m.Packages)
	}
	if m.Repository.URL != "https://github.com/panbanda/fortmap" {
		t.Errorf("repository = %+v", m.Repository)
	}

	served, ok := m.Meta[publisherMetaKey]
	if !ok {
		t.Fatalf("_meta missing %s", publisherMetaKey)
	}
	if len(served.Tools) != 3 || served.Tools[0].Name != "analyze_call_graph" {
		t.Errorf("tools = %+v", served.Tools)
	}
	for _, tool := range served.Tools {
		if tool.Summary == "" || strings.Contains(tool.Summary, "\n") {
			t.Errorf("tool %s summary = %q, want one non-empty line", tool.Name, tool.Summary)
		}
	}

	data, err = GenerateManifest("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"version": "0.0.0"`) {
		t.Error("empty version should default to 0.0.0")
	}
}

// TestManifestMatchesServer checks the manifest against what a connected
// client actually lists.
func TestManifestMatchesServer(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	listedTools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	listedPrompts, err := cs.ListPrompts(ctx, nil)
	if err != nil {
		t.Fatalf("ListPrompts() error = %v", err)
	}

	served, err := contents()
	if err != nil {
		t.Fatalf("contents() error = %v", err)
	}

	registered := make(map[string]bool)
	for _, tool := range listedTools.Tools {
		registered[tool.Name] = true
	}
	if len(registered) != len(served.Tools) {
		t.Errorf("server lists %d tools, manifest has %d", len(registered), len(served.Tools))
	}
	for _, tool := range served.Tools {
		if !registered[tool.Name] {
			t.Errorf("manifest tool %s is not registered", tool.Name)
		}
	}

	prompts := make(map[string]bool)
	for _, p := range listedPrompts.Prompts {
		prompts[p.Name] = true
	}
	if len(prompts) != len(served.Prompts) {
		t.Errorf("server lists %d prompts, manifest has %d", len(prompts), len(served.Prompts))
	}
	for _, name := range served.Prompts {
		if !prompts[name] {
			t.Errorf("manifest prompt %s is not registered", name)
		}
	}
}
