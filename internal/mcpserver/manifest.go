package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	registryName   = "io.github.panbanda/fortmap"
	repositoryURL  = "https://github.com/panbanda/fortmap"
	imageName      = "ghcr.io/panbanda/fortmap"

	// Key for publisher-supplied data under _meta.
	publisherMetaKey = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the registry server.json document for the stdio server.
type Manifest struct {
	Schema      string `json:"$schema"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Repository  struct {
		URL    string `json:"url"`
		Source string `json:"source"`
	} `json:"repository"`
	Packages []ManifestPackage         `json:"packages"`
	Meta     map[string]ServerContents `json:"_meta,omitempty"`
}

// ManifestPackage runs the server image with "mcp" as its argument.
type ManifestPackage struct {
	RegistryType     string              `json:"registryType"`
	Identifier       string              `json:"identifier"`
	PackageArguments []map[string]string `json:"packageArguments"`
	Transport        map[string]string   `json:"transport"`
}

// ServerContents lists what a connected client will find: each tool with
// the first line of its description, and the prompt names.
type ServerContents struct {
	Tools   []ToolSummary `json:"tools"`
	Prompts []string      `json:"prompts"`
}

type ToolSummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// contents describes the tools and prompts NewServer registers.
func contents() (ServerContents, error) {
	var c ServerContents
	for _, t := range tools {
		summary, _, _ := strings.Cut(t.describe(), "\n")
		c.Tools = append(c.Tools, ToolSummary{Name: t.name, Summary: summary})
	}
	defs, err := loadPrompts()
	if err != nil {
		return c, fmt.Errorf("load prompts: %w", err)
	}
	for _, def := range defs {
		c.Prompts = append(c.Prompts, def.Name)
	}
	return c, nil
}

// GenerateManifest renders server.json for version (default 0.0.0).
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}
	served, err := contents()
	if err != nil {
		return nil, err
	}

	m := Manifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Description: "Call graphs, block structure and parameter side effects for fixed-form legacy source",
		Version:     version,
		Packages: []ManifestPackage{{
			RegistryType:     "oci",
			Identifier:       imageName + ":" + version,
			PackageArguments: []map[string]string{{"type": "positional", "value": "mcp"}},
			Transport:        map[string]string{"type": "stdio"},
		}},
		Meta: map[string]ServerContents{publisherMetaKey: served},
	}
	m.Repository.URL = repositoryURL
	m.Repository.Source = "github"

	return json.MarshalIndent(m, "", "  ")
}
