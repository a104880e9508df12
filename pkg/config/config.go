// Package config loads fortmap settings from TOML, YAML or JSON files.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// EnvConfigPath names the environment variable consulted when no path is given.
const EnvConfigPath = "FORTMAP_CONFIG"

// ErrInvalidConfig is returned when a config file or value fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON []byte

// Config holds all configuration options for fortmap.
type Config struct {
	// Statement recognition settings
	Parser ParserConfig `koanf:"parser" toml:"parser" yaml:"parser" json:"parser"`

	// Call tree rendering
	Graph GraphConfig `koanf:"graph" toml:"graph" yaml:"graph" json:"graph"`

	// Directory scanning
	Scan ScanConfig `koanf:"scan" toml:"scan" yaml:"scan" json:"scan"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" yaml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" yaml:"output" json:"output"`
}

// ParserConfig controls how source lines are classified.
type ParserConfig struct {
	IgnoreCase          bool     `koanf:"ignore_case" toml:"ignore_case" yaml:"ignore_case" json:"ignore_case"`
	CommentDelimiter    string   `koanf:"comment_delimiter" toml:"comment_delimiter" yaml:"comment_delimiter" json:"comment_delimiter"`
	MaxColumn           int      `koanf:"max_column" toml:"max_column" yaml:"max_column" json:"max_column"` // 0 = no limit
	DeclarationKeywords []string `koanf:"declaration_keywords" toml:"declaration_keywords" yaml:"declaration_keywords" json:"declaration_keywords"`
	DeniedKeywords      []string `koanf:"denied_keywords" toml:"denied_keywords" yaml:"denied_keywords" json:"denied_keywords"`
	MaxFileSize         int64    `koanf:"max_file_size" toml:"max_file_size" yaml:"max_file_size" json:"max_file_size"` // bytes, 0 = no limit
}

// GraphConfig controls call tree output.
type GraphConfig struct {
	MaxDepth       int  `koanf:"max_depth" toml:"max_depth" yaml:"max_depth" json:"max_depth"` // 0 = no limit
	UniqueCalls    bool `koanf:"unique_calls" toml:"unique_calls" yaml:"unique_calls" json:"unique_calls"`
	HideUnresolved bool `koanf:"hide_unresolved" toml:"hide_unresolved" yaml:"hide_unresolved" json:"hide_unresolved"`
}

// ScanConfig controls which files a directory argument expands to.
type ScanConfig struct {
	Extensions []string `koanf:"extensions" toml:"extensions" yaml:"extensions" json:"extensions"` // matched case-insensitively
	Exclude    []string `koanf:"exclude" toml:"exclude" yaml:"exclude" json:"exclude"`             // gitignore syntax
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore" json:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled       bool   `koanf:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Dir           string `koanf:"dir" toml:"dir" yaml:"dir" json:"dir"`
	TTL           int    `koanf:"ttl" toml:"ttl" yaml:"ttl" json:"ttl"` // TTL in hours
	MemoryEntries int    `koanf:"memory_entries" toml:"memory_entries" yaml:"memory_entries" json:"memory_entries"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format" yaml:"format" json:"format"` // text, markdown, json, toon
	Color   bool   `koanf:"color" toml:"color" yaml:"color" json:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose" yaml:"verbose" json:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Parser: ParserConfig{
			CommentDelimiter: "!",
			MaxFileSize:      10 * 1024 * 1024,
		},
		Scan: ScanConfig{
			Extensions: []string{".f", ".for", ".f77", ".ftn"},
			Gitignore:  true,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Dir:           ".fortmap/cache",
			TTL:           24,
			MemoryEntries: 128,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Dialect builds the statement dialect described by the parser settings.
func (c *Config) Dialect() *fixedform.Dialect {
	var opts []fixedform.DialectOption
	if c.Parser.IgnoreCase {
		opts = append(opts, fixedform.WithIgnoreCase())
	}
	if c.Parser.CommentDelimiter != "" {
		opts = append(opts, fixedform.WithCommentDelimiter(c.Parser.CommentDelimiter))
	}
	if c.Parser.MaxColumn > 0 {
		opts = append(opts, fixedform.WithMaxColumn(c.Parser.MaxColumn))
	}
	if len(c.Parser.DeclarationKeywords) > 0 {
		opts = append(opts, fixedform.WithDeclarationKeywords(c.Parser.DeclarationKeywords...))
	}
	if len(c.Parser.DeniedKeywords) > 0 {
		opts = append(opts, fixedform.WithDeniedKeywords(c.Parser.DeniedKeywords...))
	}
	if len(opts) == 0 {
		return fixedform.DefaultDialect()
	}
	return fixedform.NewDialect(opts...)
}

// Validate checks values that the file schema cannot see, such as flag overrides.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "text", "markdown", "json", "toon":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output.Format)
	}
	if c.Parser.MaxColumn < 0 {
		return fmt.Errorf("%w: parser.max_column must not be negative", ErrInvalidConfig)
	}
	if c.Parser.MaxFileSize < 0 {
		return fmt.Errorf("%w: parser.max_file_size must not be negative", ErrInvalidConfig)
	}
	if c.Graph.MaxDepth < 0 {
		return fmt.Errorf("%w: graph.max_depth must not be negative", ErrInvalidConfig)
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: scan extension %q must start with a dot", ErrInvalidConfig, ext)
		}
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := validateRaw(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// configNames are searched in order in each search directory.
var configNames = []string{
	"fortmap.toml",
	"fortmap.yaml",
	"fortmap.yml",
	"fortmap.json",
	".fortmap.toml",
	".fortmap.yaml",
	".fortmap.yml",
	".fortmap.json",
}

var searchDirs = []string{".", ".fortmap"}

// FindConfigFile returns the first config file found in the standard
// locations, or "" if there is none.
func FindConfigFile() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := FindConfigFile(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// LoadResult is a loaded config and the file it came from.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath loads the given file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig resolves the config file (explicit path, then $FORTMAP_CONFIG,
// then the standard locations) and loads it. Unlike LoadOrDefault, a file
// that exists but fails to load is an error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// validateRaw checks the parsed file contents against the embedded schema.
func validateRaw(raw map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	data, err := json.Parser().Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("fortmap.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	return c.Compile("fortmap.schema.json")
}
