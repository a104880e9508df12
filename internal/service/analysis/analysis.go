// Package analysis ties configuration, content sources, caching and the
// fixed-form analyzer together for the CLI, watch mode and MCP server.
package analysis

import (
	"context"
	"fmt"

	"github.com/panbanda/fortmap/internal/cache"
	"github.com/panbanda/fortmap/internal/fileproc"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/panbanda/fortmap/pkg/analyzer/graph"
	"github.com/panbanda/fortmap/pkg/config"
	"github.com/panbanda/fortmap/pkg/source"
)

// Service orchestrates fixed-form analysis operations.
type Service struct {
	config   *config.Config
	source   source.ContentSource
	cache    *cache.Cache
	analyzer *fixedform.Analyzer
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithSource sets where file content is read from.
func WithSource(src source.ContentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithCache sets the result cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a new analysis service. The dialect is built once from the
// parser settings and shared by every analysis the service runs.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		source: source.NewFilesystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.analyzer = fixedform.New(
		fixedform.WithDialect(s.config.Dialect()),
		fixedform.WithMaxFileSize(s.config.Parser.MaxFileSize),
	)
	return s
}

// ForSource returns a service that reads from src and shares this
// service's configuration, dialect and cache.
func (s *Service) ForSource(src source.ContentSource) *Service {
	cp := *s
	cp.source = src
	return &cp
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.config
}

// Dialect returns the dialect used to classify lines.
func (s *Service) Dialect() *fixedform.Dialect {
	return s.analyzer.Dialect()
}

// FilesOptions configures multi-file analysis.
type FilesOptions struct {
	MaxWorkers int
	OnProgress func()
}

// AnalyzeFiles analyzes each file independently in parallel and returns the
// programs in argument order. Any failure fails the whole run.
func (s *Service) AnalyzeFiles(ctx context.Context, files []string, opts FilesOptions) ([]*fixedform.Program, error) {
	if len(files) == 0 {
		return nil, nil
	}
	programs, errs := fileproc.MapFiles(ctx, files, opts.MaxWorkers, s.AnalyzeFile, opts.OnProgress)
	if errs != nil {
		return nil, errs
	}
	return programs, nil
}

// AnalyzeFile reads path from the configured source and analyzes it.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*fixedform.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := s.source.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.AnalyzeContent(path, content)
}

// AnalyzeContent analyzes in-memory content, consulting the cache first.
func (s *Service) AnalyzeContent(path string, content []byte) (*fixedform.Program, error) {
	useCache := s.cache != nil && s.cache.Enabled()

	var key string
	if useCache {
		key = cache.Key(content, s.analyzer.Dialect())
		if prog, ok := s.cache.GetProgram(key, path); ok {
			return prog, nil
		}
	}

	prog, err := s.analyzer.AnalyzeSource(path, content)
	if err != nil {
		return nil, err
	}

	if useCache {
		// A failed write only costs a later re-analysis.
		_ = s.cache.SetProgram(key, prog)
	}
	return prog, nil
}

// GraphOptions overrides the configured call graph settings. Zero values
// fall back to the configuration.
type GraphOptions struct {
	MaxDepth       int
	UniqueCalls    bool
	HideUnresolved bool
}

func (s *Service) graphAnalyzer(opts GraphOptions) *graph.Analyzer {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.config.Graph.MaxDepth
	}
	gopts := []graph.Option{graph.WithMaxDepth(maxDepth)}
	if opts.UniqueCalls || s.config.Graph.UniqueCalls {
		gopts = append(gopts, graph.WithUniqueCalls())
	}
	if opts.HideUnresolved || s.config.Graph.HideUnresolved {
		gopts = append(gopts, graph.WithHideUnresolved())
	}
	return graph.New(gopts...)
}

// CallTree walks prog's call graph from Main.
func (s *Service) CallTree(prog *fixedform.Program, opts GraphOptions) *graph.CallTree {
	return s.graphAnalyzer(opts).Tree(prog)
}

// CallGraph builds prog's dependency graph and, when withMetrics is set,
// its metrics.
func (s *Service) CallGraph(prog *fixedform.Program, opts GraphOptions, withMetrics bool) (*graph.DependencyGraph, *graph.Metrics) {
	ga := s.graphAnalyzer(opts)
	g := ga.Build(prog)
	if !withMetrics {
		return g, nil
	}
	return g, ga.CalculateMetrics(g)
}
