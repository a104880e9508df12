package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/fortmap/internal/cache"
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/progress"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/scanner"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/panbanda/fortmap/pkg/config"
	"github.com/panbanda/fortmap/pkg/source"
	"github.com/urfave/cli/v2"
)

// loadConfig resolves the config file and applies the global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}

	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	cfg := result.Config

	if c.IsSet("format") {
		format := strings.ToLower(c.String("format"))
		if format == "md" {
			format = "markdown"
		}
		cfg.Output.Format = format
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled, cache.WithMemory(cfg.Cache.MemoryEntries))
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", cfg.Cache.Dir, err)
	}
	return c, nil
}

// newService builds the analysis service, reading from the git revision
// named by --ref when it is set.
func newService(c *cli.Context, cfg *config.Config, files []string) (*analysis.Service, error) {
	ch, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	opts := []analysis.Option{analysis.WithConfig(cfg), analysis.WithCache(ch)}

	if ref := c.String("ref"); ref != "" {
		spinner := progress.NewSpinner("Resolving " + ref + "...")
		git, err := source.NewGit(filepath.Dir(files[0]), ref)
		if err != nil {
			spinner.FinishError(err)
			return nil, err
		}
		spinner.FinishSuccess()
		if cfg.Output.Verbose {
			fmt.Fprintf(c.App.ErrWriter, "Reading %s at %s\n", ref, git.Commit())
		}
		opts = append(opts, analysis.WithSource(git))
	}
	return analysis.New(opts...), nil
}

// newFormatter writes to --output when given and to the app writer otherwise.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, cfg.Output.Color && !color.NoColor), nil
}

// analyzePaths expands the positional arguments and analyzes every file.
// It returns no programs, and no error, when the arguments hold no sources.
func analyzePaths(c *cli.Context, cfg *config.Config) (*analysis.Service, []string, []*fixedform.Program, error) {
	files, err := scanner.NewScanner(cfg).ScanPaths(getPaths(c))
	if err != nil {
		return nil, nil, nil, err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil, nil, nil, nil
	}

	svc, err := newService(c, cfg, files)
	if err != nil {
		return nil, nil, nil, err
	}

	var opts analysis.FilesOptions
	var tracker *progress.Tracker
	if len(files) > 1 {
		tracker = progress.NewTracker("Analyzing...", len(files))
		opts.OnProgress = tracker.Tick
	}

	programs, err := svc.AnalyzeFiles(c.Context, files, opts)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Output.Verbose {
		for _, prog := range programs {
			s := prog.Summary()
			fmt.Fprintf(c.App.ErrWriter, "%s: %d lines, %d blocks, %d calls, %d unresolved\n",
				prog.Path, s.Lines, len(prog.Blocks), s.Calls, s.Unresolved)
		}
	}
	return svc, files, programs, nil
}

// runAnalysis analyzes the positional arguments and writes one renderable
// per file, built by render, in argument order.
func runAnalysis(c *cli.Context, render func(svc *analysis.Service, prog *fixedform.Program) output.Renderable) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, files, programs, err := analyzePaths(c, cfg)
	if err != nil || len(programs) == 0 {
		return err
	}

	parts := make([]output.Renderable, len(programs))
	for i, prog := range programs {
		parts[i] = render(svc, prog)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Multi(files, parts))
}
