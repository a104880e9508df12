package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/scanner"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch files and re-print the call tree when they change",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: 500 * time.Millisecond,
				Usage: "Wait this long after the last write before re-analyzing",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	if c.String("ref") != "" {
		return errors.New("--ref cannot be combined with watch")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, err := scanner.NewScanner(cfg).ScanPaths(getPaths(c))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	svc, err := newService(c, cfg, files)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	printTree := func(path string) {
		prog, err := svc.AnalyzeFile(ctx, path)
		if err != nil {
			formatter.Error("%s: %v", path, err)
			return
		}
		var r output.Renderable = report.NewCallTree(svc.CallTree(prog, analysis.GraphOptions{}))
		if len(files) > 1 {
			r = &output.Report{Title: path, Sections: []output.Renderable{r}}
		}
		if err := formatter.Output(r); err != nil {
			formatter.Error("%s: %v", path, err)
		}
	}

	for _, f := range files {
		printTree(f)
	}

	watcher, err := watch.NewWatcher(files, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetCallback(printTree)

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(c.App.ErrWriter, "\nStopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
