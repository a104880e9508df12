package main

import (
	"fmt"
	"time"

	"github.com/panbanda/fortmap/internal/output"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the analysis cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show the number, size and age of cached results",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached results",
				Action: runCacheClear,
			},
		},
	}
}

func runCacheStats(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if !cfg.Cache.Enabled {
		formatter.Warning("Cache is disabled")
		return nil
	}
	ch, err := openCache(cfg)
	if err != nil {
		return err
	}
	stats, err := ch.GetStats()
	if err != nil {
		return fmt.Errorf("read cache %s: %w", cfg.Cache.Dir, err)
	}

	table := output.NewTable(
		"Cache: "+cfg.Cache.Dir,
		[]string{"Entries", "Size", "Oldest", "Newest"},
		[][]string{{
			fmt.Sprintf("%d", stats.Entries),
			fmt.Sprintf("%d bytes", stats.TotalSize),
			stats.OldestAge.Round(time.Second).String(),
			stats.NewestAge.Round(time.Second).String(),
		}},
		nil,
		stats,
	)
	return formatter.Output(table)
}

func runCacheClear(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if !cfg.Cache.Enabled {
		formatter.Warning("Cache is disabled")
		return nil
	}
	ch, err := openCache(cfg)
	if err != nil {
		return err
	}
	if err := ch.Clear(); err != nil {
		return fmt.Errorf("clear cache %s: %w", cfg.Cache.Dir, err)
	}
	formatter.Success("Cleared %s", cfg.Cache.Dir)
	return nil
}
