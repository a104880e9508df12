package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "fortmap",
		Usage:   "Call graph and side-effect analysis for fixed-form legacy sources",
		Version: versionString(),
		Description: `fortmap reconstructs the structure of fixed-form programs: the main
program, its subroutines and functions, their variables, the calls between
them and the parameters each subroutine reassigns.

Directory arguments are scanned for .f, .for, .f77 and .ftn files.
Each file is analyzed on its own.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"FORTMAP_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Read files at a git revision (branch, tag, SHA or HEAD~n) instead of the working tree",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print per-file statistics to stderr",
			},
		},
		Commands: []*cli.Command{
			graphCmd(),
			signaturesCmd(),
			blocksCmd(),
			analyzeCmd(),
			watchCmd(),
			configCmd(),
			initCmd(),
			cacheCmd(),
			mcpCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
