package main

import (
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/urfave/cli/v2"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"calls"},
		Usage:     "Print the call tree from the main program",
		ArgsUsage: "[path...]",
		Description: `Walks the call graph depth-first from the main program and prints one
routine per line, indented by call depth. Calls to routines that are not
defined in the file are listed as external leaves; a routine already on
the current path is marked recursive and not expanded again.

Examples:
  fortmap graph solver.f
  fortmap graph --unique --max-depth 3 src/
  fortmap graph --mermaid solver.f > calls.mmd
  fortmap -f json graph --metrics solver.f`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Stop expanding below this depth (0 = from config, unlimited by default)",
			},
			&cli.BoolFlag{
				Name:  "unique",
				Usage: "List each callee once per calling routine",
			},
			&cli.BoolFlag{
				Name:  "hide-unresolved",
				Usage: "Omit calls to routines not defined in the file",
			},
			&cli.BoolFlag{
				Name:  "mermaid",
				Usage: "Print a Mermaid flowchart instead of the indented tree",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Add degree, PageRank and reachability per routine",
			},
		},
		Action: runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	opts := analysis.GraphOptions{
		MaxDepth:       c.Int("max-depth"),
		UniqueCalls:    c.Bool("unique"),
		HideUnresolved: c.Bool("hide-unresolved"),
	}
	mermaid := c.Bool("mermaid")
	withMetrics := c.Bool("metrics")

	return runAnalysis(c, func(svc *analysis.Service, prog *fixedform.Program) output.Renderable {
		if !mermaid && !withMetrics {
			return report.NewCallTree(svc.CallTree(prog, opts))
		}

		var parts []output.Renderable
		g, metrics := svc.CallGraph(prog, opts, withMetrics)
		if mermaid {
			parts = append(parts, report.NewMermaid(g))
		} else {
			parts = append(parts, report.NewCallTree(svc.CallTree(prog, opts)))
		}
		if metrics != nil {
			parts = append(parts, report.NewMetrics(metrics))
		}
		return report.NewGraphView(parts...)
	})
}
