package main

import (
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"all"},
		Usage:     "Report blocks, signatures and the call tree together",
		ArgsUsage: "[path...]",
		Description: `With --format json or toon the full program model is written, including
every block's variables and resolved call sites.`,
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	return runAnalysis(c, func(svc *analysis.Service, prog *fixedform.Program) output.Renderable {
		return report.NewAnalysis(prog, svc.CallTree(prog, analysis.GraphOptions{}))
	})
}
