package main

import (
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/urfave/cli/v2"
)

func signaturesCmd() *cli.Command {
	return &cli.Command{
		Name:      "signatures",
		Aliases:   []string{"sig"},
		Usage:     "List subroutine and function signatures and the parameters they reassign",
		ArgsUsage: "[path...]",
		Description: `A parameter is reported as altered when the subroutine body assigns to
it. Function parameters are never reported.

Examples:
  fortmap signatures solver.f
  fortmap signatures --altered-only src/`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "altered-only",
				Usage: "Only list subroutines that reassign a parameter",
			},
		},
		Action: runSignaturesCmd,
	}
}

func runSignaturesCmd(c *cli.Context) error {
	alteredOnly := c.Bool("altered-only")
	return runAnalysis(c, func(_ *analysis.Service, prog *fixedform.Program) output.Renderable {
		return report.NewSignatures(prog, alteredOnly)
	})
}
