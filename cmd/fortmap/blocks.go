package main

import (
	"github.com/panbanda/fortmap/internal/output"
	"github.com/panbanda/fortmap/internal/report"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/panbanda/fortmap/pkg/analyzer/fixedform"
	"github.com/urfave/cli/v2"
)

func blocksCmd() *cli.Command {
	return &cli.Command{
		Name:      "blocks",
		Usage:     "List the program units of each file with their line spans",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "variables",
				Aliases: []string{"vars"},
				Usage:   "List the variables of each block",
			},
		},
		Action: runBlocksCmd,
	}
}

func runBlocksCmd(c *cli.Context) error {
	withVariables := c.Bool("variables")
	return runAnalysis(c, func(_ *analysis.Service, prog *fixedform.Program) output.Renderable {
		return report.NewBlocks(prog, withVariables)
	})
}
