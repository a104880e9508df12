package main

import (
	"github.com/panbanda/fortmap/internal/mcpserver"
	"github.com/panbanda/fortmap/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes fortmap's analyses
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "fortmap": {
        "command": "fortmap",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_call_graph   Call tree from the main program, Mermaid chart, graph metrics
  - analyze_signatures   Routine parameters and the ones each subroutine reassigns
  - analyze_blocks       Program units, line spans and variables`,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest",
				Action: runMCPManifest,
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ch, err := openCache(cfg)
	if err != nil {
		return err
	}
	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithCache(ch))
	return mcpserver.NewServer(version, svc).Run(c.Context)
}

func runMCPManifest(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(append(data, '\n'))
	return err
}
