package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/wesm/mailquery/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This lets Claude Desktop (or any MCP client) compose and check search
queries using the compose_query, extract_query, parse_query and
suggest_searches tools, plus translate_query when [llm] is enabled.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "mailquery": {
        "command": "mailquery",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		assembler := newAssembler(nil)
		deps := mcpserver.Deps{
			Assembler:     assembler,
			MaxInputRunes: cfg.Search.MaxInputRunes,
		}
		tr, err := newTranslator(assembler, "", "")
		if err != nil {
			return err
		}
		if tr != nil {
			deps.Translator = tr
		}
		return mcpserver.Serve(cmd.Context(), deps)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
