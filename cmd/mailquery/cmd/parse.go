package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/mailquery/internal/nlsearch"
	"github.com/wesm/mailquery/internal/search"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse <query>",
	Short: "Validate a query and show its structure",
	Long: `Validate a Gmail-style query and show how it is understood.

Supported operators:
  from:, to:, subject:, in:, is:, has:, filename:, deliveredto:,
  label: (or l:), after:, before:, older_than:, newer_than:

Bare words and "quoted phrases" are free text, +term boosts a term, and
(a OR b) groups alternatives.

Examples:
  mailquery parse from:alice in:inbox after:2024/01/01
  mailquery parse '(from:Caroline OR from:Josh) +urgent'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queryStr := strings.Join(args, " ")
		q := search.Parse(queryStr)
		verr := search.Validate(queryStr)

		p := newPrinter(cmd.OutOrStdout())
		if parseJSON {
			out := struct {
				Query *search.Query `json:"query"`
				Valid bool          `json:"valid"`
				Error string        `json:"error,omitempty"`
			}{Query: q, Valid: verr == nil}
			if verr != nil {
				out.Error = verr.Error()
			}
			if err := p.json(out); err != nil {
				return err
			}
		} else {
			p.parsed(q, verr)
		}
		if verr != nil {
			return fmt.Errorf("invalid query: %w", verr)
		}
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "List example natural-language searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, s := range nlsearch.Suggestions() {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(suggestCmd)
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "output as JSON")
}
