package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	composeForm        formFlags
	composeJSON        bool
	composeInteractive bool
)

var composeCmd = &cobra.Command{
	Use:   "compose [free text]",
	Short: "Compose a search query from form fields",
	Long: `Compose a Gmail-style search query from free text and filters.

Free text is read for dates ("invoices from january 2024", "last week")
and common phrasings ("unread emails", "emails from Caroline and Josh").
Anything else becomes a sender/subject/phrase group, or a from: filter
when it looks like an address. Filters are appended in a fixed order.

Examples:
  mailquery compose invoices from january 2024
  mailquery compose bob@example.com --folder Inbox --has pdf
  mailquery compose budget --after 2024-03-01 --before 2024-03-31
  mailquery compose -i`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := composeForm.values(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if composeInteractive {
			if !isTerminal(os.Stdin) {
				return errors.New("interactive mode needs a terminal")
			}
			if err := runSearchForm(cmd.Context(), &v); err != nil {
				return err
			}
		}
		if isBlank(v) {
			return errors.New("nothing to compose: give free text or a filter flag")
		}

		q := newAssembler(nil).Submit(v)

		p := newPrinter(cmd.OutOrStdout())
		if composeJSON {
			return p.json(q)
		}
		p.query(q)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(composeCmd)
	composeForm.register(composeCmd)
	composeCmd.Flags().BoolVar(&composeJSON, "json", false, "output the search record as JSON")
	composeCmd.Flags().BoolVarP(&composeInteractive, "interactive", "i", false, "fill in the search form interactively")
}
