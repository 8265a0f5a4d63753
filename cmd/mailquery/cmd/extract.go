package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/mailquery/internal/metatext"
	"github.com/wesm/mailquery/internal/textutil"
)

// maxStdinBytes bounds text read from stdin.
const maxStdinBytes = 1 << 20

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract the search query from conversational text",
	Long: `Extract the search query from text that wraps it in prose, such as
a language model answer. Reads stdin when no text is given.

Examples:
  mailquery extract 'Sure! Try "from:alice has:attachment" to find it.'
  ollama run llama3.2 "..." | mailquery extract`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinBytes))
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("no text to extract from")
		}

		q, found := metatext.Extract(textutil.CleanInput(text))
		if !found {
			return errors.New("no query found: the answer names a query but carries none")
		}
		fmt.Fprintln(cmd.OutOrStdout(), q)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
