package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// pingTimeout bounds a reachability check of the LLM server.
const pingTimeout = 5 * time.Second

var (
	translateForm   formFlags
	translateServer string
	translateModel  string
	translateJSON   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <request>",
	Short: "Translate a natural-language request with a local LLM",
	Long: `Translate a natural-language search request into a query using a local
LLM (via Ollama). The model answer is reduced to the query it contains and
validated; filters given as flags are appended. When the model is
unreachable or answers with something that is not a query, the rule-based
composer is used instead.

Requires [llm] enabled = true in config.toml.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.LLM.Enabled {
			return errors.New("AI search is disabled; set [llm] enabled = true in config.toml")
		}
		v, err := translateForm.values(strings.Join(args, " "))
		if err != nil {
			return err
		}

		assembler := newAssembler(nil)
		tr, err := newTranslator(assembler, translateServer, translateModel)
		if err != nil {
			return err
		}

		pingCtx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()
		if err := tr.LLM.Ping(pingCtx); err != nil {
			logger.Warn("LLM unavailable, using rule-based query", "error", err)
		}

		q := tr.Translate(cmd.Context(), v)

		p := newPrinter(cmd.OutOrStdout())
		if translateJSON {
			return p.json(q)
		}
		p.query(q)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateForm.register(translateCmd)
	translateCmd.Flags().StringVar(&translateServer, "server", "", "Ollama server URL (default from config)")
	translateCmd.Flags().StringVar(&translateModel, "model", "", "model name (default from config)")
	translateCmd.Flags().BoolVar(&translateJSON, "json", false, "output the search record as JSON")
}
