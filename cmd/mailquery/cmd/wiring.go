package cmd

import (
	"fmt"
	"time"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/dateparse"
	"github.com/wesm/mailquery/internal/nlsearch"
	"github.com/wesm/mailquery/internal/translate"
)

// newAssembler wires the rule-based composer from the loaded config.
// sink may be nil when nothing tracks the search state.
func newAssembler(sink compose.Sink) *compose.Assembler {
	dates := &dateparse.Parser{Now: time.Now, WeekStart: cfg.WeekStart()}
	return compose.New(dates, nlsearch.Parser{}, sink, logger)
}

// newTranslator wires the AI search path. It returns nil when [llm] is
// disabled.
func newTranslator(a *compose.Assembler, server, model string) (*translate.Translator, error) {
	if !cfg.LLM.Enabled {
		return nil, nil
	}
	if server == "" {
		server = cfg.LLM.Server
	}
	if model == "" {
		model = cfg.LLM.Model
	}
	client, err := translate.NewOllamaClient(server, model, cfg.LLMTimeout())
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return translate.New(client, a, logger), nil
}
