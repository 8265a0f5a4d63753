// Package translate turns free-text search requests into queries with an
// LLM, falling back to the rule-based assembler when the model is
// unavailable or answers with something that is not a query.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/metatext"
	"github.com/wesm/mailquery/internal/search"
)

// ErrNoQuery means the model answer held no usable query.
var ErrNoQuery = errors.New("no query in model answer")

// Translator runs the AI search path.
type Translator struct {
	LLM       LLMClient
	Assembler *compose.Assembler
	Now       func() time.Time
	Logger    *slog.Logger

	// Available, when set, reports whether the model is worth asking.
	// While it reports false the rule-based record is used directly.
	Available func() bool
}

// New creates a Translator.
func New(llm LLMClient, assembler *compose.Assembler, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{LLM: llm, Assembler: assembler, Now: time.Now, Logger: logger}
}

// Translate composes and publishes the search record for v. The free text
// is sent to the model and its answer takes the place of the rule-based
// free-text terms, ahead of the structural filters of v. Any model
// failure publishes the rule-based record instead.
func (t *Translator) Translate(ctx context.Context, v compose.FormValues) compose.SearchQuery {
	if strings.TrimSpace(v.FreeText) == "" || t.LLM == nil {
		return t.Assembler.Submit(v)
	}
	if t.Available != nil && !t.Available() {
		t.logger().Debug("AI search unavailable, using rule-based query")
		return t.Assembler.Submit(v)
	}

	value, err := t.translate(ctx, v)
	if err != nil {
		t.logger().Warn("AI search failed, using rule-based query", "error", err)
		return t.Assembler.Submit(v)
	}

	q := compose.Record(v, value)
	q.IsAISearching = true
	t.Assembler.Publish(q)
	return q
}

func (t *Translator) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *Translator) translate(ctx context.Context, v compose.FormValues) (string, error) {
	aiQuery, err := t.Query(ctx, v.FreeText)
	if err != nil {
		return "", err
	}

	structural := v
	structural.FreeText = ""
	terms, err := t.Assembler.Terms(structural)
	if err != nil {
		return "", err
	}
	return strings.Join(append([]string{aiQuery}, terms...), " "), nil
}

// Query asks the model for the query matching text and returns the
// extracted, validated answer.
func (t *Translator) Query(ctx context.Context, text string) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	msgs := []Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, now().Format("2006/01/02"))},
		{Role: "user", Content: fmt.Sprintf(userPrompt, strings.TrimSpace(text))},
	}

	answer, err := t.LLM.Chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("llm chat: %w", err)
	}
	t.logger().Debug("model answer", "answer", answer)

	q, ok := metatext.Extract(answer)
	if !ok || strings.TrimSpace(q) == "" {
		return "", ErrNoQuery
	}
	if err := search.Validate(q); err != nil {
		return "", fmt.Errorf("model answer %q: %w", q, err)
	}
	if search.Parse(q).IsEmpty() {
		return "", ErrNoQuery
	}
	return q, nil
}
