package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/metatext"
	"github.com/wesm/mailquery/internal/nlsearch"
	"github.com/wesm/mailquery/internal/search"
	"github.com/wesm/mailquery/internal/textutil"
)

type handlers struct {
	assembler     *compose.Assembler
	translator    Translator
	maxInputRunes int
}

func newHandlers(deps Deps) *handlers {
	a := deps.Assembler
	if a == nil {
		a = compose.New(nil, nil, nil, nil)
	}
	return &handlers{assembler: a, translator: deps.Translator, maxInputRunes: deps.MaxInputRunes}
}

// extractResult is the extract_query payload.
type extractResult struct {
	Query string `json:"query"`
	Found bool   `json:"found"`
}

// parseResult is the parse_query payload.
type parseResult struct {
	Query *search.Query `json:"query"`
	Valid bool          `json:"valid"`
	Error string        `json:"error,omitempty"`
}

// getStringArg returns a trimmed optional string argument.
func getStringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// getDateArg extracts an optional date (YYYY-MM-DD) from the arguments map.
func getDateArg(args map[string]any, key string) (*time.Time, error) {
	v := getStringArg(args, key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", key, v)
	}
	return &t, nil
}

func (h *handlers) checkLen(key, v string) error {
	if h.maxInputRunes > 0 && utf8.RuneCountInString(v) > h.maxInputRunes {
		return fmt.Errorf("%s exceeds %d characters", key, h.maxInputRunes)
	}
	return nil
}

// formArgs maps tool arguments onto a form submission.
func (h *handlers) formArgs(args map[string]any) (compose.FormValues, error) {
	v := compose.FormValues{
		FreeText:    getStringArg(args, "free_text"),
		Folder:      getStringArg(args, "folder"),
		HasKind:     getStringArg(args, "has"),
		FileName:    getStringArg(args, "filename"),
		DeliveredTo: getStringArg(args, "delivered_to"),
		BoostTerm:   getStringArg(args, "boost"),
	}
	if err := h.checkLen("free_text", v.FreeText); err != nil {
		return v, err
	}

	var err error
	if v.DateRange.From, err = getDateArg(args, "after"); err != nil {
		return v, err
	}
	if v.DateRange.To, err = getDateArg(args, "before"); err != nil {
		return v, err
	}
	if v.DateRange.From != nil && v.DateRange.To != nil && v.DateRange.To.Before(*v.DateRange.From) {
		return v, fmt.Errorf("before date %s is earlier than after date %s",
			v.DateRange.To.Format("2006-01-02"), v.DateRange.From.Format("2006-01-02"))
	}
	return v, nil
}

func (h *handlers) composeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	v, err := h.formArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if preview, _ := args["preview"].(bool); preview {
		return jsonResult(h.assembler.Build(v))
	}
	return jsonResult(h.assembler.Submit(v))
}

func (h *handlers) translateQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.translator == nil {
		return mcp.NewToolResultError("AI search is not enabled"), nil
	}
	args := req.GetArguments()

	v, err := h.formArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v.FreeText == "" {
		return mcp.NewToolResultError("free_text parameter is required"), nil
	}

	return jsonResult(h.translator.Translate(ctx, v))
}

func (h *handlers) extractQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	q, found := metatext.Extract(textutil.CleanInput(text))
	return jsonResult(extractResult{Query: q, Found: found})
}

func (h *handlers) parseQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	queryStr := getStringArg(args, "query")
	if queryStr == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	if err := h.checkLen("query", queryStr); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res := parseResult{Query: search.Parse(queryStr), Valid: true}
	if err := search.Validate(queryStr); err != nil {
		res.Valid = false
		res.Error = err.Error()
	}
	return jsonResult(res)
}

func (h *handlers) suggestSearches(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(nlsearch.Suggestions())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
