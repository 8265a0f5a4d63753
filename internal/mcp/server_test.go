package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/dateparse"
	"github.com/wesm/mailquery/internal/nlsearch"
	"github.com/wesm/mailquery/internal/searchstate"
	"github.com/wesm/mailquery/internal/testutil"
	"github.com/wesm/mailquery/internal/testutil/ptr"
)

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callToolDirect invokes a handler directly with the given arguments and returns the raw result.
func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts no error, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

// runToolExpectError invokes a handler and asserts it returns an error result.
func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if !r.IsError {
		t.Fatal("expected error result")
	}
	return r
}

type mockTranslator struct {
	got []compose.FormValues
}

func (m *mockTranslator) Translate(_ context.Context, v compose.FormValues) compose.SearchQuery {
	m.got = append(m.got, v)
	q := compose.Record(v, "from:alice is:unread")
	q.IsAISearching = true
	return q
}

func newTestHandlers(t *testing.T) (*handlers, *searchstate.Store) {
	t.Helper()
	state := searchstate.New()
	dates := &dateparse.Parser{
		Now:       func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) },
		WeekStart: time.Monday,
	}
	h := newHandlers(Deps{
		Assembler:     compose.New(dates, nlsearch.Parser{}, state, nil),
		MaxInputRunes: 100,
	})
	return h, state
}

func TestComposeQuery(t *testing.T) {
	h, state := newTestHandlers(t)

	q := runTool[compose.SearchQuery](t, ToolComposeQuery, h.composeQuery, map[string]any{
		"free_text": "bob@example.com",
		"folder":    "Inbox",
	})
	want := compose.SearchQuery{
		Value:     "from:bob@example.com in:inbox",
		Highlight: "bob@example.com",
		Folder:    "INBOX",
		IsLoading: true,
	}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if got, version := state.Current(); got != want || version != 1 {
		t.Errorf("state = %+v (v%d), want %+v (v1)", got, version, want)
	}
}

func TestComposeQueryPreview(t *testing.T) {
	h, state := newTestHandlers(t)

	q := runTool[compose.SearchQuery](t, ToolComposeQuery, h.composeQuery, map[string]any{
		"free_text": "invoices from january 2024",
		"has":       "PDF",
		"preview":   true,
	})
	if q.Value != "after:2024/01/01 before:2024/01/31 invoices has:pdf" {
		t.Errorf("Value = %q", q.Value)
	}
	if _, version := state.Current(); version != 0 {
		t.Errorf("preview updated state (v%d)", version)
	}
}

func TestFormArgs(t *testing.T) {
	h, _ := newTestHandlers(t)

	got, err := h.formArgs(map[string]any{
		"free_text":    "  budget ",
		"folder":       "Inbox",
		"has":          "pdf",
		"filename":     "Q1.pdf",
		"delivered_to": "me@example.com",
		"boost":        "urgent",
		"after":        "2024-03-01",
		"before":       "2024-03-31",
	})
	if err != nil {
		t.Fatalf("formArgs: %v", err)
	}
	want := testutil.NewForm("budget").
		InFolder("Inbox").
		WithAttachment("pdf").
		WithFileName("Q1.pdf").
		DeliveredTo("me@example.com").
		Boost("urgent").
		Between(ptr.Date(2024, time.March, 1), ptr.Date(2024, time.March, 31)).
		Build()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeQueryErrors(t *testing.T) {
	h, state := newTestHandlers(t)

	errorCases := []struct {
		name string
		args map[string]any
		want string
	}{
		{"bad after date", map[string]any{"after": "03/01/2024"}, "invalid after date"},
		{"bad before date", map[string]any{"before": "2024-02-30"}, "invalid before date"},
		{"inverted range", map[string]any{"after": "2024-03-31", "before": "2024-03-01"}, "earlier than"},
		{"free text too long", map[string]any{"free_text": strings.Repeat("x", 101)}, "exceeds 100"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			r := runToolExpectError(t, ToolComposeQuery, h.composeQuery, tt.args)
			if text := resultText(t, r); !strings.Contains(text, tt.want) {
				t.Errorf("error = %q, want it to contain %q", text, tt.want)
			}
		})
	}
	if _, version := state.Current(); version != 0 {
		t.Errorf("failed calls updated state (v%d)", version)
	}
}

func TestTranslateQuery(t *testing.T) {
	h, _ := newTestHandlers(t)

	t.Run("disabled", func(t *testing.T) {
		runToolExpectError(t, ToolTranslateQuery, h.translateQuery, map[string]any{"free_text": "unread"})
	})

	tr := &mockTranslator{}
	h.translator = tr

	t.Run("translated", func(t *testing.T) {
		q := runTool[compose.SearchQuery](t, ToolTranslateQuery, h.translateQuery, map[string]any{
			"free_text": "unread mail from alice",
			"folder":    "Inbox",
		})
		if q.Value != "from:alice is:unread" || !q.IsAISearching || q.Folder != "INBOX" {
			t.Errorf("query = %+v", q)
		}
		if len(tr.got) != 1 || tr.got[0].Folder != "Inbox" {
			t.Errorf("translator got %+v", tr.got)
		}
	})

	t.Run("missing free text", func(t *testing.T) {
		runToolExpectError(t, ToolTranslateQuery, h.translateQuery, map[string]any{"folder": "Inbox"})
	})
}

func TestExtractQuery(t *testing.T) {
	h, _ := newTestHandlers(t)

	tests := []struct {
		name string
		text string
		want extractResult
	}{
		{"quoted in prose", `Sure! Try "from:alice has:attachment" to find it.`, extractResult{Query: "from:alice has:attachment", Found: true}},
		{"prose lead-in", "You could search for from:bob is:unread", extractResult{Query: "from:bob is:unread", Found: true}},
		{"labeled without payload", "Here is the converted query:   ", extractResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runTool[extractResult](t, ToolExtractQuery, h.extractQuery, map[string]any{"text": tt.text})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("extract mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("missing text", func(t *testing.T) {
		runToolExpectError(t, ToolExtractQuery, h.extractQuery, map[string]any{})
	})
}

func TestParseQuery(t *testing.T) {
	h, _ := newTestHandlers(t)

	t.Run("valid", func(t *testing.T) {
		res := runTool[parseResult](t, ToolParseQuery, h.parseQuery, map[string]any{
			"query": "(from:Caroline OR from:Josh) in:inbox +urgent",
		})
		if !res.Valid || res.Error != "" {
			t.Fatalf("valid = %v, error = %q", res.Valid, res.Error)
		}
		testutil.AssertStrings(t, res.Query.Folders, "inbox")
		testutil.AssertStrings(t, res.Query.Boosts, "urgent")
		if len(res.Query.Groups) != 1 {
			t.Errorf("groups = %+v, want 1", res.Query.Groups)
		}
	})

	t.Run("unbalanced", func(t *testing.T) {
		res := runTool[parseResult](t, ToolParseQuery, h.parseQuery, map[string]any{"query": `subject:"budget`})
		if res.Valid || res.Error == "" {
			t.Errorf("valid = %v, error = %q", res.Valid, res.Error)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		runToolExpectError(t, ToolParseQuery, h.parseQuery, map[string]any{})
	})
}

func TestSuggestSearches(t *testing.T) {
	h, _ := newTestHandlers(t)

	got := runTool[[]string](t, ToolSuggestSearches, h.suggestSearches, nil)
	if diff := cmp.Diff(nlsearch.Suggestions(), got); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}
