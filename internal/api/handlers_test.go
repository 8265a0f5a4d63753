package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailquery/internal/compose"
)

func TestHandleCompose(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, "POST", "/api/v1/compose", map[string]interface{}{
		"freeText": "bob@example.com",
		"folder":   "Inbox",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	want := compose.SearchQuery{
		Value:     "from:bob@example.com in:inbox",
		Highlight: "bob@example.com",
		Folder:    "INBOX",
		IsLoading: true,
	}
	resp := decodeBody[QueryResponse](t, w)
	if diff := cmp.Diff(want, resp.Query); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	if got, version := env.state.Current(); got != want || version != 1 {
		t.Errorf("state = %+v (v%d), want %+v (v1)", got, version, want)
	}
}

func TestHandleComposeDateRange(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, "POST", "/api/v1/compose", `{"freeText":"bob@example.com","dateRange":{"from":"2024-03-01T00:00:00Z","to":"2024-03-31T00:00:00Z"},"preview":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody[QueryResponse](t, w)
	if resp.Query.Value != "from:bob@example.com after:2024/03/01 before:2024/03/31" {
		t.Errorf("Value = %q", resp.Query.Value)
	}
	if _, version := env.state.Current(); version != 0 {
		t.Errorf("preview updated state (v%d)", version)
	}
}

func TestHandleComposeErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantError string
	}{
		{"empty body", "", http.StatusBadRequest, "invalid_request"},
		{"malformed json", "{", http.StatusBadRequest, "invalid_request"},
		{"too long", `{"freeText":"` + strings.Repeat("x", 101) + `"}`, http.StatusBadRequest, "input_too_long"},
		{"too large", `{"freeText":"` + strings.Repeat("x", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, "body_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/v1/compose", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			resp := decodeBody[ErrorResponse](t, w)
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if resp.Message == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestHandleTranslate(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, "POST", "/api/v1/translate", compose.FormValues{FreeText: "unread from alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody[QueryResponse](t, w)
	if resp.Query.Value != "from:alice is:unread" || !resp.Query.IsAISearching {
		t.Errorf("query = %+v", resp.Query)
	}
	if len(env.translator.got) != 1 || env.translator.got[0].FreeText != "unread from alice" {
		t.Errorf("translator got %+v", env.translator.got)
	}
}

func TestHandleTranslateDisabled(t *testing.T) {
	srv := NewServer(testConfig(), Deps{}, testLogger())
	env := &testEnv{srv: srv}

	w := env.do(t, "POST", "/api/v1/translate", compose.FormValues{FreeText: "x"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.Error != "ai_disabled" {
		t.Errorf("error = %q", resp.Error)
	}

	health := decodeBody[HealthResponse](t, env.do(t, "GET", "/health", nil))
	if !health.AIDisabled {
		t.Error("health does not report AI disabled")
	}
}

func TestHandleExtract(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		text      string
		wantQuery string
		wantFound bool
	}{
		{`Sure! Try "from:alice has:attachment" to find it.`, "from:alice has:attachment", true},
		{"Converting to: is:unread", "is:unread", true},
		{"Here is the converted query:   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			w := env.do(t, "POST", "/api/v1/extract", ExtractRequest{Text: tt.text})
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			resp := decodeBody[ExtractResponse](t, w)
			if resp.Query != tt.wantQuery || resp.Found != tt.wantFound {
				t.Errorf("got %+v, want {%q %v}", resp, tt.wantQuery, tt.wantFound)
			}
		})
	}
}

func TestHandleParse(t *testing.T) {
	env := newTestEnv(t, testConfig())

	w := env.do(t, "GET", "/api/v1/parse?q=from%3Abob+in%3Ainbox", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody[ParseResponse](t, w)
	if !resp.Valid || resp.Error != "" {
		t.Errorf("valid = %v, error = %q", resp.Valid, resp.Error)
	}
	if diff := cmp.Diff([]string{"bob"}, resp.Query.FromAddrs); diff != "" {
		t.Errorf("FromAddrs mismatch (-want +got):\n%s", diff)
	}

	w = env.do(t, "GET", "/api/v1/parse?q=%28from%3Aa", nil)
	resp = decodeBody[ParseResponse](t, w)
	if resp.Valid || !strings.Contains(resp.Error, "parenthes") {
		t.Errorf("unbalanced query: valid = %v, error = %q", resp.Valid, resp.Error)
	}

	if w := env.do(t, "GET", "/api/v1/parse", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	env := newTestEnv(t, testConfig())

	resp := decodeBody[SuggestionsResponse](t, env.do(t, "GET", "/api/v1/suggestions", nil))
	if len(resp.Suggestions) != 10 {
		t.Errorf("got %d suggestions, want 10", len(resp.Suggestions))
	}
}

func TestHandleState(t *testing.T) {
	env := newTestEnv(t, testConfig())

	env.do(t, "POST", "/api/v1/compose", compose.FormValues{Folder: "Sent"})
	resp := decodeBody[StateResponse](t, env.do(t, "GET", "/api/v1/state", nil))
	if resp.Search.Value != "in:sent" || resp.Search.Folder != "SENT" || resp.Version != 1 {
		t.Errorf("state = %+v", resp)
	}

	if w := env.do(t, "DELETE", "/api/v1/state", nil); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	resp = decodeBody[StateResponse](t, env.do(t, "GET", "/api/v1/state", nil))
	if !resp.Search.IsZero() || resp.Version != 2 {
		t.Errorf("state after reset = %+v", resp)
	}
}
