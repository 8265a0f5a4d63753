package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/metatext"
	"github.com/wesm/mailquery/internal/nlsearch"
	"github.com/wesm/mailquery/internal/scheduler"
	"github.com/wesm/mailquery/internal/search"
	"github.com/wesm/mailquery/internal/textutil"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse reports server liveness and optional features.
type HealthResponse struct {
	Status     string                  `json:"status"` // "ok", or "degraded" when a check fails
	AIDisabled bool                    `json:"ai_disabled,omitempty"`
	Checks     []scheduler.CheckStatus `json:"checks,omitempty"`
}

// ComposeRequest is a form submission. With Preview set the record is
// returned without updating the search state.
type ComposeRequest struct {
	compose.FormValues
	Preview bool `json:"preview,omitempty"`
}

// QueryResponse wraps a composed search record.
type QueryResponse struct {
	Query compose.SearchQuery `json:"query"`
}

// ExtractRequest carries conversational text.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse is the extractor result. Found is false when a labeled
// lead-in carried no payload.
type ExtractResponse struct {
	Query string `json:"query"`
	Found bool   `json:"found"`
}

// ParseResponse is the structured form of a query string.
type ParseResponse struct {
	Query *search.Query `json:"query"`
	Valid bool          `json:"valid"`
	Error string        `json:"error,omitempty"`
}

// StateResponse is the shared search state.
type StateResponse struct {
	Search  compose.SearchQuery `json:"search"`
	Version uint64              `json:"version"`
}

// SuggestionsResponse lists example natural-language searches.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// decodeJSON reads a bounded JSON body into v, writing the error response
// itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		}
		return false
	}
	return true
}

// checkInput enforces the configured free-text limit.
func (s *Server) checkInput(w http.ResponseWriter, field, text string) bool {
	limit := s.cfg.Search.MaxInputRunes
	if limit > 0 && utf8.RuneCountInString(text) > limit {
		writeError(w, http.StatusBadRequest, "input_too_long",
			fmt.Sprintf("%s exceeds %d characters", field, limit))
		return false
	}
	return true
}

// handleHealth reports liveness plus the outcome of background checks.
// The server itself is up, so the status code stays 200 when degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", AIDisabled: s.deps.Translator == nil}
	if s.deps.Checks != nil {
		resp.Checks = s.deps.Checks.Status()
		for _, c := range resp.Checks {
			if !c.Healthy {
				resp.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCompose assembles a form submission into a query.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.checkInput(w, "freeText", req.FreeText) {
		return
	}

	var q compose.SearchQuery
	if req.Preview {
		q = s.deps.Assembler.Build(req.FormValues)
	} else {
		q = s.deps.Assembler.Submit(req.FormValues)
	}
	writeJSON(w, http.StatusOK, QueryResponse{Query: q})
}

// handleTranslate runs the AI search path.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Translator == nil {
		writeError(w, http.StatusServiceUnavailable, "ai_disabled", "AI search is not enabled; set [llm] enabled = true")
		return
	}
	var v compose.FormValues
	if !decodeJSON(w, r, &v) {
		return
	}
	if !s.checkInput(w, "freeText", v.FreeText) {
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Query: s.deps.Translator.Translate(r.Context(), v)})
}

// handleExtract pulls a query out of conversational text.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, found := metatext.Extract(textutil.CleanInput(req.Text))
	writeJSON(w, http.StatusOK, ExtractResponse{Query: q, Found: found})
}

// handleParse validates a query string and returns its structure.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}
	if !s.checkInput(w, "q", q) {
		return
	}

	resp := ParseResponse{Query: search.Parse(q), Valid: true}
	if err := search.Validate(q); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSuggestions lists example natural-language searches.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: nlsearch.Suggestions()})
}

// handleGetState returns the current search record.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.deps.State == nil {
		writeError(w, http.StatusNotFound, "no_state", "Search state is not tracked")
		return
	}
	q, version := s.deps.State.Current()
	writeJSON(w, http.StatusOK, StateResponse{Search: q, Version: version})
}

// handleResetState clears the search record.
func (s *Server) handleResetState(w http.ResponseWriter, r *http.Request) {
	s.deps.Assembler.Reset()
	w.WriteHeader(http.StatusNoContent)
}
