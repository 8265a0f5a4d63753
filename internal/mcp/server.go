package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wesm/mailquery/internal/compose"
)

// Tool name constants.
const (
	ToolComposeQuery    = "compose_query"
	ToolTranslateQuery  = "translate_query"
	ToolExtractQuery    = "extract_query"
	ToolParseQuery      = "parse_query"
	ToolSuggestSearches = "suggest_searches"
)

// Translator runs the AI search path.
type Translator interface {
	Translate(ctx context.Context, v compose.FormValues) compose.SearchQuery
}

// Deps holds what the tools operate on.
type Deps struct {
	Assembler     *compose.Assembler
	Translator    Translator // nil when AI search is disabled
	MaxInputRunes int
}

// Common argument helpers for the search form fields shared by the
// compose and translate tools.

func withFormFields() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("folder",
			mcp.Description("Restrict to a folder (e.g. Inbox, Sent)"),
		),
		mcp.WithString("has",
			mcp.Description("Attachment kind (e.g. attachment, pdf, spreadsheet)"),
		),
		mcp.WithString("filename",
			mcp.Description("Attachment file name, matched as given"),
		),
		mcp.WithString("delivered_to",
			mcp.Description("Address the message was delivered to"),
		),
		mcp.WithString("boost",
			mcp.Description("Term to rank higher"),
		),
		mcp.WithString("after",
			mcp.Description("Picked range start (YYYY-MM-DD); ignored when the free text names a date"),
		),
		mcp.WithString("before",
			mcp.Description("Picked range end (YYYY-MM-DD); ignored when the free text names a date"),
		),
	}
}

// Serve creates an MCP server with the query tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, deps Deps) error {
	s := server.NewMCPServer(
		"mailquery",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	h := newHandlers(deps)

	s.AddTool(composeQueryTool(), h.composeQuery)
	s.AddTool(extractQueryTool(), h.extractQuery)
	s.AddTool(parseQueryTool(), h.parseQuery)
	s.AddTool(suggestSearchesTool(), h.suggestSearches)
	if deps.Translator != nil {
		s.AddTool(translateQueryTool(), h.translateQuery)
	}

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func composeQueryTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Compose a Gmail-style search query from search form fields. Free text such as 'invoices from january 2024' or 'unread emails' is rewritten into operators; the remaining fields become in:, has:, filename:, deliveredto:, +boost, after: and before: terms."),
		mcp.WithString("free_text",
			mcp.Description("What the user typed into the search box"),
		),
	}
	opts = append(opts, withFormFields()...)
	opts = append(opts, mcp.WithBoolean("preview",
		mcp.Description("Return the query without updating the shared search state"),
	))
	return mcp.NewTool(ToolComposeQuery, opts...)
}

func translateQueryTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Translate a natural-language request into a search query with the configured language model, falling back to the rule-based composer."),
		mcp.WithString("free_text",
			mcp.Required(),
			mcp.Description("Natural-language search request"),
		),
	}
	opts = append(opts, withFormFields()...)
	return mcp.NewTool(ToolTranslateQuery, opts...)
}

func extractQueryTool() mcp.Tool {
	return mcp.NewTool(ToolExtractQuery,
		mcp.WithDescription("Extract the search query from conversational text, such as a model answer that wraps the query in prose, quotes or code fences."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text holding a query"),
		),
	)
}

func parseQueryTool() mcp.Tool {
	return mcp.NewTool(ToolParseQuery,
		mcp.WithDescription("Validate a search query and return its structure: operators, OR groups, boosts and free terms."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail-style search query (e.g. 'from:alice in:inbox after:2024/01/01')"),
		),
	)
}

func suggestSearchesTool() mcp.Tool {
	return mcp.NewTool(ToolSuggestSearches,
		mcp.WithDescription("List example natural-language searches the composer understands."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
