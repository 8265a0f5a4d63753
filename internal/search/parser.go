// Package search parses and validates Gmail-like search query strings.
package search

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrUnbalancedQuotes = errors.New("unbalanced quotes")
	ErrUnbalancedParens = errors.New("unbalanced parentheses")
	ErrEmptyOperator    = errors.New("operator without value")
	ErrEmptyGroup       = errors.New("empty group")
)

// Group is a parenthesized disjunction such as (from:a OR from:b).
type Group struct {
	Alternatives []string `json:"alternatives"`
}

// Query represents a parsed search query.
type Query struct {
	TextTerms    []string   `json:"text_terms,omitempty"`    // Free terms and "quoted phrases"
	FromAddrs    []string   `json:"from,omitempty"`          // from: filters
	ToAddrs      []string   `json:"to,omitempty"`            // to: filters
	SubjectTerms []string   `json:"subject,omitempty"`       // subject: filters
	Folders      []string   `json:"in,omitempty"`            // in: filters
	States       []string   `json:"is,omitempty"`            // is: filters (unread, starred, ...)
	Has          []string   `json:"has,omitempty"`           // has: filters
	Filenames    []string   `json:"filename,omitempty"`      // filename: filters
	DeliveredTo  []string   `json:"deliveredto,omitempty"`   // deliveredto: filters
	Labels       []string   `json:"label,omitempty"`         // label: or l: filters
	Boosts       []string   `json:"boost,omitempty"`         // +term
	Groups       []Group    `json:"groups,omitempty"`        // (a OR b)
	AfterDate    *time.Time `json:"after,omitempty"`         // after: or newer_than:
	BeforeDate   *time.Time `json:"before,omitempty"`        // before: or older_than:
	Unknown      []string   `json:"unknown_operators,omitempty"`
}

// IsEmpty returns true if the query has no search criteria.
func (q *Query) IsEmpty() bool {
	return len(q.TextTerms) == 0 &&
		len(q.FromAddrs) == 0 &&
		len(q.ToAddrs) == 0 &&
		len(q.SubjectTerms) == 0 &&
		len(q.Folders) == 0 &&
		len(q.States) == 0 &&
		len(q.Has) == 0 &&
		len(q.Filenames) == 0 &&
		len(q.DeliveredTo) == 0 &&
		len(q.Labels) == 0 &&
		len(q.Boosts) == 0 &&
		len(q.Groups) == 0 &&
		q.AfterDate == nil &&
		q.BeforeDate == nil
}

// HasAttachment reports whether the query asks for messages with attachments.
func (q *Query) HasAttachment() bool {
	for _, h := range q.Has {
		if h == "attachment" || h == "attachments" {
			return true
		}
	}
	return false
}

// operatorFn applies an operator:value pair to the query.
type operatorFn func(q *Query, value string, now time.Time)

func appendLower(field func(*Query) *[]string) operatorFn {
	return func(q *Query, v string, _ time.Time) {
		p := field(q)
		*p = append(*p, strings.ToLower(v))
	}
}

func appendRaw(field func(*Query) *[]string) operatorFn {
	return func(q *Query, v string, _ time.Time) {
		p := field(q)
		*p = append(*p, v)
	}
}

// operators maps operator names to their handler functions.
var operators = map[string]operatorFn{
	"from":        appendLower(func(q *Query) *[]string { return &q.FromAddrs }),
	"to":          appendLower(func(q *Query) *[]string { return &q.ToAddrs }),
	"subject":     appendRaw(func(q *Query) *[]string { return &q.SubjectTerms }),
	"in":          appendLower(func(q *Query) *[]string { return &q.Folders }),
	"is":          appendLower(func(q *Query) *[]string { return &q.States }),
	"has":         appendLower(func(q *Query) *[]string { return &q.Has }),
	"filename":    appendRaw(func(q *Query) *[]string { return &q.Filenames }),
	"deliveredto": appendLower(func(q *Query) *[]string { return &q.DeliveredTo }),
	"label":       appendRaw(func(q *Query) *[]string { return &q.Labels }),
	"l":           appendRaw(func(q *Query) *[]string { return &q.Labels }),
	"before": func(q *Query, v string, _ time.Time) {
		if t := parseDate(v); t != nil {
			q.BeforeDate = t
		}
	},
	"after": func(q *Query, v string, _ time.Time) {
		if t := parseDate(v); t != nil {
			q.AfterDate = t
		}
	},
	"older_than": func(q *Query, v string, now time.Time) {
		if t := parseRelativeDate(v, now); t != nil {
			q.BeforeDate = t
		}
	},
	"newer_than": func(q *Query, v string, now time.Time) {
		if t := parseRelativeDate(v, now); t != nil {
			q.AfterDate = t
		}
	},
}

// IsOperator reports whether name is a recognized operator key.
func IsOperator(name string) bool {
	_, ok := operators[strings.ToLower(name)]
	return ok
}

// Parser holds configuration for query parsing.
type Parser struct {
	Now func() time.Time // Time source (mockable for testing)
}

// NewParser creates a Parser with default settings.
func NewParser() *Parser {
	return &Parser{Now: func() time.Time { return time.Now().UTC() }}
}

// Parse parses a query string into a Query. Parsing is best-effort:
// malformed input still yields whatever terms could be recognized. Use
// Validate to reject malformed input.
//
// Supported syntax:
//   - from:, to:, subject:, in:, is:, has:, filename:, deliveredto:, label:
//   - before:, after: - dates (YYYY/MM/DD or YYYY-MM-DD)
//   - older_than:, newer_than: - relative dates (7d, 2w, 1m, 1y)
//   - key:(multi word value) and key:"quoted value"
//   - key:(a OR b), read as (key:a OR key:b)
//   - (a OR b) groups
//   - +term boosts
//   - bare words and "quoted phrases"
func (p *Parser) Parse(queryStr string) *Query {
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}
	tokens, _ := tokenize(queryStr)
	q := &Query{}
	for _, token := range tokens {
		p.apply(q, token, now)
	}
	return q
}

func (p *Parser) apply(q *Query, token string, now time.Time) {
	switch {
	case token == "OR":
		return
	case isGroup(token):
		if g, err := parseGroup(token); err == nil {
			q.Groups = append(q.Groups, g)
		}
		return
	case isQuotedPhrase(token):
		q.TextTerms = append(q.TextTerms, unquote(token))
		return
	case len(token) > 1 && token[0] == '+':
		q.Boosts = append(q.Boosts, token[1:])
		return
	}

	if idx := strings.Index(token, ":"); idx > 0 {
		op := strings.ToLower(token[:idx])
		value := unwrap(token[idx+1:])
		if handler, ok := operators[op]; ok {
			if g, ok := operatorGroup(op, token[idx+1:]); ok {
				q.Groups = append(q.Groups, g)
				return
			}
			if value != "" {
				handler(q, value, now)
			}
			return
		}
		q.Unknown = append(q.Unknown, op)
	}
	q.TextTerms = append(q.TextTerms, token)
}

// Parse is a convenience function that parses using default settings.
func Parse(queryStr string) *Query {
	return NewParser().Parse(queryStr)
}

// Validate reports whether queryStr is a well-formed token sequence:
// quotes and parentheses balance, groups are non-empty, and every known
// operator carries a value.
func Validate(queryStr string) error {
	tokens, err := tokenize(queryStr)
	if err != nil {
		return err
	}
	return validateTokens(tokens)
}

func validateTokens(tokens []string) error {
	for _, token := range tokens {
		if isGroup(token) {
			if _, err := parseGroup(token); err != nil {
				return err
			}
			continue
		}
		if isQuotedPhrase(token) {
			continue
		}
		if idx := strings.Index(token, ":"); idx > 0 {
			op := strings.ToLower(token[:idx])
			if _, ok := operators[op]; ok && unwrap(token[idx+1:]) == "" {
				return fmt.Errorf("%w: %q", ErrEmptyOperator, token)
			}
		}
	}
	return nil
}

// parseGroup splits "(a OR b c OR d)" into its alternatives.
func parseGroup(token string) (Group, error) {
	inner, err := tokenize(token[1 : len(token)-1])
	if err != nil {
		return Group{}, err
	}
	if len(inner) == 0 {
		return Group{}, fmt.Errorf("%w: %q", ErrEmptyGroup, token)
	}
	if err := validateTokens(inner); err != nil {
		return Group{}, err
	}

	var g Group
	var current []string
	flush := func() {
		if len(current) > 0 {
			g.Alternatives = append(g.Alternatives, strings.Join(current, " "))
			current = nil
		}
	}
	for _, t := range inner {
		if t == "OR" {
			flush()
			continue
		}
		current = append(current, t)
	}
	flush()
	if len(g.Alternatives) == 0 {
		return Group{}, fmt.Errorf("%w: %q", ErrEmptyGroup, token)
	}
	return g, nil
}

// operatorGroup expands op:(a OR b) into the group (op:a OR op:b).
func operatorGroup(op, raw string) (Group, bool) {
	if !isGroup(raw) {
		return Group{}, false
	}
	g, err := parseGroup(raw)
	if err != nil || len(g.Alternatives) < 2 {
		return Group{}, false
	}
	for i, alt := range g.Alternatives {
		g.Alternatives[i] = op + ":" + alt
	}
	return g, true
}

// unquote removes surrounding double quotes from a string if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// unwrap removes surrounding quotes or parentheses from an operator value.
func unwrap(s string) string {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return strings.TrimSpace(unquote(s))
}

// isQuotedPhrase returns true if the token is a double-quoted phrase.
func isQuotedPhrase(token string) bool {
	return len(token) > 2 && token[0] == '"' && token[len(token)-1] == '"'
}

// isGroup returns true if the token is a parenthesized group.
func isGroup(token string) bool {
	return len(token) >= 2 && token[0] == '(' && token[len(token)-1] == ')'
}

// tokenize splits a query on whitespace, keeping "quoted phrases",
// (parenthesized groups) and op:"value" / op:(value) pairs together.
func tokenize(queryStr string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	depth := 0

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range queryStr {
		switch {
		case char == '"':
			// A quote opening mid-word ends the word unless it follows a colon.
			if !inQuotes && depth == 0 && current.Len() > 0 && !strings.HasSuffix(current.String(), ":") {
				flush()
			}
			inQuotes = !inQuotes
			current.WriteRune(char)
			if !inQuotes && depth == 0 && !strings.Contains(current.String(), ":\"") {
				flush()
			}
		case inQuotes:
			current.WriteRune(char)
		case char == '(':
			depth++
			current.WriteRune(char)
		case char == ')':
			depth--
			if depth < 0 {
				return tokens, ErrUnbalancedParens
			}
			current.WriteRune(char)
			if depth == 0 {
				flush()
			}
		case (char == ' ' || char == '\t' || char == '\n' || char == '\r') && depth == 0:
			flush()
		default:
			current.WriteRune(char)
		}
	}

	if inQuotes {
		return tokens, ErrUnbalancedQuotes
	}
	if depth != 0 {
		return tokens, ErrUnbalancedParens
	}
	flush()
	return tokens, nil
}

// parseDate parses date strings like YYYY/MM/DD or YYYY-MM-DD.
func parseDate(value string) *time.Time {
	formats := []string{
		"2006/01/02",
		"2006-01-02",
		"2006/1/2",
		"2006-1-2",
	}

	value = strings.TrimSpace(value)
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var relativeDateRe = regexp.MustCompile(`^(\d+)([dwmy])$`)

// parseRelativeDate parses relative dates like 7d, 2w, 1m, 1y relative to now.
func parseRelativeDate(value string, now time.Time) *time.Time {
	match := relativeDateRe.FindStringSubmatch(strings.TrimSpace(strings.ToLower(value)))
	if match == nil {
		return nil
	}

	amount, _ := strconv.Atoi(match[1])
	var result time.Time
	switch match[2] {
	case "d":
		result = now.AddDate(0, 0, -amount)
	case "w":
		result = now.AddDate(0, 0, -amount*7)
	case "m":
		result = now.AddDate(0, -amount, 0)
	case "y":
		result = now.AddDate(-amount, 0, 0)
	}
	return &result
}
