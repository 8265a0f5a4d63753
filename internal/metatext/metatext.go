// Package metatext pulls a search query out of conversational text, such
// as an LLM answer that wraps the query in explanations.
package metatext

import (
	"regexp"
	"strings"
)

// Rule is one step of the extraction cascade. Rules are tried in order and
// the first one that fires decides the result.
type Rule struct {
	Name string

	// Apply returns the extracted query and whether the rule fired.
	Apply func(text string) (query string, fired bool)

	// AbsentOnEmpty marks rules whose empty payload means "no result"
	// rather than an empty query.
	AbsentOnEmpty bool
}

var (
	quotedSpanRe = regexp.MustCompile(`["']([^"']+)["']`)

	labeledPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"converted_query", regexp.MustCompile(`(?i)here is the (converted|enhanced) query:?\s*["']?([^"']+)["']?`)},
		{"search_query_is", regexp.MustCompile(`(?i)the (search query|query) (is|would be):?\s*["']?([^"']+)["']?`)},
		{"converted_your_query", regexp.MustCompile(`(?i)i('ve| have) converted your query to:?\s*["']?([^"']+)["']?`)},
		{"converting_to", regexp.MustCompile(`(?i)converting to:?\s*["']?([^"']+)["']?`)},
	}

	focusedOnRe     = regexp.MustCompile(`(?im)I focused on.*$`)
	preciseRe       = regexp.MustCompile(`(?im)Here's a precise.*$`)
	trailingNoteRe  = regexp.MustCompile(`(?im)\n\nThis (query|search).*$`)
	operatorStartRe = regexp.MustCompile(`(?i)^.*?\b(from:|to:|subject:|is:|has:|after:|before:)`)
	quoteCharsRe    = regexp.MustCompile(`["']`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

var rules = buildRules()

func buildRules() []Rule {
	out := []Rule{{Name: "quoted_span", Apply: quotedSpan}}
	for _, p := range labeledPatterns {
		re := p.re
		out = append(out, Rule{
			Name:          p.name,
			Apply:         func(text string) (string, bool) { return labeled(re, text) },
			AbsentOnEmpty: true,
		})
	}
	out = append(out, Rule{Name: "cleanup", Apply: func(text string) (string, bool) { return Cleanup(text), true }})
	return out
}

// Rules returns the extraction cascade in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Extract returns the query embedded in text. The boolean is false only
// when a labeled lead-in ("the query is:") matched but carried no payload;
// callers should then keep their original input.
func Extract(text string) (string, bool) {
	for _, r := range rules {
		q, fired := r.Apply(text)
		if !fired {
			continue
		}
		if q == "" && r.AbsentOnEmpty {
			return "", false
		}
		return q, true
	}
	return text, true
}

// ExtractOr is Extract with a fallback for the absent result.
func ExtractOr(text, fallback string) string {
	if q, ok := Extract(text); ok {
		return q
	}
	return fallback
}

func quotedSpan(text string) (string, bool) {
	m := quotedSpanRe.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func labeled(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	payload := strings.TrimSpace(m[len(m)-1])
	return strings.Trim(payload, `"'`), true
}

// Cleanup strips explanatory prose around a query: known explanation
// sentences, a trailing "This query ..." paragraph, and any lead-in before
// the first operator. Remaining quotes are removed and whitespace is
// collapsed.
func Cleanup(text string) string {
	s := replaceFirst(focusedOnRe, text, "")
	s = replaceFirst(preciseRe, s, "")
	s = replaceFirst(trailingNoteRe, s, "")
	s = trimToOperator(s)
	s = quoteCharsRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// trimToOperator drops everything before the first operator keyword on the
// first line.
func trimToOperator(s string) string {
	loc := operatorStartRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	return s[loc[2]:]
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
