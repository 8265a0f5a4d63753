package compose

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wesm/mailquery/internal/dateparse"
	"github.com/wesm/mailquery/internal/metatext"
	"github.com/wesm/mailquery/internal/nlsearch"
	"github.com/wesm/mailquery/internal/textutil"
)

// dateLayout is the operator date format: 4-digit year, zero-padded
// month and day.
const dateLayout = "2006/01/02"

var (
	leadInRe     = regexp.MustCompile(`(?i)emails?\s+from\s+`)
	yearRe       = regexp.MustCompile(`\b\d{4}\b`)
	monthRe      = regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	danglingRe   = regexp.MustCompile(`(?i)(?:^|\s)(?:from|in|on|of|since|during|before|after|until|between|and)\s*$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Assembler turns form values into a query string. The zero value uses the
// default date and natural-language parsers and discards results.
type Assembler struct {
	Dates  DateParser
	NL     NLParser
	Sink   Sink
	Logger *slog.Logger
}

// New creates an Assembler publishing to sink.
func New(dates DateParser, nl NLParser, sink Sink, logger *slog.Logger) *Assembler {
	return &Assembler{Dates: dates, NL: nl, Sink: sink, Logger: logger}
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Assembler) dates() DateParser {
	if a.Dates != nil {
		return a.Dates
	}
	return dateparse.NewParser()
}

func (a *Assembler) nl() NLParser {
	if a.NL != nil {
		return a.NL
	}
	return nlsearch.Parser{}
}

// Terms returns the query terms for v in assembly order: the free-text
// terms, then folder, attachment kind, filename, delivered-to and boost
// filters, then the picked date range when the free text named no dates.
// Failures of the collaborators, including panics, are reported as
// *TransformError.
func (a *Assembler) Terms(v FormValues) (terms []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			terms = nil
			err = &TransformError{Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()

	datesFromText := false
	if text := strings.TrimSpace(textutil.CleanInput(v.FreeText)); text != "" {
		free, dated, err := a.freeTextTerms(text)
		if err != nil {
			return nil, err
		}
		terms = append(terms, free...)
		datesFromText = dated
	}

	if folder := strings.TrimSpace(v.Folder); folder != "" {
		terms = append(terms, "in:"+lower(folder))
	}
	if kind := strings.TrimSpace(v.HasKind); kind != "" {
		terms = append(terms, "has:"+lower(kind))
	}
	if strings.TrimSpace(v.FileName) != "" {
		terms = append(terms, "filename:"+v.FileName)
	}
	if to := strings.TrimSpace(v.DeliveredTo); to != "" {
		terms = append(terms, "deliveredto:"+lower(to))
	}
	if boost := strings.TrimSpace(v.BoostTerm); boost != "" {
		terms = append(terms, "+"+boost)
	}
	if !datesFromText {
		terms = append(terms, dateTerms(v.DateRange.From, v.DateRange.To)...)
	}
	return terms, nil
}

// Assemble joins the terms for v with single spaces.
func (a *Assembler) Assemble(v FormValues) (string, error) {
	terms, err := a.Terms(v)
	if err != nil {
		return "", err
	}
	return strings.Join(terms, " "), nil
}

// Build composes the search record for v without publishing it. The
// combined string is passed through the meta-text extractor. When assembly
// fails the value falls back to the free-text term alone, unextracted.
func (a *Assembler) Build(v FormValues) SearchQuery {
	combined, err := a.Assemble(v)
	value := metatext.ExtractOr(combined, combined)
	if err != nil {
		a.logger().Warn("query assembly failed, using free text only", "error", err)
		value = a.fallback(v.FreeText)
	}
	a.logger().Debug("composed search query", "value", value)
	return Record(v, value)
}

// Record wraps a query value in the search record for v. The highlight is
// the raw free text and the folder is upper-cased.
func Record(v FormValues, value string) SearchQuery {
	return SearchQuery{
		Value:     value,
		Highlight: v.FreeText,
		Folder:    upper(strings.TrimSpace(v.Folder)),
		IsLoading: true,
	}
}

// Submit builds the search record for v and hands it to the sink.
func (a *Assembler) Submit(v FormValues) SearchQuery {
	q := a.Build(v)
	a.Publish(q)
	return q
}

// Publish hands q to the sink, if any.
func (a *Assembler) Publish(q SearchQuery) {
	if a.Sink != nil {
		a.Sink.SetSearch(q)
	}
}

// Reset clears the search state.
func (a *Assembler) Reset() {
	a.Publish(SearchQuery{})
}

// freeTextTerms handles the free-text field: a recognized date phrase
// becomes after:/before: bounds plus whatever text remains, otherwise the
// natural-language translation or the address heuristic applies. dated
// reports whether a date phrase was found.
func (a *Assembler) freeTextTerms(text string) (terms []string, dated bool, err error) {
	rng, err := a.dates().ParseRange(text)
	if err != nil {
		return nil, false, &TransformError{Stage: "date", Err: err}
	}
	if !rng.IsEmpty() {
		terms = dateTerms(rng.From, rng.To)
		if rest := residue(text, rng.Phrase); rest != "" {
			terms = append(terms, rest)
		}
		return terms, true, nil
	}

	translated, err := a.nl().Translate(text)
	if err != nil {
		return nil, false, &TransformError{Stage: "nl", Err: err}
	}
	if q, ok := translation(text, translated); ok {
		return []string{q}, false, nil
	}
	return []string{FreeTextTerm(text)}, false, nil
}

// translation normalizes a translator result, reporting false when the
// translator left the text alone.
func translation(text, translated string) (string, bool) {
	if translated == text {
		return "", false
	}
	q := strings.TrimSpace(metatext.ExtractOr(translated, translated))
	return q, q != ""
}

// fallback derives a query from the free text alone. Structural filters
// are not carried over.
func (a *Assembler) fallback(freeText string) (value string) {
	text := strings.TrimSpace(textutil.CleanInput(freeText))
	if text == "" {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger().Warn("natural-language fallback panicked", "panic", r)
			value = FreeTextTerm(text)
		}
	}()
	if translated, err := a.nl().Translate(text); err == nil {
		if q, ok := translation(text, translated); ok {
			return q
		}
	}
	return FreeTextTerm(text)
}

// FreeTextTerm applies the address heuristic: text containing "@" is a
// sender, anything else is searched as sender, subject or body.
func FreeTextTerm(text string) string {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "@") {
		return "from:" + text
	}
	return fmt.Sprintf(`(from:%s OR from:"%s" OR subject:"%s" OR "%s")`, text, text, text, text)
}

func dateTerms(from, to *time.Time) []string {
	var terms []string
	if from != nil {
		terms = append(terms, "after:"+from.Format(dateLayout))
	}
	if to != nil {
		terms = append(terms, "before:"+to.Format(dateLayout))
	}
	return terms
}

// residue strips the date phrase and calendar words from text.
func residue(text, phrase string) string {
	s := leadInRe.ReplaceAllStringFunc(text, firstOnly())
	if phrase != "" {
		s = strings.Replace(s, phrase, "", 1)
	}
	s = yearRe.ReplaceAllString(s, "")
	s = monthRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = danglingRe.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}

// firstOnly returns a replacement func that removes only the first match.
func firstOnly() func(string) string {
	done := false
	return func(m string) string {
		if done {
			return m
		}
		done = true
		return ""
	}
}

func lower(s string) string { return cases.Lower(language.Und).String(s) }
func upper(s string) string { return cases.Upper(language.Und).String(s) }
