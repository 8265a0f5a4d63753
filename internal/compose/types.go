// Package compose assembles the values of an email search form into a
// single Gmail-grammar query and hands the result to the search state.
package compose

import (
	"fmt"
	"time"

	"github.com/wesm/mailquery/internal/dateparse"
)

// DateRange is a picked date range. Either bound may be nil.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// FormValues holds one submission of the search form.
type FormValues struct {
	FreeText    string    `json:"freeText"`
	Folder      string    `json:"folder,omitempty"`
	HasKind     string    `json:"hasAttachmentKind,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	DeliveredTo string    `json:"deliveredTo,omitempty"`
	BoostTerm   string    `json:"boostTerm,omitempty"`
	DateRange   DateRange `json:"dateRange,omitempty"`
}

// SearchQuery is the record handed to the search state. Value is a
// space-delimited sequence of operators, free terms and (a OR b) groups.
type SearchQuery struct {
	Value         string `json:"value"`
	Highlight     string `json:"highlight"`
	Folder        string `json:"folder"`
	IsLoading     bool   `json:"isLoading"`
	IsAISearching bool   `json:"isAISearching"`
}

// IsZero reports whether q is the cleared search state.
func (q SearchQuery) IsZero() bool {
	return q == SearchQuery{}
}

// DateParser recognizes natural-language date ranges. A nil range with a
// nil error means the text holds no date expression.
type DateParser interface {
	ParseRange(text string) (*dateparse.Range, error)
}

// NLParser rewrites natural-language phrasings into operator syntax,
// returning the input unchanged when no phrasing applies.
type NLParser interface {
	Translate(text string) (string, error)
}

// Sink receives composed queries. SetSearch is the only mutation entry
// point of the search state.
type Sink interface {
	SetSearch(q SearchQuery)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(q SearchQuery)

// SetSearch calls f(q).
func (f SinkFunc) SetSearch(q SearchQuery) { f(q) }

// TransformError reports an unexpected failure while building a query.
type TransformError struct {
	Stage string // "date", "nl" or "panic"
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
