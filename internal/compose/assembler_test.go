package compose

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailquery/internal/dateparse"
	"github.com/wesm/mailquery/internal/nlsearch"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestAssembler(sink Sink) *Assembler {
	return New(&dateparse.Parser{Now: func() time.Time { return fixedNow }, WeekStart: time.Monday}, nlsearch.Parser{}, sink, nil)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// failingDates always reports an invalid date.
type failingDates struct{}

func (failingDates) ParseRange(string) (*dateparse.Range, error) {
	return nil, dateparse.ErrInvalidDate
}

// panickingDates panics on every call.
type panickingDates struct{}

func (panickingDates) ParseRange(string) (*dateparse.Range, error) {
	panic("boom")
}

// recordingSink keeps every published query.
type recordingSink struct {
	got []SearchQuery
}

func (s *recordingSink) SetSearch(q SearchQuery) { s.got = append(s.got, q) }

func TestAssemble(t *testing.T) {
	tests := []struct {
		name string
		in   FormValues
		want string
	}{
		{
			name: "plain free text becomes disjunctive group",
			in:   FormValues{FreeText: "meeting notes"},
			want: `(from:meeting notes OR from:"meeting notes" OR subject:"meeting notes" OR "meeting notes")`,
		},
		{
			name: "address becomes sender",
			in:   FormValues{FreeText: "bob@example.com"},
			want: "from:bob@example.com",
		},
		{
			name: "folder only",
			in:   FormValues{Folder: "Inbox"},
			want: "in:inbox",
		},
		{
			name: "date phrase only",
			in:   FormValues{FreeText: "january 2024"},
			want: "after:2024/01/01 before:2024/01/31",
		},
		{
			name: "date phrase with remaining text",
			in:   FormValues{FreeText: "invoices from january 2024"},
			want: "after:2024/01/01 before:2024/01/31 invoices",
		},
		{
			name: "emails from lead-in dropped",
			in:   FormValues{FreeText: "emails from 2023"},
			want: "after:2023/01/01 before:2023/12/31",
		},
		{
			name: "relative period",
			in:   FormValues{FreeText: "Emails from last week"},
			want: "after:2024/06/03 before:2024/06/09",
		},
		{
			name: "natural language translation",
			in:   FormValues{FreeText: "unread emails"},
			want: "is:unread",
		},
		{
			name: "all filters in order",
			in: FormValues{
				FreeText:    "bob@example.com",
				Folder:      "Inbox",
				HasKind:     "PDF",
				FileName:    "Report.PDF",
				DeliveredTo: "Me@Example.com",
				BoostTerm:   "urgent",
				DateRange:   DateRange{From: day(2024, 3, 1), To: day(2024, 3, 31)},
			},
			want: "from:bob@example.com in:inbox has:pdf filename:Report.PDF deliveredto:me@example.com +urgent after:2024/03/01 before:2024/03/31",
		},
		{
			name: "free text before filters",
			in:   FormValues{FreeText: "meeting notes", Folder: "Sent"},
			want: `(from:meeting notes OR from:"meeting notes" OR subject:"meeting notes" OR "meeting notes") in:sent`,
		},
		{
			name: "dates in text take precedence over picked range",
			in: FormValues{
				FreeText:  "january 2024",
				Folder:    "Inbox",
				DateRange: DateRange{From: day(2024, 3, 1)},
			},
			want: "after:2024/01/01 before:2024/01/31 in:inbox",
		},
		{
			name: "translated pair kept whole",
			in:   FormValues{FreeText: "Emails from Caroline and Josh", BoostTerm: "urgent"},
			want: "from:(Caroline OR Josh) +urgent",
		},
		{
			name: "open-ended picked range",
			in:   FormValues{DateRange: DateRange{From: day(2024, 3, 1)}},
			want: "after:2024/03/01",
		},
		{
			name: "blank fields omitted",
			in:   FormValues{FreeText: "  ", Folder: " ", HasKind: "", BoostTerm: " "},
			want: "",
		},
	}

	a := newTestAssembler(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Assemble(tt.in)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Assemble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTerms_OmittedFiltersAbsent(t *testing.T) {
	terms, err := newTestAssembler(nil).Terms(FormValues{FreeText: "bob@example.com", Folder: "Inbox"})
	if err != nil {
		t.Fatalf("Terms() error = %v", err)
	}
	for _, term := range terms {
		for _, prefix := range []string{"has:", "filename:", "deliveredto:", "+", "after:", "before:"} {
			if strings.HasPrefix(term, prefix) {
				t.Errorf("unexpected term %q", term)
			}
		}
	}
	if diff := cmp.Diff([]string{"from:bob@example.com", "in:inbox"}, terms); diff != "" {
		t.Errorf("Terms() mismatch (-want +got):\n%s", diff)
	}
}

func TestTerms_TransformErrors(t *testing.T) {
	tests := []struct {
		name  string
		dates DateParser
		stage string
	}{
		{"invalid date", failingDates{}, "date"},
		{"panic", panickingDates{}, "panic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.dates, nlsearch.Parser{}, nil, nil)
			_, err := a.Terms(FormValues{FreeText: "meeting notes", Folder: "Inbox"})
			var te *TransformError
			if !errors.As(err, &te) {
				t.Fatalf("Terms() error = %v, want *TransformError", err)
			}
			if te.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", te.Stage, tt.stage)
			}
		})
	}

	_, err := New(failingDates{}, nlsearch.Parser{}, nil, nil).Terms(FormValues{FreeText: "x"})
	if !errors.Is(err, dateparse.ErrInvalidDate) {
		t.Errorf("error %v does not wrap ErrInvalidDate", err)
	}
}

func TestBuild_FallbackUsesFreeTextOnly(t *testing.T) {
	tests := []struct {
		name  string
		dates DateParser
		in    FormValues
		want  string
	}{
		{
			name:  "invalid date",
			dates: failingDates{},
			in:    FormValues{FreeText: "meeting notes", Folder: "Inbox", HasKind: "pdf"},
			want:  `(from:meeting notes OR from:"meeting notes" OR subject:"meeting notes" OR "meeting notes")`,
		},
		{
			name:  "panic with address",
			dates: panickingDates{},
			in:    FormValues{FreeText: "bob@example.com", Folder: "Inbox"},
			want:  "from:bob@example.com",
		},
		{
			name:  "natural language retried",
			dates: failingDates{},
			in:    FormValues{FreeText: "starred emails", BoostTerm: "x"},
			want:  "is:starred",
		},
		{
			name:  "no free text skips the date parser",
			dates: failingDates{},
			in:    FormValues{FreeText: "   ", Folder: "Inbox"},
			want:  "in:inbox",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(tt.dates, nlsearch.Parser{}, nil, nil).Build(tt.in)
			if q.Value != tt.want {
				t.Errorf("Value = %q, want %q", q.Value, tt.want)
			}
			if q.Highlight != tt.in.FreeText {
				t.Errorf("Highlight = %q, want %q", q.Highlight, tt.in.FreeText)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	sink := &recordingSink{}
	a := newTestAssembler(sink)

	got := a.Submit(FormValues{FreeText: "bob@example.com", Folder: "Inbox"})
	want := SearchQuery{
		Value:     "from:bob@example.com in:inbox",
		Highlight: "bob@example.com",
		Folder:    "INBOX",
		IsLoading: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Submit() mismatch (-want +got):\n%s", diff)
	}
	if len(sink.got) != 1 || sink.got[0] != want {
		t.Fatalf("sink received %+v, want one %+v", sink.got, want)
	}

	a.Reset()
	if len(sink.got) != 2 || !sink.got[1].IsZero() {
		t.Errorf("Reset() published %+v, want empty record", sink.got[len(sink.got)-1])
	}
}

func TestBuild_ExtractsCombinedQuery(t *testing.T) {
	tests := []struct {
		name string
		in   FormValues
		want string
	}{
		{
			name: "address with folder passes through",
			in:   FormValues{FreeText: "bob@example.com", Folder: "Inbox"},
			want: "from:bob@example.com in:inbox",
		},
		{
			name: "sender group collapses to its first quoted span",
			in:   FormValues{FreeText: "meeting notes", Folder: "Inbox"},
			want: "meeting notes",
		},
		{
			name: "dated query keeps every term",
			in:   FormValues{FreeText: "invoices from january 2024", HasKind: "PDF"},
			want: "after:2024/01/01 before:2024/01/31 invoices has:pdf",
		},
		{
			name: "terms before the first operator keyword are cut",
			in: FormValues{
				BoostTerm: "urgent",
				DateRange: DateRange{From: day(2024, 3, 1), To: day(2024, 3, 31)},
			},
			want: "after:2024/03/01 before:2024/03/31",
		},
		{
			name: "folder ahead of has is cut",
			in:   FormValues{Folder: "Inbox", HasKind: "pdf"},
			want: "has:pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssembler(nil)
			combined, err := a.Assemble(tt.in)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			q := a.Build(tt.in)
			if q.Value != tt.want {
				t.Errorf("Build().Value = %q, want %q (combined %q)", q.Value, tt.want, combined)
			}
		})
	}
}

func TestTerms_FileNameAsGiven(t *testing.T) {
	terms, err := newTestAssembler(nil).Terms(FormValues{FileName: " Q1 Report.PDF"})
	if err != nil {
		t.Fatalf("Terms() error = %v", err)
	}
	if diff := cmp.Diff([]string{"filename: Q1 Report.PDF"}, terms); diff != "" {
		t.Errorf("Terms() mismatch (-want +got):\n%s", diff)
	}

	if terms, _ := newTestAssembler(nil).Terms(FormValues{FileName: "   "}); len(terms) != 0 {
		t.Errorf("blank file name produced %v", terms)
	}
}

func TestSubmit_FolderOnlyRecord(t *testing.T) {
	q := newTestAssembler(nil).Submit(FormValues{Folder: "Inbox"})
	if q.Value != "in:inbox" || q.Folder != "INBOX" || q.Highlight != "" || !q.IsLoading || q.IsAISearching {
		t.Errorf("Submit() = %+v", q)
	}
}

func TestSinkFunc(t *testing.T) {
	var got SearchQuery
	a := newTestAssembler(SinkFunc(func(q SearchQuery) { got = q }))
	a.Submit(FormValues{FreeText: "alice@example.com"})
	if got.Value != "from:alice@example.com" {
		t.Errorf("sink got %q, want from:alice@example.com", got.Value)
	}
}

// nlStub returns a fixed translation.
type nlStub string

func (n nlStub) Translate(string) (string, error) { return string(n), nil }

func TestTerms_TranslationIsExtracted(t *testing.T) {
	a := New(&dateparse.Parser{Now: func() time.Time { return fixedNow }}, nlStub(`Converting to: "is:starred"`), nil, nil)
	got, err := a.Assemble(FormValues{FreeText: "starred", Folder: "Inbox"})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if got != "is:starred in:inbox" {
		t.Errorf("Assemble() = %q, want %q", got, "is:starred in:inbox")
	}
}

func TestZeroAssembler(t *testing.T) {
	var a Assembler
	q := a.Build(FormValues{FreeText: "alice@example.com"})
	if q.Value != "from:alice@example.com" {
		t.Errorf("Value = %q", q.Value)
	}
	a.Reset()
}

func TestFreeTextTerm(t *testing.T) {
	if got := FreeTextTerm(" carol@example.com "); got != "from:carol@example.com" {
		t.Errorf("FreeTextTerm(address) = %q", got)
	}
	if got := FreeTextTerm("lunch"); got != `(from:lunch OR from:"lunch" OR subject:"lunch" OR "lunch")` {
		t.Errorf("FreeTextTerm(text) = %q", got)
	}
}
