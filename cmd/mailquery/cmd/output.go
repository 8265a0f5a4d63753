package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/search"
	"github.com/wesm/mailquery/internal/textutil"
)

// labelWidth is the display width of the label column.
const labelWidth = 14

// maxValueRunes bounds echoed user input.
const maxValueRunes = 80

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	queryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printer writes command output, styled only when writing to a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok {
		p.styled = isTerminal(f)
	}
	return p
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// field prints an aligned "label: value" line.
func (p *printer) field(label, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.style(labelStyle, runewidth.FillRight(label+":", labelWidth)), value)
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// query prints a composed search record.
func (p *printer) query(q compose.SearchQuery) {
	p.field("Query", p.style(queryStyle, q.Value))
	if q.Highlight != "" {
		p.field("Highlight", textutil.TruncateRunes(q.Highlight, maxValueRunes))
	}
	if q.Folder != "" {
		p.field("Folder", q.Folder)
	}
	if q.IsAISearching {
		p.field("Source", p.style(dimStyle, "AI"))
	}
}

// parsed prints the structure of a query and its validation result.
func (p *printer) parsed(q *search.Query, verr error) {
	list := func(label string, values []string) {
		if len(values) > 0 {
			p.field(label, strings.Join(values, ", "))
		}
	}
	list("Text", q.TextTerms)
	list("From", q.FromAddrs)
	list("To", q.ToAddrs)
	list("Subject", q.SubjectTerms)
	list("In", q.Folders)
	list("Is", q.States)
	list("Has", q.Has)
	list("Filename", q.Filenames)
	list("Delivered to", q.DeliveredTo)
	list("Label", q.Labels)
	list("Boost", q.Boosts)
	for _, g := range q.Groups {
		p.field("Any of", strings.Join(g.Alternatives, " | "))
	}
	if q.AfterDate != nil {
		p.field("After", q.AfterDate.Format("2006-01-02"))
	}
	if q.BeforeDate != nil {
		p.field("Before", q.BeforeDate.Format("2006-01-02"))
	}
	list("Unknown", q.Unknown)

	if verr != nil {
		p.field("Valid", p.style(errorStyle, "no ("+verr.Error()+")"))
	} else {
		p.field("Valid", "yes")
	}
}
