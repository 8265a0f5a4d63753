// Package dateparse recognizes natural-language date ranges in search text
// ("last week", "january 2024", "since 2024-03-01").
package dateparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when the text names a date that does not exist,
// such as 2024-02-31.
var ErrInvalidDate = errors.New("invalid date")

// Range is a recognized date range. Either bound may be nil. Phrase is the
// text that produced the range, as it appeared in the input.
type Range struct {
	From   *time.Time
	To     *time.Time
	Phrase string
}

// IsEmpty reports whether the range has no bounds.
func (r *Range) IsEmpty() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// Parser holds configuration for date range recognition.
type Parser struct {
	Now       func() time.Time // Time source (mockable for testing)
	WeekStart time.Weekday
}

// NewParser creates a Parser using the local clock and Monday-based weeks.
func NewParser() *Parser {
	return &Parser{Now: time.Now, WeekStart: time.Monday}
}

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december`

// dateToken matches a single calendar date: ISO style or "march 5, 2024".
const dateToken = `(?:\d{4}[-/]\d{1,2}[-/]\d{1,2}\b|(?:` + monthNames + `)\b(?:\s+\d{1,2}(?:st|nd|rd|th)?\b)?(?:,?\s+\d{4}\b)?)`

var (
	isoDateRe   = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	monthDateRe = regexp.MustCompile(`(?i)^(` + monthNames + `)(?:\s+(\d{1,2})(?:st|nd|rd|th)?)?(?:,?\s+(\d{4}))?$`)
)

// rangeFn converts a regex match into range bounds.
type rangeFn func(p *Parser, m []string, now time.Time) (from, to *time.Time, err error)

type rangeRule struct {
	name string
	re   *regexp.Regexp
	fn   rangeFn

	// phraseGroup selects the submatch reported as Range.Phrase.
	phraseGroup int
}

// rules are tried in order; the first rule with an accepted match wins.
var rules = []rangeRule{
	{
		name: "between",
		re:   regexp.MustCompile(`(?i)\bbetween\s+(` + dateToken + `)\s+and\s+(` + dateToken + `)`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			from, err := parseDateToken(m[1], now)
			if err != nil {
				return nil, nil, err
			}
			to, err := parseDateToken(m[2], now)
			if err != nil {
				return nil, nil, err
			}
			if to.Before(from) {
				from, to = to, from
			}
			return &from, &to, nil
		},
	},
	{
		name: "since",
		re:   regexp.MustCompile(`(?i)\b(?:since|after)\s+(` + dateToken + `)`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			from, err := parseDateToken(m[1], now)
			if err != nil {
				return nil, nil, err
			}
			return &from, nil, nil
		},
	},
	{
		name: "before",
		re:   regexp.MustCompile(`(?i)\b(?:before|until)\s+(` + dateToken + `)`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			to, err := parseDateToken(m[1], now)
			if err != nil {
				return nil, nil, err
			}
			return nil, &to, nil
		},
	},
	{
		name: "today",
		re:   regexp.MustCompile(`(?i)\btoday\b`),
		fn: func(p *Parser, _ []string, now time.Time) (*time.Time, *time.Time, error) {
			return singleDay(startOfDay(now))
		},
	},
	{
		name: "yesterday",
		re:   regexp.MustCompile(`(?i)\byesterday\b`),
		fn: func(p *Parser, _ []string, now time.Time) (*time.Time, *time.Time, error) {
			return singleDay(startOfDay(now).AddDate(0, 0, -1))
		},
	},
	{
		name: "relative_count",
		re:   regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s+(day|week|month|year)s?\b`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %q", ErrInvalidDate, m[0])
			}
			from := startOfDay(now)
			switch strings.ToLower(m[2]) {
			case "day":
				from = from.AddDate(0, 0, -n)
			case "week":
				from = from.AddDate(0, 0, -7*n)
			case "month":
				from = from.AddDate(0, -n, 0)
			case "year":
				from = from.AddDate(-n, 0, 0)
			}
			return &from, nil, nil
		},
	},
	{
		name: "named_period",
		re:   regexp.MustCompile(`(?i)\b(this|last|past)\s+(week|month|year)\b`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			current := strings.ToLower(m[1]) == "this"
			var start time.Time
			var step func(time.Time, int) time.Time
			switch strings.ToLower(m[2]) {
			case "week":
				start = p.startOfWeek(now)
				step = func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }
			case "month":
				start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
				step = func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
			default:
				start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
				step = func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) }
			}
			if current {
				return &start, nil, nil
			}
			from := step(start, -1)
			to := start.AddDate(0, 0, -1)
			return &from, &to, nil
		},
	},
	{
		name: "iso_date",
		// Dates already written as operator values (after:2024/01/01) are
		// left alone.
		re:          regexp.MustCompile(`(?:^|[\s(,])(\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`),
		phraseGroup: 1,
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			d, err := parseDateToken(m[1], now)
			if err != nil {
				return nil, nil, err
			}
			return singleDay(d)
		},
	},
	{
		name: "month",
		re:   regexp.MustCompile(`(?i)\b(` + monthNames + `)\b(?:\s+(\d{1,2})(?:st|nd|rd|th)?\b)?(?:,?\s+(\d{4})\b)?`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			// "may" alone is far more often the verb than the month.
			if strings.EqualFold(m[1], "may") && m[2] == "" && m[3] == "" {
				return nil, nil, nil
			}
			month := monthNumber(m[1])
			year := now.Year()
			explicitYear := m[3] != ""
			if explicitYear {
				year, _ = strconv.Atoi(m[3])
			}
			if m[2] != "" {
				day, _ := strconv.Atoi(m[2])
				d, err := makeDate(year, month, day, now.Location())
				if err != nil {
					return nil, nil, err
				}
				if !explicitYear && d.After(now) {
					d = d.AddDate(-1, 0, 0)
				}
				return singleDay(d)
			}
			from := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
			if !explicitYear && from.After(now) {
				from = from.AddDate(-1, 0, 0)
			}
			to := from.AddDate(0, 1, -1)
			return &from, &to, nil
		},
	},
	{
		name: "year",
		re:   regexp.MustCompile(`(?i)\b(?:in|during|from|of)\s+(\d{4})\b`),
		fn: func(p *Parser, m []string, now time.Time) (*time.Time, *time.Time, error) {
			year, _ := strconv.Atoi(m[1])
			from := time.Date(year, 1, 1, 0, 0, 0, 0, now.Location())
			to := time.Date(year, 12, 31, 0, 0, 0, 0, now.Location())
			return &from, &to, nil
		},
	},
}

// ParseRange finds the first recognizable date range in text. It returns
// nil with no error when the text holds no date expression, and
// ErrInvalidDate when it names an impossible date.
func (p *Parser) ParseRange(text string) (*Range, error) {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			from, to, err := r.fn(p, m, now)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.name, err)
			}
			if from == nil && to == nil {
				continue
			}
			return &Range{From: from, To: to, Phrase: strings.TrimSpace(m[r.phraseGroup])}, nil
		}
	}
	return nil, nil
}

// ParseRange is a convenience function that parses using default settings.
func ParseRange(text string) (*Range, error) {
	return NewParser().ParseRange(text)
}

// parseDateToken parses a date matched by dateToken.
func parseDateToken(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return makeDate(y, time.Month(mo), d, now.Location())
	}
	if m := monthDateRe.FindStringSubmatch(s); m != nil {
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		day := 1
		if m[2] != "" {
			day, _ = strconv.Atoi(m[2])
		}
		return makeDate(year, monthNumber(m[1]), day, now.Location())
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// makeDate builds a date and rejects values time.Date would normalize,
// such as February 31st.
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, error) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return t, nil
}

func monthNumber(name string) time.Month {
	name = strings.ToLower(name)
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()) == name {
			return m
		}
	}
	return 0
}

// singleDay returns a range covering one day. The upper bound is the next
// day because before: is exclusive in the target grammar.
func singleDay(d time.Time) (*time.Time, *time.Time, error) {
	next := d.AddDate(0, 0, 1)
	return &d, &next, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (p *Parser) startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) - int(p.WeekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseWeekday maps a config value like "monday" to a time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	if name == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
