package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/huh"

	"github.com/wesm/mailquery/internal/compose"
	"github.com/wesm/mailquery/internal/nlsearch"
)

var (
	folderOptions     = []string{"Inbox", "Sent", "Drafts", "Archive", "Spam", "Trash"}
	attachmentOptions = []string{"attachment", "pdf", "document", "spreadsheet", "presentation", "image"}
)

// selectOptions builds select options with a leading "any" entry that
// leaves the field empty.
func selectOptions(anyLabel string, values []string) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(anyLabel, "")}
	for _, v := range values {
		opts = append(opts, huh.NewOption(v, v))
	}
	return opts
}

func validateSingleTerm(s string) error {
	if strings.IndexFunc(strings.TrimSpace(s), unicode.IsSpace) >= 0 {
		return errors.New("a boost is a single term")
	}
	return nil
}

func validateDeliveredTo(s string) error {
	s = strings.TrimSpace(s)
	if s != "" && !strings.Contains(s, "@") {
		return fmt.Errorf("%q is not an address", s)
	}
	return nil
}

// searchForm is the interactive search form. Fields already set in v
// are shown as defaults.
func searchForm(v *compose.FormValues) *huh.Form {
	placeholder := ""
	if s := nlsearch.Suggestions(); len(s) > 0 {
		placeholder = s[0]
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Search").
				Description("Free text; dates and phrasings like \"unread emails\" are understood").
				Placeholder(placeholder).
				Value(&v.FreeText),
			huh.NewSelect[string]().
				Title("Folder").
				Options(selectOptions("Any folder", folderOptions)...).
				Value(&v.Folder),
			huh.NewSelect[string]().
				Title("Has attachment").
				Options(selectOptions("Any", attachmentOptions)...).
				Value(&v.HasKind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("File name").
				Value(&v.FileName),
			huh.NewInput().
				Title("Delivered to").
				Placeholder("me@example.com").
				Value(&v.DeliveredTo).
				Validate(validateDeliveredTo),
			huh.NewInput().
				Title("Boost term").
				Value(&v.BoostTerm).
				Validate(validateSingleTerm),
		),
	)
}

func runSearchForm(ctx context.Context, v *compose.FormValues) error {
	err := searchForm(v).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("search cancelled")
	}
	return err
}
