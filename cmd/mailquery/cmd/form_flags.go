package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesm/mailquery/internal/compose"
)

// formFlags are the search form fields shared by compose and translate.
type formFlags struct {
	folder      string
	has         string
	fileName    string
	deliveredTo string
	boost       string
	after       string
	before      string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.folder, "folder", "", "restrict to a folder (e.g. Inbox)")
	cmd.Flags().StringVar(&f.has, "has", "", "attachment kind (e.g. pdf, spreadsheet)")
	cmd.Flags().StringVar(&f.fileName, "filename", "", "attachment file name")
	cmd.Flags().StringVar(&f.deliveredTo, "delivered-to", "", "address the message was delivered to")
	cmd.Flags().StringVar(&f.boost, "boost", "", "term to rank higher")
	cmd.Flags().StringVar(&f.after, "after", "", "picked range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.before, "before", "", "picked range end (YYYY-MM-DD)")
}

func (f *formFlags) reset() {
	*f = formFlags{}
}

// values builds the form submission for freeText and the flags.
func (f *formFlags) values(freeText string) (compose.FormValues, error) {
	v := compose.FormValues{
		FreeText:    freeText,
		Folder:      f.folder,
		HasKind:     f.has,
		FileName:    f.fileName,
		DeliveredTo: f.deliveredTo,
		BoostTerm:   f.boost,
	}
	var err error
	if v.DateRange.From, err = parsePickedDate("after", f.after); err != nil {
		return v, err
	}
	if v.DateRange.To, err = parsePickedDate("before", f.before); err != nil {
		return v, err
	}
	return v, nil
}

// parsePickedDate accepts YYYY-MM-DD or YYYY/MM/DD. Empty means unset.
func parsePickedDate(flag, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.ReplaceAll(s, "/", "-"))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q: expected YYYY-MM-DD", flag, s)
	}
	return &t, nil
}

// isBlank reports whether a submission has nothing to compose.
func isBlank(v compose.FormValues) bool {
	return strings.TrimSpace(v.FreeText) == "" && v.Folder == "" && v.HasKind == "" &&
		v.FileName == "" && v.DeliveredTo == "" && v.BoostTerm == "" &&
		v.DateRange.From == nil && v.DateRange.To == nil
}
