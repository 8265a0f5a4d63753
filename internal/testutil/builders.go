package testutil

import (
	"time"

	"github.com/wesm/mailquery/internal/compose"
)

// FormBuilder builds compose.FormValues for tests.
type FormBuilder struct {
	v compose.FormValues
}

// NewForm starts a submission with the given free text.
func NewForm(freeText string) *FormBuilder {
	return &FormBuilder{v: compose.FormValues{FreeText: freeText}}
}

func (b *FormBuilder) InFolder(folder string) *FormBuilder {
	b.v.Folder = folder
	return b
}

func (b *FormBuilder) WithAttachment(kind string) *FormBuilder {
	b.v.HasKind = kind
	return b
}

func (b *FormBuilder) WithFileName(name string) *FormBuilder {
	b.v.FileName = name
	return b
}

func (b *FormBuilder) DeliveredTo(addr string) *FormBuilder {
	b.v.DeliveredTo = addr
	return b
}

func (b *FormBuilder) Boost(term string) *FormBuilder {
	b.v.BoostTerm = term
	return b
}

// Between sets a picked date range; a zero time leaves that end open.
func (b *FormBuilder) Between(from, to time.Time) *FormBuilder {
	var r compose.DateRange
	if !from.IsZero() {
		r.From = &from
	}
	if !to.IsZero() {
		r.To = &to
	}
	b.v.DateRange = r
	return b
}

func (b *FormBuilder) Build() compose.FormValues {
	return b.v
}
