// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/vachat/internal/model"
)

// ErrIncomplete is returned by Validate when a field is left empty.
var ErrIncomplete = errors.New("form incomplete")

// ErrUnknownField is returned when setting a value on a missing field.
var ErrUnknownField = errors.New("unknown form field")

// IncompleteError lists the fields that still need a value.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("form incomplete: %s", strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrIncomplete.
func (e *IncompleteError) Unwrap() error {
	return ErrIncomplete
}

// Form is a template plus the answers collected so far. Not safe for
// concurrent use.
type Form struct {
	tmpl    *Template
	answers map[string][]string

	// Invalid is set by a failed Validate and cleared by a passing one.
	Invalid bool
	missing map[string]bool
}

// New creates a form for tmpl with no answers.
func New(tmpl *Template) *Form {
	return &Form{tmpl: tmpl, answers: make(map[string][]string), missing: make(map[string]bool)}
}

// Template returns the form's template.
func (f *Form) Template() *Template {
	return f.tmpl
}

// Set stores a single answer, replacing any earlier value.
func (f *Form) Set(name, value string) error {
	field := f.tmpl.Field(name)
	if field == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	f.answers[name] = []string{value}
	return nil
}

// Toggle adds value to a multiselect answer, or removes it when present.
func (f *Form) Toggle(name, value string) error {
	field := f.tmpl.Field(name)
	if field == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	current := f.answers[name]
	for i, v := range current {
		if v == value {
			f.answers[name] = append(current[:i:i], current[i+1:]...)
			return nil
		}
	}
	f.answers[name] = append(current, value)
	return nil
}

// Value returns the single answer for name.
func (f *Form) Value(name string) string {
	if v := f.answers[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns the answers for name.
func (f *Form) Values(name string) []string {
	return append([]string(nil), f.answers[name]...)
}

// Selected reports whether value is chosen for a multiselect.
func (f *Form) Selected(name, value string) bool {
	for _, v := range f.answers[name] {
		if v == value {
			return true
		}
	}
	return false
}

// IsMissing reports whether the last Validate flagged name.
func (f *Form) IsMissing(name string) bool {
	return f.missing[name]
}

// Validate checks that every leaf has a non-empty answer. Multiselects need
// at least one value. On failure Invalid is set and an *IncompleteError is
// returned.
func (f *Form) Validate() error {
	f.missing = make(map[string]bool)
	var missing []string
	for _, field := range f.tmpl.Fields() {
		if !f.answered(field) {
			missing = append(missing, field.Name)
			f.missing[field.Name] = true
		}
	}
	f.Invalid = len(missing) > 0
	if f.Invalid {
		return &IncompleteError{Missing: missing}
	}
	return nil
}

func (f *Form) answered(field *Field) bool {
	vals := f.answers[field.Name]
	if field.Type == TypeMultiselect {
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				return true
			}
		}
		return false
	}
	return len(vals) > 0 && strings.TrimSpace(vals[0]) != ""
}

// Serialize encodes the answers as a JSON array of single-key objects in
// template order. Multiselect answers are arrays, everything else strings.
func (f *Form) Serialize() ([]byte, error) {
	fields := f.tmpl.Fields()
	out := make([]map[string]interface{}, 0, len(fields))
	for _, field := range fields {
		if field.Type == TypeMultiselect {
			vals := f.Values(field.Name)
			if vals == nil {
				vals = []string{}
			}
			out = append(out, map[string]interface{}{field.Name: vals})
			continue
		}
		out = append(out, map[string]interface{}{field.Name: f.Value(field.Name)})
	}
	return json.Marshal(out)
}

// AnswerFields returns the answers with labels and option labels for the
// message log.
func (f *Form) AnswerFields() []model.AnswerField {
	var out []model.AnswerField
	for _, field := range f.tmpl.Fields() {
		vals := f.Values(field.Name)
		if field.Type != TypeMultiselect && len(vals) > 1 {
			vals = vals[:1]
		}
		display := make([]string, len(vals))
		for i, v := range vals {
			display[i] = field.OptionLabel(v)
		}
		out = append(out, model.AnswerField{
			Name:    field.Name,
			Label:   field.Label,
			Values:  vals,
			Display: display,
		})
	}
	return out
}

// DisplayText renders the answers as "Label: value" lines.
func (f *Form) DisplayText() string {
	return FormatAnswers(f.AnswerFields())
}

// FormatAnswers renders answer fields as "Label: value" lines.
func FormatAnswers(fields []model.AnswerField) string {
	lines := make([]string, 0, len(fields))
	for _, a := range fields {
		lines = append(lines, a.Label+": "+strings.Join(a.Display, ", "))
	}
	return strings.Join(lines, "\n")
}
