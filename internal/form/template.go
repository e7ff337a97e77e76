// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidTemplate is returned for template payloads that are not JSON.
var ErrInvalidTemplate = errors.New("invalid form template")

// FieldType is the input kind of a leaf field.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeEmail       FieldType = "email"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeTel         FieldType = "tel"
	TypePassword    FieldType = "password"
)

var knownTypes = map[FieldType]bool{
	TypeText: true, TypeTextarea: true, TypeSelect: true, TypeMultiselect: true,
	TypeEmail: true, TypeNumber: true, TypeDate: true, TypeTel: true, TypePassword: true,
}

// ParseFieldType normalizes a type name. Unknown names become TypeText.
func ParseFieldType(s string) FieldType {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "multi-select", "multi_select", "checkbox", "checkboxes":
		return TypeMultiselect
	case "dropdown", "radio":
		return TypeSelect
	}
	if knownTypes[t] {
		return t
	}
	return TypeText
}

// HasOptions reports whether the type picks from a fixed option list.
func (t FieldType) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiselect
}

// Option is a selectable value with its display label.
type Option struct {
	Value string
	Label string
}

// Entry is a template entry: a *Field or a *Group.
type Entry interface {
	entry()
	// Title is the entry's display label.
	Title() string
}

// Field is a leaf input.
type Field struct {
	Name        string
	Label       string
	Type        FieldType
	Placeholder string
	Options     []Option
}

func (*Field) entry() {}

// Title returns the field label.
func (f *Field) Title() string { return f.Label }

// OptionLabel returns the label for value, or value itself.
func (f *Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Group is a labelled set of entries.
type Group struct {
	Label   string
	Entries []Entry
}

func (*Group) entry() {}

// Title returns the group label.
func (g *Group) Title() string { return g.Label }

// Template is a parsed form template.
type Template struct {
	Title   string
	Entries []Entry
}

// Fields returns every leaf field in template order.
func (t *Template) Fields() []*Field {
	if t == nil {
		return nil
	}
	var out []*Field
	var walk func([]Entry)
	walk = func(entries []Entry) {
		for _, e := range entries {
			switch v := e.(type) {
			case *Field:
				out = append(out, v)
			case *Group:
				walk(v.Entries)
			}
		}
	}
	walk(t.Entries)
	return out
}

// Field returns the leaf named name, or nil.
func (t *Template) Field(name string) *Field {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Empty reports whether the template has no leaf fields.
func (t *Template) Empty() bool {
	return len(t.Fields()) == 0
}

// =============================================================================
// PARSING
// =============================================================================

// Parse decodes a template payload. Blank, null and field-less payloads
// yield (nil, nil): no form is requested. A payload that is itself a JSON
// string holding JSON is unwrapped once.
func Parse(raw string) (*Template, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, ErrInvalidTemplate
	}

	root := gjson.Parse(raw)
	if root.Type == gjson.String {
		inner := strings.TrimSpace(root.Str)
		if inner == "" {
			return nil, nil
		}
		if !gjson.Valid(inner) {
			return nil, fmt.Errorf("%w: string payload is not JSON", ErrInvalidTemplate)
		}
		root = gjson.Parse(inner)
	}

	tmpl := &Template{}
	switch {
	case root.IsArray():
		tmpl.Entries = parseEntries(root)
	case root.IsObject():
		tmpl.Title = firstString(root, "title", "label", "name")
		tmpl.Entries = parseEntries(root.Get("fields"))
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrInvalidTemplate)
	}

	if tmpl.Empty() {
		return nil, nil
	}
	return tmpl, nil
}

func parseEntries(list gjson.Result) []Entry {
	var entries []Entry
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		if sub := item.Get("fields"); sub.IsArray() {
			entries = append(entries, &Group{
				Label:   firstString(item, "label", "title", "name"),
				Entries: parseEntries(sub),
			})
			return true
		}
		if f := parseField(item); f != nil {
			entries = append(entries, f)
		}
		return true
	})
	return entries
}

func parseField(item gjson.Result) *Field {
	name := firstString(item, "name", "id", "key")
	label := firstString(item, "label", "title")
	if name == "" {
		name = label
	}
	if name == "" {
		return nil
	}
	if label == "" {
		label = name
	}

	f := &Field{
		Name:        name,
		Label:       label,
		Type:        ParseFieldType(item.Get("type").String()),
		Placeholder: item.Get("placeholder").String(),
	}
	item.Get("options").ForEach(func(_, opt gjson.Result) bool {
		switch {
		case opt.IsObject():
			value := firstString(opt, "value", "id", "key")
			text := firstString(opt, "label", "text", "name")
			if value == "" {
				value = text
			}
			if text == "" {
				text = value
			}
			if value != "" {
				f.Options = append(f.Options, Option{Value: value, Label: text})
			}
		case opt.Exists():
			if s := opt.String(); s != "" {
				f.Options = append(f.Options, Option{Value: s, Label: s})
			}
		}
		return true
	})
	return f
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
