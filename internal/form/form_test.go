// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactTemplate = `{
	"title": "Contact details",
	"fields": [
		{"name": "name", "label": "Full name", "type": "text", "placeholder": "Jane Doe"},
		{"label": "Preferences", "fields": [
			{"name": "channel", "label": "Channel", "type": "select",
			 "options": [{"value": "mail", "label": "E-mail"}, {"value": "phone", "label": "Phone"}]},
			{"name": "topics", "label": "Topics", "type": "multiselect",
			 "options": ["billing", "support", "sales"]}
		]},
		{"name": "notes", "label": "Notes", "type": "rich-editor"}
	]
}`

func mustParse(t *testing.T, raw string) *Template {
	t.Helper()
	tmpl, err := Parse(raw)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	return tmpl
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse_ObjectWithGroups(t *testing.T) {
	tmpl := mustParse(t, contactTemplate)
	assert.Equal(t, "Contact details", tmpl.Title)
	require.Len(t, tmpl.Entries, 3)

	_, isGroup := tmpl.Entries[1].(*Group)
	assert.True(t, isGroup, "entry with fields[] should be a group")
	assert.Equal(t, "Preferences", tmpl.Entries[1].Title())

	fields := tmpl.Fields()
	require.Len(t, fields, 4)
	names := []string{fields[0].Name, fields[1].Name, fields[2].Name, fields[3].Name}
	assert.Equal(t, []string{"name", "channel", "topics", "notes"}, names)

	assert.Equal(t, TypeSelect, fields[1].Type)
	assert.Equal(t, "E-mail", fields[1].OptionLabel("mail"))
	assert.Equal(t, TypeMultiselect, fields[2].Type)
	assert.Equal(t, []Option{{"billing", "billing"}, {"support", "support"}, {"sales", "sales"}}, fields[2].Options)
	assert.Equal(t, TypeText, fields[3].Type, "unknown type falls back to text")
}

func TestParse_Array(t *testing.T) {
	tmpl := mustParse(t, `[{"name":"email","label":"E-mail","type":"email"}]`)
	assert.Equal(t, "", tmpl.Title)
	require.Len(t, tmpl.Fields(), 1)
	assert.Equal(t, TypeEmail, tmpl.Fields()[0].Type)
}

func TestParse_StringWrapped(t *testing.T) {
	tmpl := mustParse(t, `"[{\"name\":\"city\",\"label\":\"City\"}]"`)
	assert.Equal(t, "city", tmpl.Fields()[0].Name)
}

func TestParse_NoForm(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "[]", "{}", `{"fields":[]}`, `""`} {
		tmpl, err := Parse(raw)
		assert.NoError(t, err, raw)
		assert.Nil(t, tmpl, raw)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("{broken")
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = Parse("42")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestParseFieldType(t *testing.T) {
	tests := map[string]FieldType{
		"TEXTAREA":     TypeTextarea,
		"multi-select": TypeMultiselect,
		"dropdown":     TypeSelect,
		"date":         TypeDate,
		"slider":       TypeText,
		"":             TypeText,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseFieldType(in), in)
	}
}

// =============================================================================
// ANSWER TESTS
// =============================================================================

func TestValidate_EmptyFieldBlocks(t *testing.T) {
	f := New(mustParse(t, contactTemplate))
	require.NoError(t, f.Set("name", "Ana"))
	require.NoError(t, f.Set("channel", "mail"))
	require.NoError(t, f.Set("notes", "   "))

	err := f.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncomplete))
	assert.True(t, f.Invalid)

	var inc *IncompleteError
	require.True(t, errors.As(err, &inc))
	assert.Equal(t, []string{"topics", "notes"}, inc.Missing)
	assert.True(t, f.IsMissing("topics"))
	assert.False(t, f.IsMissing("name"))
}

func TestValidate_EmptyMultiselectAfterToggleOff(t *testing.T) {
	f := New(mustParse(t, `[{"name":"tags","label":"Tags","type":"multiselect","options":["a","b"]}]`))
	require.NoError(t, f.Toggle("tags", "a"))
	require.NoError(t, f.Toggle("tags", "a"))
	assert.Empty(t, f.Values("tags"))
	assert.Error(t, f.Validate())

	require.NoError(t, f.Toggle("tags", "b"))
	assert.NoError(t, f.Validate())
	assert.False(t, f.Invalid)
}

func TestSet_UnknownField(t *testing.T) {
	f := New(mustParse(t, contactTemplate))
	assert.ErrorIs(t, f.Set("nope", "x"), ErrUnknownField)
	assert.ErrorIs(t, f.Toggle("nope", "x"), ErrUnknownField)
}

func TestSerialize_OrderAndShape(t *testing.T) {
	f := New(mustParse(t, contactTemplate))
	require.NoError(t, f.Set("notes", "call after 5"))
	require.NoError(t, f.Set("name", "Ana"))
	require.NoError(t, f.Toggle("topics", "support"))
	require.NoError(t, f.Toggle("topics", "billing"))
	require.NoError(t, f.Set("channel", "phone"))

	data, err := f.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"name":"Ana"},{"channel":"phone"},{"topics":["support","billing"]},{"notes":"call after 5"}]`,
		string(data))
}

func TestDisplayText_UsesLabels(t *testing.T) {
	f := New(mustParse(t, contactTemplate))
	require.NoError(t, f.Set("name", "Ana"))
	require.NoError(t, f.Set("channel", "mail"))
	require.NoError(t, f.Toggle("topics", "sales"))
	require.NoError(t, f.Set("notes", "n/a"))

	want := "Full name: Ana\nChannel: E-mail\nTopics: sales\nNotes: n/a"
	assert.Equal(t, want, f.DisplayText())

	answers := f.AnswerFields()
	require.Len(t, answers, 4)
	assert.Equal(t, []string{"mail"}, answers[1].Values)
	assert.Equal(t, []string{"E-mail"}, answers[1].Display)
}
