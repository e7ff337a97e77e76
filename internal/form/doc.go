// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package form implements orchestrator-driven forms.
//
// A response may carry a template describing fields to fill in. While a
// template is active, free-text input is suspended; the user fills every
// field and submits the answers, which travel back as template_fields.
//
// # Key Types
//
//   - Template: a title and an ordered list of entries
//   - Entry: either a *Field (leaf) or a *Group of further entries
//   - Form: a template plus the answers collected so far
//
// # Template Shape
//
// The template is either an array of entries or an object with "title" and
// "fields". An entry with a "fields" array is a group; everything else is a
// leaf with name, label, type, placeholder and options. Options may be plain
// strings or {value, label} objects. Unknown field types are treated as text.
//
// # Usage
//
//	tmpl, err := form.Parse(resp.TemplateFields)
//	f := form.New(tmpl)
//	f.Set("email", "me@example.com")
//	f.Toggle("topics", "billing")
//	if err := f.Validate(); err != nil { ... }
//	payload, _ := f.Serialize()
package form
