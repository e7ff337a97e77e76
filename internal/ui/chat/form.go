// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vachat/internal/form"
	"github.com/jeranaias/vachat/internal/ui/styles"
)

// formEditor edits the controller's active form in place.
type formEditor struct {
	form   *form.Form
	fields []*form.Field
	focus  int

	inputs    map[string]*textinput.Model
	areas     map[string]*textarea.Model
	optCursor map[string]int
}

func newFormEditor(f *form.Form, width int) *formEditor {
	e := &formEditor{
		form:      f,
		fields:    f.Template().Fields(),
		inputs:    make(map[string]*textinput.Model),
		areas:     make(map[string]*textarea.Model),
		optCursor: make(map[string]int),
	}
	for _, field := range e.fields {
		switch {
		case field.Type == form.TypeTextarea:
			ta := textarea.New()
			ta.Placeholder = field.Placeholder
			ta.ShowLineNumbers = false
			ta.SetHeight(3)
			ta.SetWidth(clampWidth(width - 6))
			ta.SetValue(f.Value(field.Name))
			e.areas[field.Name] = &ta
		case field.Type.HasOptions():
		default:
			ti := textinput.New()
			ti.Placeholder = field.Placeholder
			ti.Prompt = ""
			ti.Width = clampWidth(width - 6)
			if field.Type == form.TypePassword {
				ti.EchoMode = textinput.EchoPassword
			}
			ti.SetValue(f.Value(field.Name))
			e.inputs[field.Name] = &ti
		}
	}
	e.setFocus(0)
	return e
}

func clampWidth(w int) int {
	if w < 20 {
		return 20
	}
	if w > 72 {
		return 72
	}
	return w
}

func (e *formEditor) focused() *form.Field {
	if e.focus < 0 || e.focus >= len(e.fields) {
		return nil
	}
	return e.fields[e.focus]
}

func (e *formEditor) setFocus(i int) {
	if len(e.fields) == 0 {
		return
	}
	i = (i + len(e.fields)) % len(e.fields)
	for _, ti := range e.inputs {
		ti.Blur()
	}
	for _, ta := range e.areas {
		ta.Blur()
	}
	e.focus = i
	name := e.fields[i].Name
	if ti, ok := e.inputs[name]; ok {
		ti.Focus()
	}
	if ta, ok := e.areas[name]; ok {
		ta.Focus()
	}
}

// handleKey routes one key. submit reports that the user asked to send.
func (e *formEditor) handleKey(msg tea.KeyMsg, keys KeyMap) (submit bool, cmd tea.Cmd) {
	field := e.focused()
	if field == nil {
		return key.Matches(msg, keys.SubmitForm, keys.Submit), nil
	}
	_, isArea := e.areas[field.Name]

	switch {
	case key.Matches(msg, keys.SubmitForm):
		return true, nil
	case key.Matches(msg, keys.Submit) && !isArea:
		return true, nil
	case msg.String() == "tab" || msg.String() == "shift+tab":
		if msg.String() == "tab" {
			e.setFocus(e.focus + 1)
		} else {
			e.setFocus(e.focus - 1)
		}
		return false, nil
	case !isArea && key.Matches(msg, keys.NextField):
		e.setFocus(e.focus + 1)
		return false, nil
	case !isArea && key.Matches(msg, keys.PrevField):
		e.setFocus(e.focus - 1)
		return false, nil
	}

	if field.Type.HasOptions() {
		e.handleOptionKey(field, msg, keys)
		return false, nil
	}
	if ti, ok := e.inputs[field.Name]; ok {
		updated, c := ti.Update(msg)
		*ti = updated
		_ = e.form.Set(field.Name, ti.Value())
		return false, c
	}
	if ta, ok := e.areas[field.Name]; ok {
		updated, c := ta.Update(msg)
		*ta = updated
		_ = e.form.Set(field.Name, ta.Value())
		return false, c
	}
	return false, nil
}

func (e *formEditor) handleOptionKey(field *form.Field, msg tea.KeyMsg, keys KeyMap) {
	if len(field.Options) == 0 {
		return
	}
	cur := e.optCursor[field.Name]
	switch {
	case key.Matches(msg, keys.NextOption):
		cur = (cur + 1) % len(field.Options)
	case key.Matches(msg, keys.PrevOption):
		cur = (cur - 1 + len(field.Options)) % len(field.Options)
	case key.Matches(msg, keys.Toggle):
		opt := field.Options[cur]
		if field.Type == form.TypeMultiselect {
			_ = e.form.Toggle(field.Name, opt.Value)
		} else {
			_ = e.form.Set(field.Name, opt.Value)
		}
	default:
		return
	}
	e.optCursor[field.Name] = cur
	// A single select follows the cursor.
	if field.Type == form.TypeSelect {
		_ = e.form.Set(field.Name, field.Options[cur].Value)
	}
}

// view renders the form. submitLabel and incomplete are localized.
func (e *formEditor) view(theme *styles.Theme, submitLabel, incomplete string) string {
	var b strings.Builder
	tmpl := e.form.Template()
	if tmpl.Title != "" {
		b.WriteString(theme.Title.Render(tmpl.Title))
		b.WriteString("\n")
	}
	e.renderEntries(&b, theme, tmpl.Entries, 0)

	b.WriteString("\n")
	b.WriteString(theme.Chip.Render(submitLabel + " (Enter / C-s)"))
	if e.form.Invalid {
		b.WriteString("  ")
		b.WriteString(theme.Error.Render(styles.StatusIndicators.Error + " " + incomplete))
	}
	return b.String()
}

func (e *formEditor) renderEntries(b *strings.Builder, theme *styles.Theme, entries []form.Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, entry := range entries {
		switch v := entry.(type) {
		case *form.Group:
			b.WriteString(indent + theme.Subtitle.Render(v.Label) + "\n")
			e.renderEntries(b, theme, v.Entries, depth+1)
		case *form.Field:
			e.renderField(b, theme, v, indent)
		}
	}
}

func (e *formEditor) renderField(b *strings.Builder, theme *styles.Theme, field *form.Field, indent string) {
	focused := e.focused() == field
	label := field.Label
	if label == "" {
		label = field.Name
	}
	marker := "  "
	if focused {
		marker = "> "
		label = theme.Selected.Render(label)
	}
	if e.form.IsMissing(field.Name) {
		label += " " + theme.Error.Render("*")
	}
	b.WriteString(indent + marker + label + "\n")

	switch {
	case field.Type.HasOptions():
		cur := e.optCursor[field.Name]
		var opts []string
		for i, opt := range field.Options {
			box := "( )"
			if e.form.Selected(field.Name, opt.Value) {
				box = "(x)"
			}
			if field.Type == form.TypeMultiselect {
				box = "[" + box[1:2] + "]"
			}
			text := box + " " + opt.Label
			if focused && i == cur {
				text = theme.Selected.Render(text)
			}
			opts = append(opts, text)
		}
		b.WriteString(indent + "    " + strings.Join(opts, "  ") + "\n")
	default:
		if ti, ok := e.inputs[field.Name]; ok {
			b.WriteString(indent + "    " + ti.View() + "\n")
		}
		if ta, ok := e.areas[field.Name]; ok {
			b.WriteString(indentBlock(ta.View(), indent+"    ") + "\n")
		}
	}
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
