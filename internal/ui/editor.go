package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fulfil/internal/record"
)

// editorState holds the in-progress edit of one cell. Text and date fields
// get a free-form input; enum, bool and reference fields cycle a fixed set of
// choices so the user can never type an invalid value.
type editorState struct {
	active    bool
	recordID  string
	field     record.FieldSpec
	input     textinput.Model
	options   []string
	optionIdx int
	err       string
}

func (e editorState) usesOptions() bool {
	return len(e.options) > 0
}

// startEdit opens the editor on the cell under the cursor.
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	rec, ok := m.selectedRecord()
	if !ok {
		return m, nil
	}
	spec := m.selectedField()
	if spec.Name == "" {
		return m, nil
	}
	if !spec.Editable {
		m.notice = fmt.Sprintf("%s is read-only", spec.Name)
		return m, nil
	}

	current := rec.Value(spec.Name)
	state := editorState{
		active:   true,
		recordID: rec.ID,
		field:    spec,
	}

	switch spec.Type {
	case record.FieldEnum:
		state.options = spec.Options
	case record.FieldBool:
		state.options = []string{"false", "true"}
	case record.FieldRef:
		if r, ok := m.resolver.(*record.StaticResolver); ok {
			state.options = r.Labels(spec.Name)
		}
		// Cycle labels, but the cell holds the id.
		if label, ok := m.resolver.Label(spec.Name, current); ok {
			current = label
		}
	}

	if state.usesOptions() {
		for i, opt := range state.options {
			if opt == current {
				state.optionIdx = i
				break
			}
		}
	} else {
		input := textinput.New()
		input.SetValue(current)
		input.CursorEnd()
		input.Focus()
		if spec.Type == record.FieldDate {
			input.Placeholder = record.DateLayout
		}
		state.input = input
	}

	m.editor = state
	return m, nil
}

// handleEditorKey processes keys while the editor is open.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editor = editorState{}
		return m, nil

	case "enter":
		return m.commitEdit()
	}

	if m.editor.usesOptions() {
		switch msg.String() {
		case "left", "h", "up", "k":
			m.editor.optionIdx--
			if m.editor.optionIdx < 0 {
				m.editor.optionIdx = len(m.editor.options) - 1
			}
		case "right", "l", "down", "j", " ", "tab":
			m.editor.optionIdx = (m.editor.optionIdx + 1) % len(m.editor.options)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.editor.input, cmd = m.editor.input.Update(msg)
	return m, cmd
}

// commitEdit hands the edit to the engine. The engine paints the new value
// and pending mark before the write is dispatched, so the cell updates on the
// very next render.
func (m Model) commitEdit() (tea.Model, tea.Cmd) {
	ed := m.editor

	var value string
	if ed.usesOptions() {
		value = ed.options[ed.optionIdx]
		if ed.field.Type == record.FieldRef {
			id, ok := m.resolver.ID(ed.field.Name, value)
			if !ok {
				m.editor.err = fmt.Sprintf("unknown %s %q", ed.field.Name, value)
				return m, nil
			}
			value = id
		}
	} else {
		value = strings.TrimSpace(ed.input.Value())
	}

	if err := m.engine.OnUserEdit(m.ctx, ed.recordID, ed.field.Name, value); err != nil {
		// Keep the editor open so the value can be corrected.
		m.editor.err = err.Error()
		return m, nil
	}

	m.editor = editorState{}
	return m, nil
}

// renderEditorBar renders the edit line shown in place of the command bar.
func (m Model) renderEditorBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	ed := m.editor

	label := fmt.Sprintf("%s · %s", ed.recordID, ed.field.Name)
	parts := []string{
		bg.Render("EDIT", styles.AccentText.Bold(true)),
		bg.Render(label, styles.MutedText),
	}

	if ed.usesOptions() {
		for i, opt := range ed.options {
			if i == ed.optionIdx {
				parts = append(parts, styles.Selected.Render(" "+opt+" "))
			} else {
				parts = append(parts, bg.Render(opt, styles.FaintText))
			}
		}
	} else {
		parts = append(parts, ed.input.View())
	}

	if ed.err != "" {
		parts = append(parts, bg.Render("✗ "+truncate(ed.err, 60), styles.DangerText))
	}

	parts = append(parts, bg.Render("enter:save esc:cancel", styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}
