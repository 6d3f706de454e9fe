package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fulfil/internal/dbstore"
	"fulfil/internal/record"
)

// renderContent renders the grid, with the detail pane alongside when open.
func (m Model) renderContent() string {
	contentHeight := m.height - 2 // header + command bar

	if m.grid.Len() == 0 {
		msg := "No records"
		if m.snapshot.LastError != nil {
			msg = "Waiting for first successful poll..."
		}
		empty := m.theme.Styles().MutedText.Render(msg)
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, empty)
	}

	if !m.showDetail {
		gridPane := m.renderTitledBox(m.gridTitle(), m.renderGrid(m.width-2, contentHeight-2), m.width, contentHeight, true)
		return gridPane
	}

	// Split layout: grid on the left, ticket detail on the right.
	gridWidth := m.width * 60 / 100
	detailWidth := m.width - gridWidth

	gridPane := m.renderTitledBox(m.gridTitle(), m.renderGrid(gridWidth-2, contentHeight-2), gridWidth, contentHeight, true)
	detailPane := m.renderTitledBox("Ticket", m.renderDetail(detailWidth-4), detailWidth, contentHeight, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, gridPane, detailPane)
}

func (m Model) gridTitle() string {
	return fmt.Sprintf("Tickets (%d)", m.grid.Len())
}

// columnWidths assigns a width per field. Fixed-width types get their natural
// size; the first free-text column absorbs whatever is left.
func (m Model) columnWidths(total int) []int {
	widths := make([]int, len(m.fields))
	flexIdx := -1
	used := 0
	for i, f := range m.fields {
		var w int
		switch f.Type {
		case record.FieldDate:
			w = 11
		case record.FieldBool:
			w = 7
		case record.FieldEnum:
			w = 11
		case record.FieldRef:
			w = 14
		default:
			if flexIdx == -1 && f.Editable {
				flexIdx = i
				w = 0
			} else {
				w = 10
			}
		}
		if w > 0 && w < len(f.Name)+1 {
			w = len(f.Name) + 1
		}
		widths[i] = w
		used += w + 1 // column gap
	}

	if flexIdx == -1 {
		return widths
	}
	flex := total - used
	if flex < 12 {
		flex = 12
	}
	widths[flexIdx] = flex
	return widths
}

// renderGrid renders the column headers and the visible window of rows.
func (m Model) renderGrid(width, height int) string {
	styles := m.theme.Styles()
	widths := m.columnWidths(width)

	var lines []string

	// Header row
	var headerCells []string
	for i, f := range m.fields {
		name := padRight(f.Name, widths[i])
		if i == m.cursorCol {
			headerCells = append(headerCells, styles.AccentText.Bold(true).Render(name))
		} else {
			headerCells = append(headerCells, styles.MutedText.Bold(true).Render(name))
		}
	}
	lines = append(lines, strings.Join(headerCells, " "))

	// Visible row window around the cursor.
	rowsHeight := height - 1
	if rowsHeight < 1 {
		rowsHeight = 1
	}
	top := 0
	if m.cursorRow >= rowsHeight {
		top = m.cursorRow - rowsHeight + 1
	}

	for i := top; i < m.grid.Len() && i < top+rowsHeight; i++ {
		rec, _ := m.grid.Row(i)
		lines = append(lines, m.renderRow(rec, i, widths))
	}

	return strings.Join(lines, "\n")
}

// renderRow renders one record as a line of styled cells.
func (m Model) renderRow(rec record.Record, rowIdx int, widths []int) string {
	styles := m.theme.Styles()

	cells := make([]string, 0, len(m.fields))
	for col, f := range m.fields {
		text := padRight(m.displayValue(rec, f), widths[col])
		pending := m.grid.IsPending(rec.ID, f.Name)

		var style lipgloss.Style
		switch {
		case rowIdx == m.cursorRow && col == m.cursorCol:
			style = styles.Selected
			if pending {
				style = style.Italic(true)
			}
		case pending:
			style = styles.PendingText
		case f.Name == dbstore.FieldStatus:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(styles.StatusColor(rec.Value(f.Name))))
		case f.Name == dbstore.FieldUrgent && rec.Value(f.Name) == "true":
			style = styles.DangerText
		case rowIdx == m.cursorRow:
			style = styles.Text
		default:
			style = styles.MutedText
		}

		cells = append(cells, style.Render(text))
	}

	return strings.Join(cells, " ")
}

// displayValue maps a stored value to its display form.
func (m Model) displayValue(rec record.Record, f record.FieldSpec) string {
	value := rec.Value(f.Name)
	switch f.Type {
	case record.FieldRef:
		if label, ok := m.resolver.Label(f.Name, value); ok {
			return label
		}
		return value
	case record.FieldBool:
		if value == "true" {
			return "yes"
		}
		return ""
	default:
		return firstLine(value)
	}
}

// renderTitledBox renders content in a box with the title embedded in the top
// border: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.SurfaceAlt
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := width - 2
	titleLen := lipgloss.Width(title)
	leftPad := (innerWidth - titleLen - 2) / 2
	if leftPad < 0 {
		leftPad = 0
	}
	rightPad := innerWidth - titleLen - 2 - leftPad
	if rightPad < 0 {
		rightPad = 0
	}

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2

	var paddedLines []string
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}
