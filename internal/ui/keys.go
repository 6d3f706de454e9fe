package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"fulfil/internal/dbstore"
)

// refreshedMsg signals that a manual poll finished.
type refreshedMsg struct{}

func refreshCmd(m Model) tea.Cmd {
	return func() tea.Msg {
		// Poll only touches the record store, which has its own lock, so it
		// is safe off the update loop. The follow-up reconcile runs on it.
		_ = m.engine.Poll(m.ctx)
		return refreshedMsg{}
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.form.active {
		return m.handleFormKey(msg)
	}

	if m.editor.active {
		return m.handleEditorKey(msg)
	}

	if m.showOrder {
		switch msg.String() {
		case "esc", "o", "q":
			m.showOrder = false
			m.order = nil
			m.orderErr = ""
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.savePrefs()
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "T":
		// Cycle theme
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case "r":
		return m, refreshCmd(m)

	case "enter":
		return m.startEdit()

	case "L":
		return m.openLabelForm()

	case "o":
		return m.openOrderPeek()

	case "d", "tab":
		return m.toggleDetail()

	case "j", "down":
		return m.moveRow(1)
	case "k", "up":
		return m.moveRow(-1)
	case "g", "home":
		return m.moveRowTo(0)
	case "G", "end":
		return m.moveRowTo(m.grid.Len() - 1)

	case "h", "left":
		if m.cursorCol > 0 {
			m.cursorCol--
		}
		return m, nil
	case "l", "right":
		if m.cursorCol < len(m.fields)-1 {
			m.cursorCol++
		}
		return m, nil
	}

	return m, nil
}

func (m Model) moveRow(delta int) (tea.Model, tea.Cmd) {
	next := m.cursorRow + delta
	if next < 0 || next >= m.grid.Len() {
		return m, nil
	}
	return m.moveRowTo(next)
}

func (m Model) moveRowTo(row int) (tea.Model, tea.Cmd) {
	if row < 0 || row >= m.grid.Len() {
		return m, nil
	}
	changed := row != m.cursorRow
	m.cursorRow = row

	// Keep the detail pane tracking the selection.
	if m.showDetail && changed {
		if rec, ok := m.selectedRecord(); ok {
			return m, m.requestDetail(rec.ID)
		}
	}
	return m, nil
}

func (m Model) toggleDetail() (tea.Model, tea.Cmd) {
	m.showDetail = !m.showDetail
	if !m.showDetail {
		m.detail = nil
		m.detailFor = ""
		m.detailErr = ""
		return m, nil
	}
	if rec, ok := m.selectedRecord(); ok {
		return m, m.requestDetail(rec.ID)
	}
	return m, nil
}

// requestDetail marks the pane as loading and fetches the conversation thread.
func (m *Model) requestDetail(ticketNo string) tea.Cmd {
	m.detail = nil
	m.detailErr = ""
	m.detailFor = ticketNo
	if m.tickets == nil {
		m.detailErr = "helpdesk api not configured"
		return nil
	}
	return fetchDetailCmd(m.ctx, m.tickets, ticketNo)
}

func (m Model) openOrderPeek() (tea.Model, tea.Cmd) {
	rec, ok := m.selectedRecord()
	if !ok {
		return m, nil
	}
	orderNo := rec.Value(dbstore.FieldOrder)
	if orderNo == "" {
		m.notice = "ticket has no linked order"
		return m, nil
	}
	if m.orders == nil {
		m.notice = "commerce api not configured"
		return m, nil
	}
	m.showOrder = true
	m.order = nil
	m.orderErr = ""
	return m, fetchOrderCmd(m.ctx, m.orders, orderNo)
}
