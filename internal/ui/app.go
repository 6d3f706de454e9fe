// Package ui provides the Bubble Tea terminal front end for the record grid.
package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"fulfil/internal/engine"
	"fulfil/internal/orders"
	"fulfil/internal/prefs"
	"fulfil/internal/record"
	"fulfil/internal/shipping"
	"fulfil/internal/tickets"
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Engine    *engine.Engine
	Grid      *Grid
	Schema    record.Schema
	Resolver  record.LabelResolver
	Shipping  *shipping.Client
	Tickets   *tickets.Client
	Orders    *orders.Client
	Tick      time.Duration
	ThemeName string
	PrefsPath string
	Logger    *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	engine    *engine.Engine
	grid      *Grid
	fields    []record.FieldSpec
	resolver  record.LabelResolver
	shipping  *shipping.Client
	tickets   *tickets.Client
	orders    *orders.Client
	prefsPath string
	tick      time.Duration
	logger    *zap.Logger

	// UI state
	theme  Theme
	width  int
	height int
	ready  bool

	// Cursor
	cursorRow int
	cursorCol int

	// Data state
	snapshot    engine.Snapshot
	lastUpdated time.Time

	// Cell editor
	editor editorState

	// Label form
	form labelFormState

	// Detail pane
	showDetail bool
	detail     *tickets.Detail
	detailFor  string
	detailErr  string

	// Order peek
	showOrder bool
	order     *orders.Summary
	orderErr  string

	// Transient write-failure notice
	notice string

	// Help overlay
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick == 0 {
		tick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return Model{
		ctx:       ctx,
		engine:    opts.Engine,
		grid:      opts.Grid,
		fields:    opts.Schema.Fields(),
		resolver:  opts.Resolver,
		shipping:  opts.Shipping,
		tickets:   opts.Tickets,
		orders:    opts.Orders,
		prefsPath: prefsPath,
		tick:      tick,
		logger:    logger,
		theme:     GetTheme(themeName),
	}
}

// RestoreCursor moves the cursor to the given record if it is present. Used to
// reopen the grid on the ticket that was selected last session.
func (m *Model) RestoreCursor(recordID string) {
	if recordID == "" {
		return
	}
	if i := m.grid.RowIndex(recordID); i >= 0 {
		m.cursorRow = i
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.tick),
		listenResultsCmd(m.engine),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		// Reconcile runs here, on the update loop, because it repaints the
		// grid. The poller refreshes the store in the background; this pass
		// only folds the latest snapshot into the screen.
		m.applySnapshot(m.engine.Reconcile())
		return m, tickCmd(m.tick)

	case refreshedMsg:
		m.applySnapshot(m.engine.Reconcile())
		return m, nil

	case writeResultMsg:
		snap := m.engine.HandleWriteResult(engine.WriteResult(msg))
		m.applySnapshot(snap)
		return m, listenResultsCmd(m.engine)

	case resultsClosedMsg:
		return m, nil

	case detailMsg:
		if msg.ticketNo == m.detailFor {
			m.detail = msg.detail
			m.detailErr = msg.err
		}
		return m, nil

	case orderMsg:
		m.order = msg.summary
		m.orderErr = msg.err
		if m.form.active {
			m.form.prefill(msg.summary)
		}
		return m, nil

	case labelIssuedMsg:
		m.form.finish(msg.label, msg.err)
		return m, nil
	}

	return m, nil
}

// applySnapshot folds a reconciled snapshot into the model's own bookkeeping:
// header state, cursor bounds and failure notices. The grid itself was already
// repainted by the reconcile pass.
func (m *Model) applySnapshot(snap engine.Snapshot) {
	m.snapshot = snap
	if snap.HasData {
		m.lastUpdated = snap.LastUpdated
	}

	if notices := m.grid.TakeNotices(); len(notices) > 0 {
		m.notice = notices[len(notices)-1]
		for _, n := range notices {
			m.logger.Warn("write rolled back", zap.String("cell", n))
		}
	}

	if m.grid.Len() == 0 {
		m.cursorRow = 0
	} else if m.cursorRow >= m.grid.Len() {
		m.cursorRow = m.grid.Len() - 1
	}
	if m.cursorCol >= len(m.fields) {
		m.cursorCol = len(m.fields) - 1
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}
	if m.form.active {
		return m.renderLabelForm()
	}
	if m.showOrder {
		return m.renderOrderPeek()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	return b.String()
}

// selectedRecord returns the record under the cursor.
func (m Model) selectedRecord() (record.Record, bool) {
	return m.grid.Row(m.cursorRow)
}

// selectedField returns the field spec under the cursor.
func (m Model) selectedField() record.FieldSpec {
	if m.cursorCol < 0 || m.cursorCol >= len(m.fields) {
		return record.FieldSpec{}
	}
	return m.fields[m.cursorCol]
}

// savePrefs persists the theme and cursor position, degrading silently.
func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name}
	if rec, ok := m.selectedRecord(); ok {
		p.LastTicket = rec.ID
	}
	_ = prefs.Save(m.prefsPath, p)
}

// Messages

type tickMsg time.Time

type writeResultMsg engine.WriteResult

type resultsClosedMsg struct{}

type detailMsg struct {
	ticketNo string
	detail   *tickets.Detail
	err      string
}

type orderMsg struct {
	summary *orders.Summary
	err     string
}

type labelIssuedMsg struct {
	label *shipping.Label
	err   string
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func listenResultsCmd(e *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-e.Results()
		if !ok {
			return resultsClosedMsg{}
		}
		return writeResultMsg(res)
	}
}

func fetchDetailCmd(ctx context.Context, c *tickets.Client, ticketNo string) tea.Cmd {
	return func() tea.Msg {
		detail, err := c.FetchDetail(ctx, ticketNo)
		if err != nil {
			return detailMsg{ticketNo: ticketNo, err: err.Error()}
		}
		return detailMsg{ticketNo: ticketNo, detail: &detail}
	}
}

func fetchOrderCmd(ctx context.Context, c *orders.Client, orderNo string) tea.Cmd {
	return func() tea.Msg {
		summary, err := c.FetchSummary(ctx, orderNo)
		if err != nil {
			return orderMsg{err: err.Error()}
		}
		return orderMsg{summary: &summary}
	}
}

func createLabelCmd(ctx context.Context, c *shipping.Client, req shipping.LabelRequest) tea.Cmd {
	return func() tea.Msg {
		label, err := c.CreateLabel(ctx, req)
		if err != nil {
			return labelIssuedMsg{err: err.Error()}
		}
		return labelIssuedMsg{label: &label}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options, lastTicket string) error {
	m := New(opts)
	m.applySnapshot(m.engine.Reconcile())
	m.RestoreCursor(lastTicket)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
