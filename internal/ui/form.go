package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fulfil/internal/dbstore"
	"fulfil/internal/orders"
	"fulfil/internal/shipping"
)

// Field order in the label form.
const (
	formName = iota
	formAddress1
	formAddress2
	formCity
	formPostcode
	formCountry
	formWeight
	formFieldCount
)

var formLabels = [formFieldCount]string{
	"Name", "Address 1", "Address 2", "City", "Postcode", "Country", "Weight (kg)",
}

// labelFormState is the shipping-label form for the selected ticket. Address
// fields are prefilled from the linked order when the commerce lookup returns.
type labelFormState struct {
	active     bool
	ticketNo   string
	orderNo    string
	inputs     [formFieldCount]textinput.Model
	focus      int
	submitting bool
	tracking   string
	err        string
}

func (f *labelFormState) prefill(summary *orders.Summary) {
	if summary == nil {
		return
	}
	set := func(idx int, value string) {
		if f.inputs[idx].Value() == "" {
			f.inputs[idx].SetValue(value)
		}
	}
	set(formName, summary.CustomerName)
	set(formAddress1, summary.AddressLine1)
	set(formAddress2, summary.AddressLine2)
	set(formCity, summary.City)
	set(formPostcode, summary.Postcode)
	set(formCountry, summary.Country)
}

func (f *labelFormState) finish(label *shipping.Label, err string) {
	f.submitting = false
	if err != "" {
		f.err = err
		return
	}
	if label != nil {
		f.tracking = label.TrackingNumber
	}
}

// openLabelForm opens the form for the selected ticket and kicks off the
// order lookup for address prefill.
func (m Model) openLabelForm() (tea.Model, tea.Cmd) {
	rec, ok := m.selectedRecord()
	if !ok {
		return m, nil
	}
	if m.shipping == nil {
		m.notice = "carrier api not configured"
		return m, nil
	}

	form := labelFormState{
		active:   true,
		ticketNo: rec.ID,
		orderNo:  rec.Value(dbstore.FieldOrder),
	}
	for i := range form.inputs {
		input := textinput.New()
		input.Prompt = ""
		input.CharLimit = 80
		form.inputs[i] = input
	}
	form.inputs[formWeight].Placeholder = "0.5"
	form.inputs[formCountry].CharLimit = 2
	form.inputs[formName].Focus()
	m.form = form

	if form.orderNo != "" && m.orders != nil {
		return m, fetchOrderCmd(m.ctx, m.orders, form.orderNo)
	}
	return m, nil
}

// handleFormKey processes keys while the label form is open.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Once a label is issued the form is display-only.
	if m.form.tracking != "" {
		m.form = labelFormState{}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.form = labelFormState{}
		return m, nil

	case "tab", "down":
		m.moveFormFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.moveFormFocus(-1)
		return m, nil

	case "enter":
		if m.form.focus < formFieldCount-1 {
			m.moveFormFocus(1)
			return m, nil
		}
		return m.submitLabelForm()

	case "ctrl+s":
		return m.submitLabelForm()
	}

	if m.form.submitting {
		return m, nil
	}

	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return m, cmd
}

func (m *Model) moveFormFocus(delta int) {
	f := &m.form
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + formFieldCount) % formFieldCount
	f.inputs[f.focus].Focus()
}

func (m Model) submitLabelForm() (tea.Model, tea.Cmd) {
	f := &m.form
	if f.submitting {
		return m, nil
	}

	weight, err := strconv.ParseFloat(strings.TrimSpace(f.inputs[formWeight].Value()), 64)
	if err != nil || weight <= 0 {
		f.err = "weight must be a positive number"
		return m, nil
	}

	req := shipping.LabelRequest{
		OrderNo:      f.orderNo,
		Name:         strings.TrimSpace(f.inputs[formName].Value()),
		AddressLine1: strings.TrimSpace(f.inputs[formAddress1].Value()),
		AddressLine2: strings.TrimSpace(f.inputs[formAddress2].Value()),
		City:         strings.TrimSpace(f.inputs[formCity].Value()),
		Postcode:     strings.TrimSpace(f.inputs[formPostcode].Value()),
		Country:      strings.ToUpper(strings.TrimSpace(f.inputs[formCountry].Value())),
		WeightKG:     weight,
	}
	if req.Name == "" || req.AddressLine1 == "" {
		f.err = "name and address are required"
		return m, nil
	}

	f.submitting = true
	f.err = ""
	return m, createLabelCmd(m.ctx, m.shipping, req)
}

// renderLabelForm renders the form as a centered modal.
func (m Model) renderLabelForm() string {
	styles := m.theme.Styles()
	f := m.form

	var b strings.Builder
	title := fmt.Sprintf("Shipping Label · %s", f.ticketNo)
	if f.orderNo != "" {
		title += " · " + f.orderNo
	}
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	if f.tracking != "" {
		b.WriteString(styles.SuccessText.Render("Label issued: " + f.tracking))
		b.WriteString("\n\n")
		b.WriteString(styles.FaintText.Render("press any key to close"))
	} else {
		for i := 0; i < formFieldCount; i++ {
			labelStyle := styles.MutedText
			if i == f.focus {
				labelStyle = styles.AccentText
			}
			b.WriteString(labelStyle.Render(padRight(formLabels[i], 13)))
			b.WriteString(f.inputs[i].View())
			b.WriteString("\n")
		}

		b.WriteString("\n")
		switch {
		case f.submitting:
			b.WriteString(styles.WarningText.Render("Issuing label..."))
		case f.err != "":
			b.WriteString(styles.DangerText.Render("✗ " + truncate(f.err, 50)))
		default:
			b.WriteString(styles.FaintText.Render("tab:next field  ctrl+s:submit  esc:cancel"))
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(54)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
