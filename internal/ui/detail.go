package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDetail renders the ticket detail pane content: the selected record's
// fields followed by the conversation thread fetched from the helpdesk.
func (m Model) renderDetail(width int) string {
	styles := m.theme.Styles()

	rec, ok := m.selectedRecord()
	if !ok {
		return styles.MutedText.Render("Select a ticket")
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(rec.ID))
	b.WriteString("\n\n")

	for _, f := range m.fields {
		value := m.displayValue(rec, f)
		if value == "" {
			continue
		}
		b.WriteString(styles.MutedText.Render(padRight(f.Name, 10)))
		if m.grid.IsPending(rec.ID, f.Name) {
			b.WriteString(styles.PendingText.Render(truncate(value, width-12) + " ~"))
		} else {
			b.WriteString(styles.Text.Render(truncate(value, width-10)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")

	switch {
	case m.detailErr != "":
		b.WriteString(styles.DangerText.Render(truncate(m.detailErr, width)))
	case m.detail == nil:
		b.WriteString(styles.FaintText.Render("Loading thread..."))
	default:
		b.WriteString(m.renderThread(width))
	}

	return b.String()
}

// renderThread renders the fetched conversation messages, newest last.
func (m Model) renderThread(width int) string {
	styles := m.theme.Styles()
	d := m.detail

	var b strings.Builder
	meta := d.Requester
	if d.Channel != "" {
		meta += " via " + d.Channel
	}
	b.WriteString(styles.AccentText.Render(truncate(meta, width)))
	b.WriteString("\n\n")

	if len(d.Messages) == 0 {
		b.WriteString(styles.FaintText.Render("No messages"))
		return b.String()
	}

	for _, msg := range d.Messages {
		author := msg.Author
		if msg.Internal {
			author += " (internal)"
		}
		b.WriteString(styles.MutedText.Render(truncate(author+" · "+msg.CreatedAt, width)))
		b.WriteString("\n")
		for _, line := range wrapText(msg.Body, width) {
			b.WriteString(styles.Text.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderOrderPeek renders the linked order as a centered modal.
func (m Model) renderOrderPeek() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Order"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 36)))
	b.WriteString("\n\n")

	switch {
	case m.orderErr != "":
		b.WriteString(styles.DangerText.Render(truncate(m.orderErr, 48)))
	case m.order == nil:
		b.WriteString(styles.FaintText.Render("Loading..."))
	default:
		o := m.order
		b.WriteString(styles.AccentText.Render(o.OrderNo))
		b.WriteString("  ")
		b.WriteString(styles.MutedText.Render(o.Status))
		b.WriteString("\n\n")
		b.WriteString(styles.Text.Render(o.CustomerName))
		b.WriteString("\n")
		for _, line := range []string{o.AddressLine1, o.AddressLine2, o.City, o.Postcode, o.Country} {
			if line == "" {
				continue
			}
			b.WriteString(styles.MutedText.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		for _, item := range o.Items {
			b.WriteString(styles.Text.Render(fmt.Sprintf("%dx %s", item.Quantity, truncate(item.Title, 36))))
			b.WriteString("  ")
			b.WriteString(styles.FaintText.Render(item.SKU))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("esc:close"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(52)

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

// wrapText naively wraps text on word boundaries.
func wrapText(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				lines = append(lines, line)
				line = word
				continue
			}
			line += " " + word
		}
		lines = append(lines, line)
	}
	return lines
}
