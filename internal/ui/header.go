package ui

import (
	"fmt"
	"strings"
	"time"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var parts []string

	// Logo
	parts = append(parts, bg.Render("fulfil", styles.Logo))

	// Connection indicator. Offline means two or more consecutive poll
	// failures; the grid keeps showing the last good snapshot.
	switch {
	case !m.snapshot.HasData:
		parts = append(parts, bg.Render("● CONNECTING", styles.WarningText))
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText.Bold(true)))
	default:
		parts = append(parts, bg.Render("● LIVE", styles.SuccessText))
	}

	// Row count
	parts = append(parts,
		bg.Render("Tickets:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", m.grid.Len()), styles.Text),
	)

	// Unconfirmed edits
	if pending := m.engine.PendingCount(); pending > 0 {
		parts = append(parts,
			bg.Render("Pending:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", pending), styles.PendingText),
		)
	}

	// Timestamp with relative time
	if timeStr := m.formatTimestamp(); timeStr != "" {
		parts = append(parts, bg.Render(timeStr, styles.MutedText))
	}

	// Poll error indicator
	if m.snapshot.LastError != nil {
		maxErr := 60
		if m.width < 100 {
			maxErr = 30
		}
		errText := truncate(classifyPollError(m.snapshot.LastError), maxErr)
		parts = append(parts,
			bg.Render("POLL", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(errText, styles.DangerText),
		)
	}

	// Last write failure
	if m.notice != "" {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.notice, 60), styles.WarningText),
		)
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatTimestamp formats the last successful poll time with a relative hint.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	timeSince := time.Since(m.lastUpdated)
	timeStr := m.lastUpdated.Format("15:04:05")

	if timeSince < time.Minute {
		timeStr += " (now)"
	} else if timeSince < time.Hour {
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	} else if timeSince < 24*time.Hour {
		timeStr += fmt.Sprintf(" (%dh ago)", int(timeSince.Hours()))
	}

	return timeStr
}

// classifyPollError returns a short description of a poll failure.
func classifyPollError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "database unreachable"
	case strings.Contains(msg, "no such host"):
		return "host not found"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	default:
		return msg
	}
}

// renderCommandBar renders the key hints bar, or the editor line while a cell
// edit is open.
func (m Model) renderCommandBar() string {
	if m.editor.active {
		return m.renderEditorBar()
	}

	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"j/k", "Row"},
		{"h/l", "Column"},
		{"enter", "Edit"},
		{"d", "Detail"},
		{"o", "Order"},
		{"L", "Label"},
		{"r", "Refresh"},
		{"?", "More"},
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}
