package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// Border padding is computed from display cells, not bytes, so titles with
// multi-byte runes must not skew the frame.
func TestRenderTitledBoxMultibyteTitleWidth(t *testing.T) {
	m := Model{theme: GetTheme("Dracula")}

	for _, title := range []string{"Tickets (3)", "Überblick", "Tickets · offen"} {
		box := m.renderTitledBox(title, "row one\nrow two", 32, 6, true)
		for i, line := range strings.Split(box, "\n") {
			if got := lipgloss.Width(line); got != 32 {
				t.Errorf("title %q line %d: width = %d, want 32", title, i, got)
			}
		}
	}
}
