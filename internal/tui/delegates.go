package tui

import (
	"fmt"
	"io"

	"playerdash/internal/analytics"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// playerItem wraps a Subject for the list component
type playerItem struct {
	subject analytics.Subject
}

func (i playerItem) FilterValue() string { return i.subject.DisplayName }
func (i playerItem) Title() string       { return i.subject.DisplayName }
func (i playerItem) Description() string { return i.subject.GroupName }

// playerDelegate renders roster entries. It holds a pointer to the model's
// styles so theme reloads apply without rebuilding the list.
type playerDelegate struct {
	styles   *Styles
	selected *string // ID of the subject under analysis
}

func newPlayerDelegate(styles *Styles, selected *string) playerDelegate {
	return playerDelegate{styles: styles, selected: selected}
}

func (d playerDelegate) Height() int                             { return 2 }
func (d playerDelegate) Spacing() int                            { return 0 }
func (d playerDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d playerDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(playerItem)
	if !ok {
		return
	}

	nameStyle := d.styles.NormalItem
	if index == m.Index() {
		nameStyle = d.styles.SelectedItem
	}

	marker := "  "
	if d.selected != nil && *d.selected == i.subject.ID {
		marker = selectedMarker(d.styles)
	}

	name := nameStyle.Render(i.subject.DisplayName)
	team := d.styles.Muted.Render("  " + truncate(i.subject.GroupName, 30))

	fmt.Fprintf(w, "%s%s\n%s", marker, name, team)
}

func selectedMarker(s *Styles) string {
	return s.Label.Render("● ")
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
