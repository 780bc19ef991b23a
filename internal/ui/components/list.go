package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/vibestream/api"
)

// ListStyles are the styles a TrackList draws with
type ListStyles struct {
	Title    lipgloss.Style
	Row      lipgloss.Style
	Selected lipgloss.Style
	Playing  lipgloss.Style
}

// DefaultListStyles returns the standard track list palette
func DefaultListStyles() ListStyles {
	row := lipgloss.NewStyle().Padding(0, 1)
	return ListStyles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1),
		Row:   row,
		Selected: row.
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true),
		Playing: row.Foreground(lipgloss.Color("212")),
	}
}

// TrackList is a scrollable list of tracks with one selected row
type TrackList struct {
	Cursor

	Items  []*api.Track
	Title  string
	Width  int
	Height int

	// Current marks the playing entry; api.NoPosition for none
	Current    int
	ShowSource bool
	Styles     ListStyles
}

// NewTrackList creates an empty list of the given size
func NewTrackList(height, width int) TrackList {
	return TrackList{
		Height:  height,
		Width:   width,
		Current: api.NoPosition,
		Styles:  DefaultListStyles(),
	}
}

// rows is the number of tracks that fit below the title
func (l TrackList) rows() int {
	return max(l.Height-2, 1)
}

// SetItems replaces the items and jumps back to the top
func (l *TrackList) SetItems(items []*api.Track) {
	l.Items = items
	l.Reset()
}

// ReplaceItems swaps the items but keeps the selection where it can
func (l *TrackList) ReplaceItems(items []*api.Track) {
	l.Items = items
	l.Select(l.Selected)
}

// Select moves the selection to index, clamped to the list
func (l *TrackList) Select(index int) {
	l.Set(index, len(l.Items), l.rows())
}

// Update handles navigation keys
func (l TrackList) Update(msg tea.Msg) (TrackList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		l.navigate(msg.String(), len(l.Items), l.rows())
	}
	return l, nil
}

// SelectedItem returns the selected track, or nil for an empty list
func (l *TrackList) SelectedItem() *api.Track {
	if l.Selected < 0 || l.Selected >= len(l.Items) {
		return nil
	}
	return l.Items[l.Selected]
}

func (l TrackList) row(i int) string {
	t := l.Items[i]

	marker := "  "
	if i == l.Current {
		marker = "▶ "
	}
	line := fmt.Sprintf("%s%3d. %s - %s", marker, i+1, truncate(t.Artist, 20), truncate(t.Title, 32))
	if t.Duration > 0 {
		line += " " + FormatDuration(t.Duration)
	}
	if l.ShowSource {
		line += " [" + string(t.Source) + "]"
	}
	line = truncate(line, l.Width-2)

	switch i {
	case l.Selected:
		return l.Styles.Selected.Render(line)
	case l.Current:
		return l.Styles.Playing.Render(line)
	}
	return l.Styles.Row.Render(line)
}

// View renders the visible part of the list
func (l TrackList) View() string {
	var lines []string
	if l.Title != "" {
		lines = append(lines, l.Styles.Title.Render(l.Title))
	}
	if len(l.Items) == 0 {
		return strings.Join(append(lines, l.Styles.Row.Render("No tracks")), "\n")
	}

	start, end := l.Window(len(l.Items), l.rows())
	for i := start; i < end; i++ {
		lines = append(lines, l.row(i))
	}
	if len(l.Items) > l.rows() {
		lines = append(lines, l.Styles.Row.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to maxLen runes, ending in an ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
