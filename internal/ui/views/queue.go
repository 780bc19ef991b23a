package views

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/ui/components"
)

// QueueView lists the play queue with the current entry marked
type QueueView struct {
	Width       int
	Height      int
	TrackList   components.TrackList
	BorderStyle lipgloss.Style
	MutedStyle  lipgloss.Style
}

func NewQueueView(width, height int) QueueView {
	trackList := components.NewTrackList(height-6, width-6)
	trackList.Title = "📜 Queue"
	trackList.ShowSource = true

	return QueueView{
		Width:     width,
		Height:    height,
		TrackList: trackList,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
		MutedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetSize resizes the view
func (v *QueueView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.TrackList.Width, v.TrackList.Height = width-6, height-6
}

// SetQueue refreshes the entries, keeping the selection in place
func (v *QueueView) SetQueue(tracks []*api.Track, current int) {
	v.TrackList.ReplaceItems(tracks)
	v.TrackList.Current = current
}

// Selected is the highlighted queue index, or api.NoPosition when empty
func (v *QueueView) Selected() int {
	if len(v.TrackList.Items) == 0 {
		return api.NoPosition
	}
	return v.TrackList.Selected
}

// Select moves the highlight, used to follow an entry being reordered
func (v *QueueView) Select(index int) {
	v.TrackList.Select(index)
}

// Update handles navigation
func (v QueueView) Update(msg tea.Msg) (QueueView, tea.Cmd) {
	v.TrackList, _ = v.TrackList.Update(msg)
	return v, nil
}

// View renders the queue view
func (v QueueView) View() string {
	var sb strings.Builder
	sb.WriteString(v.TrackList.View())
	sb.WriteString("\n\n")
	sb.WriteString(v.MutedStyle.Render("[Enter] Play  [d] Remove  [K/J] Move  [c] Clear  [w] Save as playlist"))
	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
