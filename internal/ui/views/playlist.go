package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/ui/components"
)

// PlaylistDeleteMsg asks the app to delete a saved playlist
type PlaylistDeleteMsg struct {
	ID string
}

// PlaylistView has two modes: the saved playlists, or the tracks of the
// one that is open
type PlaylistView struct {
	Width     int
	Height    int
	Playlists []*api.Playlist
	// Open is the playlist whose tracks are shown; nil shows the index
	Open   *api.Playlist
	Tracks components.TrackList

	cursor components.Cursor
	styles components.ListStyles
	frame  lipgloss.Style
	muted  lipgloss.Style
}

// NewPlaylistView creates a view showing the playlist index
func NewPlaylistView(width, height int) PlaylistView {
	v := PlaylistView{
		Tracks: components.NewTrackList(0, 0),
		styles: components.DefaultListStyles(),
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	v.SetSize(width, height)
	return v
}

// SetSize resizes the view
func (v *PlaylistView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.Tracks.Width, v.Tracks.Height = width-6, height-6
}

func (v PlaylistView) rows() int {
	return max(v.Height-8, 1)
}

// SetPlaylists replaces the index. The open playlist is refreshed, or
// closed when it was deleted.
func (v *PlaylistView) SetPlaylists(playlists []*api.Playlist) {
	v.Playlists = playlists
	v.cursor.Set(v.cursor.Selected, len(playlists), v.rows())

	if v.Open == nil {
		return
	}
	for _, pl := range playlists {
		if pl.ID == v.Open.ID {
			v.open(pl)
			return
		}
	}
	v.Open = nil
}

func (v *PlaylistView) open(pl *api.Playlist) {
	reopen := v.Open != nil && v.Open.ID == pl.ID
	v.Open = pl
	v.Tracks.Title = "📋 " + pl.Name
	if reopen {
		v.Tracks.ReplaceItems(v.CurrentTracks())
		return
	}
	v.Tracks.SetItems(v.CurrentTracks())
}

// CurrentTracks returns the open playlist's tracks
func (v *PlaylistView) CurrentTracks() []*api.Track {
	if v.Open == nil {
		return nil
	}
	tracks := make([]*api.Track, len(v.Open.Tracks))
	for i := range v.Open.Tracks {
		tracks[i] = &v.Open.Tracks[i]
	}
	return tracks
}

func (v *PlaylistView) highlighted() *api.Playlist {
	if v.cursor.Selected < len(v.Playlists) {
		return v.Playlists[v.cursor.Selected]
	}
	return nil
}

// Update handles navigation, opening and deleting
func (v PlaylistView) Update(msg tea.Msg) (PlaylistView, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}
	key := keyMsg.String()

	if v.Open != nil {
		if key == "backspace" || key == "esc" {
			v.Open = nil
			return v, nil
		}
		v.Tracks, _ = v.Tracks.Update(keyMsg)
		return v, nil
	}

	pl := v.highlighted()
	switch {
	case key == "enter" && pl != nil:
		v.open(pl)
	case key == "x" && pl != nil:
		id := pl.ID
		return v, func() tea.Msg { return PlaylistDeleteMsg{ID: id} }
	case key == "up" || key == "k":
		v.cursor.Move(-1, len(v.Playlists), v.rows())
	case key == "down" || key == "j":
		v.cursor.Move(1, len(v.Playlists), v.rows())
	}
	return v, nil
}

// SelectedTrack returns the highlighted track of the open playlist
func (v *PlaylistView) SelectedTrack() *api.Track {
	if v.Open == nil {
		return nil
	}
	return v.Tracks.SelectedItem()
}

// View renders whichever mode is active
func (v PlaylistView) View() string {
	if v.Open != nil {
		body := v.Tracks.View() + "\n\n" +
			v.muted.Render("[Backspace/Esc] Back  [Enter] Play  [a] Queue  [↑↓] Navigate")
		return v.frame.Width(v.Width - 4).Render(body)
	}

	lines := []string{v.styles.Title.Render("📋 Playlists")}
	if len(v.Playlists) == 0 {
		lines = append(lines, v.muted.Render("No playlists yet. Press w to save the queue."))
	}
	start, end := v.cursor.Window(len(v.Playlists), v.rows())
	for i := start; i < end; i++ {
		pl := v.Playlists[i]
		label := pl.Name
		if pl.Description != "" {
			label += " - " + pl.Description
		}
		label += v.muted.Render(fmt.Sprintf(" (%d tracks)", len(pl.Tracks)))

		style := v.styles.Row
		if i == v.cursor.Selected {
			style = v.styles.Selected
		}
		lines = append(lines, style.Render(label))
	}
	lines = append(lines, "", v.muted.Render("[Enter] Open  [x] Delete  [↑↓] Navigate"))

	return v.frame.Width(v.Width - 4).Render(strings.Join(lines, "\n"))
}
