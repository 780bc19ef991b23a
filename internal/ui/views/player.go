package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/ui/components"
)

// PlayerView displays the current playback state
type PlayerView struct {
	Width       int
	Height      int
	State       api.PlaybackState
	ProgressBar components.ProgressBar

	TitleStyle  lipgloss.Style
	ArtistStyle lipgloss.Style
	AlbumStyle  lipgloss.Style
	StatusStyle lipgloss.Style
	MutedStyle  lipgloss.Style
	ErrorStyle  lipgloss.Style
	BorderStyle lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int) PlayerView {
	return PlayerView{
		Width:       width,
		Height:      height,
		State:       api.PlaybackState{Index: api.NoPosition},
		ProgressBar: components.NewProgressBar(width - 8),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		MutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		ErrorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
}

// SetState updates the playback state
func (v *PlayerView) SetState(state api.PlaybackState) {
	v.State = state
	v.ProgressBar.SetProgress(state.Position, state.Duration)
}

// SetWidth resizes the view and its progress bar
func (v *PlayerView) SetWidth(width int) {
	v.Width = width
	v.ProgressBar.Width = width - 8
}

// statusIcon maps the transport status to a glyph
func statusIcon(s api.Status) string {
	switch s {
	case api.StatusPlaying:
		return "▶"
	case api.StatusPaused:
		return "⏸"
	case api.StatusLoading:
		return "…"
	case api.StatusError:
		return "✖"
	default:
		return "⏹"
	}
}

// View renders the player view
func (v PlayerView) View() string {
	var sb strings.Builder
	state := v.State

	if state.CurrentTrack == nil {
		sb.WriteString(v.TitleStyle.Render("♪ Nothing playing"))
		sb.WriteString("\n")
		sb.WriteString(v.MutedStyle.Render("Search for music and press Enter to play"))
	} else {
		track := state.CurrentTrack

		sb.WriteString(v.StatusStyle.Render(statusIcon(state.Status) + " "))
		sb.WriteString(v.TitleStyle.Render(track.Title))
		sb.WriteString(v.MutedStyle.Render(fmt.Sprintf("  [%s]", track.Source)))
		sb.WriteString("\n")
		sb.WriteString(v.ArtistStyle.Render(track.Artist))
		if track.Album != "" {
			sb.WriteString("  ")
			sb.WriteString(v.AlbumStyle.Render(track.Album))
		}
		sb.WriteString("\n")

		switch state.Status {
		case api.StatusError:
			sb.WriteString(v.ErrorStyle.Render("Playback failed; press n to skip"))
		case api.StatusLoading:
			sb.WriteString(v.MutedStyle.Render("Loading..."))
		default:
			sb.WriteString(v.ProgressBar.View())
		}
	}

	sb.WriteString("\n")
	sb.WriteString(v.renderModes())

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}

// renderModes renders volume, mute, repeat and shuffle in one line
func (v PlayerView) renderModes() string {
	state := v.State

	volume := fmt.Sprintf("Vol %s %3d%%", renderVolumeBar(state.Volume), int(state.Volume*100+0.5))
	if state.Muted {
		volume = "Vol 🔇 muted"
	}

	modes := []string{volume}
	if state.Repeat {
		modes = append(modes, "🔂 Repeat")
	}
	if state.Shuffle {
		modes = append(modes, "🔀 Shuffle")
	}
	if n := len(state.Queue); n > 0 && state.Index != api.NoPosition {
		modes = append(modes, fmt.Sprintf("%d/%d", state.Index+1, n))
	}
	return v.MutedStyle.Render(strings.Join(modes, "  │  "))
}

// renderVolumeBar renders a ten step volume bar
func renderVolumeBar(volume float64) string {
	filled := min(max(int(volume*10+0.5), 0), 10)

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return filledStyle.Render(strings.Repeat("●", filled)) + emptyStyle.Render(strings.Repeat("○", 10-filled))
}
