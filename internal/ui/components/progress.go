package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	filledGlyph = "█"
	emptyGlyph  = "░"
	// room kept for " MM:SS/MM:SS"
	clockWidth = 16
)

var (
	playedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	remainingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ProgressBar shows how far into the current track playback is
type ProgressBar struct {
	Width    int
	Position time.Duration
	// Length is zero while the duration is still unknown
	Length time.Duration
}

// NewProgressBar creates a bar filling width columns, clock included
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{Width: width}
}

// SetProgress updates position and track length
func (p *ProgressBar) SetProgress(position, length time.Duration) {
	p.Position, p.Length = position, length
}

// Percent is the played fraction in [0,1]
func (p ProgressBar) Percent() float64 {
	if p.Length <= 0 {
		return 0
	}
	return min(max(float64(p.Position)/float64(p.Length), 0), 1)
}

// View renders the bar followed by the clock
func (p ProgressBar) View() string {
	cells := max(p.Width-clockWidth, 10)
	played := int(float64(cells) * p.Percent())

	length := "--:--"
	if p.Length > 0 {
		length = FormatDuration(p.Length)
	}
	return playedStyle.Render(strings.Repeat(filledGlyph, played)) +
		remainingStyle.Render(strings.Repeat(emptyGlyph, cells-played)) +
		" " + FormatDuration(p.Position) + "/" + length
}

// FormatDuration formats d as MM:SS, or H:MM:SS from an hour up
func FormatDuration(d time.Duration) string {
	d = max(d, 0).Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
