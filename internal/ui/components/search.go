package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SearchInput is a bordered single-line query box
type SearchInput struct {
	Input      textinput.Model
	Width      int
	Style      lipgloss.Style
	FocusStyle lipgloss.Style
}

// NewSearchInput creates a new search input
func NewSearchInput(width int) SearchInput {
	ti := textinput.New()
	ti.Prompt = "🔍 "
	ti.Placeholder = "Search..."
	ti.CharLimit = 200
	ti.Width = max(width-8, 10)

	return SearchInput{
		Input: ti,
		Width: width,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Focus sets focus on the input and starts the cursor blinking
func (s *SearchInput) Focus() tea.Cmd {
	return s.Input.Focus()
}

// Blur removes focus from the input
func (s *SearchInput) Blur() {
	s.Input.Blur()
}

func (s SearchInput) Focused() bool {
	return s.Input.Focused()
}

func (s SearchInput) Value() string {
	return s.Input.Value()
}

// SetValue replaces the query text
func (s *SearchInput) SetValue(value string) {
	s.Input.SetValue(value)
}

// Clear clears the input
func (s *SearchInput) Clear() {
	s.Input.Reset()
}

// Update forwards messages to the text input while focused
func (s SearchInput) Update(msg tea.Msg) (SearchInput, tea.Cmd) {
	if !s.Input.Focused() {
		return s, nil
	}
	var cmd tea.Cmd
	s.Input, cmd = s.Input.Update(msg)
	return s, cmd
}

// View renders the search input
func (s SearchInput) View() string {
	if s.Input.Focused() {
		return s.FocusStyle.Width(s.Width).Render(s.Input.View())
	}
	return s.Style.Width(s.Width).Render(s.Input.View())
}
