package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/ui/components"
)

// AllSources searches every registered catalog at once
const AllSources = "all"

// SearchRequestMsg asks the app to run a catalog search
type SearchRequestMsg struct {
	Query  string
	Source string
}

// FileAddedMsg is sent when a file is picked in the file browser
type FileAddedMsg struct {
	Path string
}

// FolderAddedMsg is sent when a whole directory is picked for import
type FolderAddedMsg struct {
	Path string
}

// SearchView runs catalog searches and lists the results
type SearchView struct {
	Width       int
	Height      int
	TrackList   components.TrackList
	SearchBar   components.SearchInput
	FileBrowser components.FileBrowser
	Searching   bool
	Browsing    bool
	Loading     bool
	Sources     []string
	source      int
	Query       string
	Results     []*api.Track
	BorderStyle lipgloss.Style
	MutedStyle  lipgloss.Style
}

// NewSearchView creates a search view over sources; "all" is always first
func NewSearchView(width, height int, sources []string, defaultSource string) SearchView {
	trackList := components.NewTrackList(height-8, width-6)
	trackList.Title = "🎵 Results"
	trackList.ShowSource = true

	v := SearchView{
		Width:     width,
		Height:    height,
		TrackList: trackList,
		SearchBar: components.NewSearchInput(width - 6),
		Sources:   append([]string{AllSources}, sources...),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
		MutedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	for i, s := range v.Sources {
		if s == defaultSource {
			v.source = i
		}
	}
	return v
}

// Source is the catalog the next search goes to
func (v SearchView) Source() string {
	return v.Sources[v.source]
}

// Capturing reports whether the view wants every key (typing or browsing)
func (v SearchView) Capturing() bool {
	return v.Searching || v.Browsing
}

// SetSize resizes the view
func (v *SearchView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.TrackList.Width, v.TrackList.Height = width-6, height-8
	v.SearchBar.Width = width - 6
	v.FileBrowser.Width, v.FileBrowser.Height = width, height
}

// StartSearch focuses the query box
func (v *SearchView) StartSearch() tea.Cmd {
	v.Searching = true
	return v.SearchBar.Focus()
}

// SetResults shows the tracks returned for query
func (v *SearchView) SetResults(query string, tracks []*api.Track) {
	v.Loading = false
	v.Query = query
	v.Results = tracks
	v.TrackList.SetItems(tracks)
	v.TrackList.Title = fmt.Sprintf("🎵 %d results for %q", len(tracks), query)
}

// SearchFailed clears the loading state after an error
func (v *SearchView) SearchFailed() {
	v.Loading = false
}

// AddResult appends a track, used after importing a local file
func (v *SearchView) AddResult(track *api.Track) {
	v.Results = append(v.Results, track)
	v.TrackList.ReplaceItems(v.Results)
}

// SelectedTrack returns the highlighted result
func (v *SearchView) SelectedTrack() *api.Track {
	return v.TrackList.SelectedItem()
}

// Update handles messages
func (v SearchView) Update(msg tea.Msg) (SearchView, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		v.SearchBar, cmd = v.SearchBar.Update(msg)
		return v, cmd
	}

	switch {
	case v.Browsing:
		return v.updateBrowser(keyMsg)
	case v.Searching:
		return v.updateQuery(keyMsg)
	}

	switch keyMsg.String() {
	case "/":
		cmd := v.StartSearch()
		return v, cmd
	case "o":
		v.source = (v.source + 1) % len(v.Sources)
	case "b":
		v.Browsing = true
		v.FileBrowser = components.NewFileBrowser("", v.Width, v.Height)
	default:
		v.TrackList, _ = v.TrackList.Update(keyMsg)
	}
	return v, nil
}

func (v SearchView) updateQuery(msg tea.KeyMsg) (SearchView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.Searching = false
		v.SearchBar.Blur()
		return v, nil
	case "enter":
		v.Searching = false
		v.SearchBar.Blur()
		query := strings.TrimSpace(v.SearchBar.Value())
		if query == "" {
			return v, nil
		}
		v.Loading = true
		req := SearchRequestMsg{Query: query, Source: v.Source()}
		return v, func() tea.Msg { return req }
	case "tab":
		v.source = (v.source + 1) % len(v.Sources)
		return v, nil
	}

	var cmd tea.Cmd
	v.SearchBar, cmd = v.SearchBar.Update(msg)
	return v, cmd
}

func (v SearchView) updateBrowser(msg tea.KeyMsg) (SearchView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.Browsing = false
	case "enter":
		if path := v.FileBrowser.EnterSelected(); path != "" {
			v.Browsing = false
			return v, func() tea.Msg { return FileAddedMsg{Path: path} }
		}
	case "A":
		path := v.FileBrowser.CurrentPath
		v.Browsing = false
		return v, func() tea.Msg { return FolderAddedMsg{Path: path} }
	default:
		v.FileBrowser, _ = v.FileBrowser.Update(msg)
	}
	return v, nil
}

// View renders the search view
func (v SearchView) View() string {
	if v.Browsing {
		return v.FileBrowser.View()
	}

	var sb strings.Builder
	sb.WriteString(v.SearchBar.View())
	sb.WriteString("\n")

	sources := make([]string, len(v.Sources))
	for i, s := range v.Sources {
		if i == v.source {
			s = "[" + s + "]"
		}
		sources[i] = s
	}
	sb.WriteString(v.MutedStyle.Render("Source: " + strings.Join(sources, " ")))
	sb.WriteString("\n\n")

	if v.Loading {
		sb.WriteString(v.MutedStyle.Render("Searching..."))
	} else {
		sb.WriteString(v.TrackList.View())
	}

	sb.WriteString("\n\n")
	if v.Searching {
		sb.WriteString(v.MutedStyle.Render("[Enter] Search  [Tab] Source  [Esc] Cancel"))
	} else {
		sb.WriteString(v.MutedStyle.Render("[/] Search  [o] Source  [Enter] Play  [a] Queue  [b] Import files"))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
