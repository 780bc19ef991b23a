// Package ui is the terminal player: a bubbletea program over the playback
// controller with search, queue and playlist views.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/catalog"
	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/library"
	"github.com/jscyril/vibestream/internal/playlist"
	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/internal/store"
	"github.com/jscyril/vibestream/internal/ui/views"
)

const (
	seekStep    = 5 * time.Second
	volumeStep  = 0.05
	searchLimit = 25
	// searchTimeout bounds a catalog search started from the UI
	searchTimeout = 15 * time.Second
)

// ViewType represents the current active view
type ViewType int

const (
	ViewPlayer ViewType = iota
	ViewSearch
	ViewQueue
	ViewPlaylist
	viewCount
)

// Controller is the playback surface the UI drives
type Controller interface {
	State() api.PlaybackState
	Subscribe() (<-chan api.AudioEvent, func())
	Play(track *api.Track, queue []*api.Track)
	PlayAt(index int)
	TogglePlayPause()
	Next()
	Previous()
	Seek(pos time.Duration)
	SetVolume(v float64)
	ToggleMute()
	ToggleRepeat()
	ToggleShuffle()
	AddToQueue(track *api.Track)
	RemoveFromQueue(index int)
	Reorder(from, to int)
	Clear()
}

// Deps are the services the UI works with. Store and Library may be nil.
type Deps struct {
	Controller    Controller
	Catalog       *catalog.Registry
	Library       *library.Library
	Store         store.Store
	Playlists     *playlist.Manager
	UserID        string
	DefaultSource string
	SearchLimit   int
	Keys          config.KeyMap
	Logger        *log.Logger
}

// Model is the main bubbletea model
type Model struct {
	width  int
	height int

	activeView ViewType

	playerView   views.PlayerView
	searchView   views.SearchView
	queueView    views.QueueView
	playlistView views.PlaylistView

	keys KeyMap
	help help.Model

	deps   Deps
	state  api.PlaybackState
	events <-chan api.AudioEvent
	cancel func()
	ctx    context.Context
	stop   context.CancelFunc

	status string
	err    error

	tabStyle       lipgloss.Style
	activeTabStyle lipgloss.Style
	statusStyle    lipgloss.Style
	errorStyle     lipgloss.Style
}

// stateMsg carries a controller state snapshot
type stateMsg struct {
	state api.PlaybackState
}

// searchResultMsg carries finished search results
type searchResultMsg struct {
	query  string
	source string
	tracks []*api.Track
	err    error
}

// statusMsg is a one-line notice for the footer
type statusMsg string

// errMsg reports a failed background action
type errMsg struct{ err error }

// importedMsg reports tracks added to the local library
type importedMsg struct {
	tracks []*api.Track
	err    error
}

// NewModel creates the application model and subscribes to controller state
func NewModel(d Deps) Model {
	if d.Logger == nil {
		d.Logger = shared.Discard()
	}
	if d.SearchLimit <= 0 {
		d.SearchLimit = searchLimit
	}

	ctx, stop := context.WithCancel(context.Background())
	events, cancel := d.Controller.Subscribe()

	var sources []string
	if d.Catalog != nil {
		sources = d.Catalog.Names()
	}

	m := Model{
		width:        80,
		height:       24,
		activeView:   ViewSearch,
		playerView:   views.NewPlayerView(80, 7),
		searchView:   views.NewSearchView(80, 14, sources, d.DefaultSource),
		queueView:    views.NewQueueView(80, 14),
		playlistView: views.NewPlaylistView(80, 14),
		keys:         NewKeyMap(d.Keys),
		help:         help.New(),
		deps:         d,
		events:       events,
		cancel:       cancel,
		ctx:          ctx,
		stop:         stop,
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeTabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	m.applyState(d.Controller.State())
	if d.Playlists != nil {
		m.playlistView.SetPlaylists(d.Playlists.GetAll())
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.waitForState()
}

// waitForState blocks for the next controller state change
func (m Model) waitForState() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		for ev := range events {
			if ev.State != nil {
				return stateMsg{state: *ev.State}
			}
		}
		return nil
	}
}

func (m *Model) applyState(state api.PlaybackState) {
	m.state = state
	m.playerView.SetState(state)
	m.queueView.SetQueue(state.Queue, state.Index)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()
		return m, nil

	case stateMsg:
		m.applyState(msg.state)
		return m, m.waitForState()

	case views.SearchRequestMsg:
		m.status = fmt.Sprintf("Searching %s for %q...", msg.Source, msg.Query)
		m.err = nil
		return m, m.search(msg.Query, msg.Source)

	case searchResultMsg:
		if msg.err != nil {
			m.searchView.SearchFailed()
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.searchView.SetResults(msg.query, msg.tracks)
		m.status = fmt.Sprintf("%d results", len(msg.tracks))
		return m, m.recordSearch(msg.query, msg.source, len(msg.tracks))

	case views.FileAddedMsg:
		return m, m.importFile(msg.Path)

	case views.FolderAddedMsg:
		m.status = "Scanning " + msg.Path + "..."
		return m, m.importFolder(msg.Path)

	case importedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		for _, t := range msg.tracks {
			m.searchView.AddResult(t)
		}
		m.status = fmt.Sprintf("Imported %d tracks", len(msg.tracks))
		return m, nil

	case views.PlaylistDeleteMsg:
		if err := m.deps.Playlists.Delete(msg.ID); err != nil {
			m.err = err
		} else {
			m.status = "Playlist deleted"
		}
		m.playlistView.SetPlaylists(m.deps.Playlists.GetAll())
		return m, nil

	case statusMsg:
		m.status = string(msg)
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other input plumbing
	if m.activeView == ViewSearch {
		var cmd tea.Cmd
		m.searchView, cmd = m.searchView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	// Typing a query or browsing files takes every key
	if m.activeView == ViewSearch && m.searchView.Capturing() {
		var cmd tea.Cmd
		m.searchView, cmd = m.searchView.Update(msg)
		return m, cmd
	}

	c := m.deps.Controller
	k := m.keys

	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.NextTab):
		m.activeView = (m.activeView + 1) % viewCount
		return m, nil
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, k.Search):
		m.activeView = ViewSearch
		cmd := m.searchView.StartSearch()
		return m, cmd

	case key.Matches(msg, k.PlayPause):
		c.TogglePlayPause()
	case key.Matches(msg, k.Next):
		c.Next()
	case key.Matches(msg, k.Previous):
		c.Previous()
	case key.Matches(msg, k.VolumeUp):
		c.SetVolume(m.state.Volume + volumeStep)
	case key.Matches(msg, k.VolumeDown):
		c.SetVolume(m.state.Volume - volumeStep)
	case key.Matches(msg, k.SeekForward):
		c.Seek(m.state.Position + seekStep)
	case key.Matches(msg, k.SeekBack):
		c.Seek(m.state.Position - seekStep)
	case key.Matches(msg, k.Mute):
		c.ToggleMute()
	case key.Matches(msg, k.Repeat):
		c.ToggleRepeat()
	case key.Matches(msg, k.Shuffle):
		c.ToggleShuffle()
	case key.Matches(msg, k.Favorite):
		return m, m.favorite(m.state.CurrentTrack)
	case key.Matches(msg, k.SavePlaylist):
		m.saveQueue()
		return m, nil

	default:
		switch msg.String() {
		case "1", "2", "3", "4":
			m.activeView = ViewType(msg.String()[0] - '1')
			return m, nil
		}
		return m.handleViewKey(msg)
	}
	return m, nil
}

// handleViewKey applies keys that depend on the active view
func (m Model) handleViewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.deps.Controller
	k := m.keys

	switch m.activeView {
	case ViewSearch:
		switch {
		case msg.String() == "enter":
			if track := m.searchView.SelectedTrack(); track != nil {
				c.Play(track, m.searchView.Results)
			}
		case key.Matches(msg, k.AddToQueue):
			if track := m.searchView.SelectedTrack(); track != nil {
				c.AddToQueue(track)
				m.status = "Queued " + track.Title
			}
		default:
			var cmd tea.Cmd
			m.searchView, cmd = m.searchView.Update(msg)
			return m, cmd
		}

	case ViewQueue:
		sel := m.queueView.Selected()
		switch {
		case msg.String() == "enter":
			if sel != api.NoPosition {
				c.PlayAt(sel)
			}
		case key.Matches(msg, k.Remove):
			if sel != api.NoPosition {
				c.RemoveFromQueue(sel)
			}
		case key.Matches(msg, k.MoveUp):
			if sel > 0 {
				c.Reorder(sel, sel-1)
				m.queueView.Select(sel - 1)
			}
		case key.Matches(msg, k.MoveDown):
			if sel != api.NoPosition && sel < len(m.state.Queue)-1 {
				c.Reorder(sel, sel+1)
				m.queueView.Select(sel + 1)
			}
		case key.Matches(msg, k.ClearQueue):
			c.Clear()
		default:
			m.queueView, _ = m.queueView.Update(msg)
		}

	case ViewPlaylist:
		track := m.playlistView.SelectedTrack()
		switch {
		case msg.String() == "enter" && track != nil:
			c.Play(track, m.playlistView.CurrentTracks())
		case key.Matches(msg, k.AddToQueue) && track != nil:
			c.AddToQueue(track)
			m.status = "Queued " + track.Title
		default:
			var cmd tea.Cmd
			m.playlistView, cmd = m.playlistView.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.stop()
	m.cancel()
	return m, tea.Quit
}

// search runs a catalog query off the UI goroutine
func (m Model) search(query, source string) tea.Cmd {
	reg := m.deps.Catalog
	limit := m.deps.SearchLimit
	ctx := m.ctx

	return func() tea.Msg {
		if reg == nil {
			return searchResultMsg{query: query, source: source, err: fmt.Errorf("no catalogs configured")}
		}
		ctx, cancel := context.WithTimeout(ctx, searchTimeout)
		defer cancel()

		var (
			tracks []*api.Track
			err    error
		)
		if source == views.AllSources {
			tracks, err = reg.SearchAll(ctx, query, limit)
		} else {
			tracks, err = reg.Search(ctx, source, query, limit)
		}
		return searchResultMsg{query: query, source: source, tracks: tracks, err: err}
	}
}

// recordSearch appends the query to the user's search history
func (m Model) recordSearch(query, source string, results int) tea.Cmd {
	st, user, logger := m.deps.Store, m.deps.UserID, m.deps.Logger
	if st == nil || user == "" {
		return nil
	}
	ctx := m.ctx

	return func() tea.Msg {
		err := st.AddSearch(ctx, store.SearchEntry{
			UserID:        user,
			OriginalQuery: query,
			Type:          source,
			ResultsCount:  results,
		})
		if err != nil {
			logger.Warn("failed to record search", "query", query, "err", err)
		}
		return nil
	}
}

// favorite stars track for the configured user
func (m Model) favorite(track *api.Track) tea.Cmd {
	st, user := m.deps.Store, m.deps.UserID
	if track == nil {
		return func() tea.Msg { return statusMsg("Nothing playing") }
	}
	if st == nil || user == "" {
		return func() tea.Msg { return errMsg{fmt.Errorf("favorites need a database and user_id")} }
	}
	t, ctx := *track, m.ctx

	return func() tea.Msg {
		exists, err := st.AddFavorite(ctx, user, t)
		switch {
		case err != nil:
			return errMsg{err}
		case exists:
			return statusMsg(t.Title + " is already a favorite")
		default:
			return statusMsg("★ Added " + t.Title + " to favorites")
		}
	}
}

// saveQueue stores the current queue as a new playlist
func (m *Model) saveQueue() {
	if m.deps.Playlists == nil {
		return
	}
	name := "Queue " + time.Now().Format("2006-01-02 15:04")
	pl, err := m.deps.Playlists.FromQueue(name, m.state.Queue)
	if err != nil {
		m.err = err
		return
	}
	m.playlistView.SetPlaylists(m.deps.Playlists.GetAll())
	m.status = fmt.Sprintf("Saved %d tracks as %q", len(pl.Tracks), pl.Name)
	m.err = nil
}

func (m Model) importFile(path string) tea.Cmd {
	lib := m.deps.Library
	return func() tea.Msg {
		if lib == nil {
			return errMsg{fmt.Errorf("local library is disabled")}
		}
		track, err := lib.AddFile(path)
		if err != nil {
			return importedMsg{err: err}
		}
		return importedMsg{tracks: []*api.Track{track}}
	}
}

func (m Model) importFolder(path string) tea.Cmd {
	lib, ctx := m.deps.Library, m.ctx
	return func() tea.Msg {
		if lib == nil {
			return errMsg{fmt.Errorf("local library is disabled")}
		}
		before := make(map[string]bool)
		for _, t := range lib.All() {
			before[t.ID] = true
		}

		err := lib.Scan(ctx, []string{path})

		var added []*api.Track
		for _, t := range lib.All() {
			if !before[t.ID] {
				added = append(added, t)
			}
		}
		return importedMsg{tracks: added, err: err}
	}
}

// updateViewSizes updates view dimensions
func (m *Model) updateViewSizes() {
	body := max(m.height-14, 6)
	m.playerView.SetWidth(m.width)
	m.searchView.SetSize(m.width, body)
	m.queueView.SetSize(m.width, body)
	m.playlistView.SetSize(m.width, body)
	m.help.Width = m.width
}

// View renders the UI
func (m Model) View() string {
	var sb string

	sb += m.renderTabs()
	sb += "\n"
	sb += m.playerView.View()
	sb += "\n"

	switch m.activeView {
	case ViewSearch:
		sb += m.searchView.View()
	case ViewQueue:
		sb += m.queueView.View()
	case ViewPlaylist:
		sb += m.playlistView.View()
	}

	sb += "\n"
	if m.err != nil {
		sb += m.errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	} else if m.status != "" {
		sb += m.statusStyle.Render(m.status)
	}
	sb += "\n" + m.help.View(m.keys)

	return sb
}

// renderTabs renders the tab bar
func (m Model) renderTabs() string {
	tabs := []string{"[1] Player", "[2] Search", "[3] Queue", "[4] Playlists"}

	rendered := make([]string, len(tabs))
	for i, tab := range tabs {
		if ViewType(i) == m.activeView {
			rendered[i] = m.activeTabStyle.Render(tab)
		} else {
			rendered[i] = m.tabStyle.Render(tab)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Run starts the bubbletea program
func Run(d Deps) error {
	p := tea.NewProgram(NewModel(d), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
