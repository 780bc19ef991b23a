package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/catalog"
	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/playlist"
	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/internal/store"
	"github.com/jscyril/vibestream/internal/ui/views"
	"github.com/jscyril/vibestream/pkg/events"
)

type fakeController struct {
	state api.PlaybackState
	bus   *events.EventBus
	calls []string
}

func newFakeController() *fakeController {
	return &fakeController{
		state: api.PlaybackState{Index: api.NoPosition, Volume: 0.5},
		bus:   events.NewEventBus(),
	}
}

func (f *fakeController) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeController) State() api.PlaybackState { return f.state }

func (f *fakeController) Subscribe() (<-chan api.AudioEvent, func()) {
	return f.bus.Subscribe(api.EventStateChange)
}

func (f *fakeController) Play(track *api.Track, queue []*api.Track) {
	f.record("play %s %d", track.ID, len(queue))
}
func (f *fakeController) PlayAt(index int)        { f.record("playAt %d", index) }
func (f *fakeController) TogglePlayPause()        { f.record("toggle") }
func (f *fakeController) Next()                   { f.record("next") }
func (f *fakeController) Previous()               { f.record("previous") }
func (f *fakeController) Seek(pos time.Duration)  { f.record("seek %s", pos) }
func (f *fakeController) SetVolume(v float64)     { f.record("volume %.2f", v) }
func (f *fakeController) ToggleMute()             { f.record("mute") }
func (f *fakeController) ToggleRepeat()           { f.record("repeat") }
func (f *fakeController) ToggleShuffle()          { f.record("shuffle") }
func (f *fakeController) AddToQueue(t *api.Track) { f.record("add %s", t.ID) }
func (f *fakeController) RemoveFromQueue(i int)   { f.record("remove %d", i) }
func (f *fakeController) Reorder(from, to int)    { f.record("reorder %d %d", from, to) }
func (f *fakeController) Clear()                  { f.record("clear") }

type fakeSource struct {
	tracks []*api.Track
}

func (f fakeSource) Name() string { return "fake" }

func (f fakeSource) Search(context.Context, string, int) ([]*api.Track, error) {
	return f.tracks, nil
}

var testTracks = []*api.Track{
	{ID: "t1", Title: "One", Artist: "A", Source: api.SourceJamendo},
	{ID: "t2", Title: "Two", Artist: "B", Source: api.SourceJamendo},
	{ID: "t3", Title: "Three", Artist: "C", Source: api.SourceJamendo},
}

type testEnv struct {
	model Model
	ctrl  *fakeController
	store *store.SQLStore
}

func newTestModel(t *testing.T) testEnv {
	t.Helper()

	st, err := store.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := catalog.NewRegistry(0, shared.Discard())
	reg.Register(fakeSource{tracks: testTracks})

	ctrl := newFakeController()
	t.Cleanup(ctrl.bus.Close)

	m := NewModel(Deps{
		Controller:    ctrl,
		Catalog:       reg,
		Store:         st,
		Playlists:     playlist.NewManager(filepath.Join(t.TempDir(), "playlists")),
		UserID:        "u1",
		DefaultSource: "fake",
	})
	return testEnv{model: m, ctrl: ctrl, store: st}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drain runs cmd and feeds every message it yields back into the model
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		if msg == nil {
			return m
		}
		m, cmd = update(t, m, msg)
	}
	return m
}

func withState(m Model, s api.PlaybackState) Model {
	next, _ := m.Update(stateMsg{state: s})
	return next.(Model)
}

func TestTransportKeys(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{" ", "toggle"},
		{"n", "next"},
		{"p", "previous"},
		{"+", "volume 0.55"},
		{"=", "volume 0.55"},
		{"-", "volume 0.45"},
		{"right", "seek 15s"},
		{"left", "seek 5s"},
		{"m", "mute"},
		{"r", "repeat"},
		{"S", "shuffle"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			env := newTestModel(t)
			m := withState(env.model, api.PlaybackState{Index: api.NoPosition, Volume: 0.5, Position: 10 * time.Second})

			update(t, m, keyMsg(tt.key))

			if len(env.ctrl.calls) != 1 || env.ctrl.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", env.ctrl.calls, tt.want)
			}
		})
	}
}

func TestViewSwitching(t *testing.T) {
	env := newTestModel(t)
	m := env.model

	if m.activeView != ViewSearch {
		t.Fatalf("initial view = %v, want search", m.activeView)
	}

	m, _ = update(t, m, keyMsg("3"))
	if m.activeView != ViewQueue {
		t.Errorf("after 3 view = %v, want queue", m.activeView)
	}

	m, _ = update(t, m, keyMsg("tab"))
	if m.activeView != ViewPlaylist {
		t.Errorf("after tab view = %v, want playlists", m.activeView)
	}

	m, _ = update(t, m, keyMsg("tab"))
	if m.activeView != ViewPlayer {
		t.Errorf("tab should wrap to player, got %v", m.activeView)
	}

	_, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestSearchFlow(t *testing.T) {
	env := newTestModel(t)
	m := env.model

	m, cmd := update(t, m, views.SearchRequestMsg{Query: "Daft Punk", Source: "fake"})
	m = drain(t, m, cmd)

	if got := len(m.searchView.Results); got != len(testTracks) {
		t.Fatalf("results = %d, want %d", got, len(testTracks))
	}
	if m.status != "3 results" {
		t.Errorf("status = %q", m.status)
	}

	entries, err := env.store.ListSearches(context.Background(), "u1", "fake", 10)
	if err != nil {
		t.Fatalf("ListSearches failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Query != "daft punk" || entries[0].ResultsCount != 3 {
		t.Errorf("history = %+v", entries)
	}

	// enter plays the highlighted result within the result list
	update(t, m, keyMsg("enter"))
	// a queues it
	update(t, m, keyMsg("a"))

	want := []string{"play t1 3", "add t1"}
	if !slices.Equal(env.ctrl.calls, want) {
		t.Errorf("calls = %v, want %v", env.ctrl.calls, want)
	}
}

func TestSearchFailure(t *testing.T) {
	env := newTestModel(t)

	m, _ := update(t, env.model, searchResultMsg{query: "x", source: "fake", err: fmt.Errorf("upstream down")})
	if m.err == nil || !strings.Contains(m.View(), "upstream down") {
		t.Errorf("error not shown, err = %v", m.err)
	}
}

func TestQueueKeys(t *testing.T) {
	env := newTestModel(t)
	m := withState(env.model, api.PlaybackState{
		Status:       api.StatusPlaying,
		CurrentTrack: testTracks[0],
		Index:        0,
		Queue:        testTracks,
		Volume:       0.5,
	})
	m, _ = update(t, m, keyMsg("3"))

	m, _ = update(t, m, keyMsg("j"))
	if m.queueView.Selected() != 1 {
		t.Fatalf("selected = %d, want 1", m.queueView.Selected())
	}

	m, _ = update(t, m, keyMsg("enter"))
	m, _ = update(t, m, keyMsg("J"))
	if m.queueView.Selected() != 2 {
		t.Errorf("selection should follow the moved entry, got %d", m.queueView.Selected())
	}
	m, _ = update(t, m, keyMsg("J"))
	m, _ = update(t, m, keyMsg("K"))
	m, _ = update(t, m, keyMsg("d"))
	update(t, m, keyMsg("c"))

	want := []string{"playAt 1", "reorder 1 2", "reorder 2 1", "remove 1", "clear"}
	if !slices.Equal(env.ctrl.calls, want) {
		t.Errorf("calls = %v, want %v", env.ctrl.calls, want)
	}
}

func TestFavoriteKey(t *testing.T) {
	t.Run("nothing playing", func(t *testing.T) {
		env := newTestModel(t)

		m, cmd := update(t, env.model, keyMsg("f"))
		m = drain(t, m, cmd)
		if m.status != "Nothing playing" {
			t.Errorf("status = %q", m.status)
		}
	})

	t.Run("adds then reports existing", func(t *testing.T) {
		env := newTestModel(t)
		m := withState(env.model, api.PlaybackState{CurrentTrack: testTracks[1], Index: 1, Queue: testTracks})

		m, cmd := update(t, m, keyMsg("f"))
		m = drain(t, m, cmd)
		if !strings.Contains(m.status, "Added Two") {
			t.Errorf("status = %q", m.status)
		}

		m, cmd = update(t, m, keyMsg("f"))
		m = drain(t, m, cmd)
		if !strings.Contains(m.status, "already a favorite") {
			t.Errorf("status = %q", m.status)
		}

		favs, err := env.store.ListFavorites(context.Background(), "u1")
		if err != nil {
			t.Fatalf("ListFavorites failed: %v", err)
		}
		if len(favs) != 1 || favs[0].Track.ID != "t2" {
			t.Errorf("favorites = %+v", favs)
		}
	})
}

func TestSaveQueueAsPlaylist(t *testing.T) {
	env := newTestModel(t)
	m := withState(env.model, api.PlaybackState{Index: 0, Queue: testTracks, CurrentTrack: testTracks[0]})

	m, _ = update(t, m, keyMsg("w"))

	all := env.model.deps.Playlists.GetAll()
	if len(all) != 1 || len(all[0].Tracks) != 3 {
		t.Fatalf("playlists = %+v", all)
	}
	if len(m.playlistView.Playlists) != 1 {
		t.Errorf("playlist view not refreshed")
	}

	// play from the saved playlist
	m, _ = update(t, m, keyMsg("4"))
	m, _ = update(t, m, keyMsg("enter"))
	update(t, m, keyMsg("enter"))

	if got := env.ctrl.calls; len(got) != 1 || got[0] != "play t1 3" {
		t.Errorf("calls = %v", got)
	}

	m, cmd := update(t, m, views.PlaylistDeleteMsg{ID: all[0].ID})
	m = drain(t, m, cmd)
	if len(m.playlistView.Playlists) != 0 {
		t.Errorf("playlist not removed from view")
	}
}

func TestStateSubscription(t *testing.T) {
	env := newTestModel(t)
	m := env.model

	cmd := m.Init()
	want := api.PlaybackState{Status: api.StatusPaused, CurrentTrack: testTracks[2], Index: 2, Queue: testTracks}

	go func() {
		// events without a snapshot are skipped
		env.ctrl.bus.Publish(api.AudioEvent{Type: api.EventStateChange})
		env.ctrl.bus.Publish(api.AudioEvent{Type: api.EventStateChange, State: &want})
	}()

	msg, ok := cmd().(stateMsg)
	if !ok {
		t.Fatal("expected a stateMsg")
	}
	m, next := update(t, m, msg)
	if next == nil {
		t.Error("model should keep listening for state")
	}
	if m.state.Status != api.StatusPaused || m.state.CurrentTrack.ID != "t3" {
		t.Errorf("state = %+v", m.state)
	}
	if !strings.Contains(m.View(), "Three") {
		t.Error("view should render the current track")
	}
}

func TestCapturingSearchSwallowsKeys(t *testing.T) {
	env := newTestModel(t)

	m, _ := update(t, env.model, keyMsg("/"))
	if !m.searchView.Capturing() {
		t.Fatal("search box should be focused")
	}

	for _, k := range []string{"n", "p", " ", "q"} {
		m, _ = update(t, m, keyMsg(k))
	}
	if len(env.ctrl.calls) != 0 {
		t.Errorf("typing should not drive the player, calls = %v", env.ctrl.calls)
	}
	if got := m.searchView.SearchBar.Value(); got != "np q" {
		t.Errorf("query = %q", got)
	}
}
