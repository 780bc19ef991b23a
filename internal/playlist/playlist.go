package playlist

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/shared"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// Manager keeps named playlists, one JSON file per playlist under dir
type Manager struct {
	dir       string
	playlists map[string]*api.Playlist
	now       func() time.Time
	mu        sync.RWMutex
}

// NewManager creates a manager storing playlists in dir
func NewManager(dir string) *Manager {
	return &Manager{
		dir:       dir,
		playlists: make(map[string]*api.Playlist),
		now:       time.Now,
	}
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// Create creates an empty playlist
func (m *Manager) Create(name, description string) (*api.Playlist, error) {
	return m.create(name, description, nil)
}

// FromQueue saves a copy of the queue as a new playlist
func (m *Manager) FromQueue(name string, queue []*api.Track) (*api.Playlist, error) {
	tracks := make([]api.Track, 0, len(queue))
	for _, t := range queue {
		if t != nil {
			tracks = append(tracks, *t)
		}
	}
	if len(tracks) == 0 {
		return nil, playerrors.ErrEmptyQueue
	}
	return m.create(name, fmt.Sprintf("%d tracks saved from the queue", len(tracks)), tracks)
}

func (m *Manager) create(name, description string, tracks []api.Track) (*api.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", playerrors.ErrInvalidInput)
	}
	if tracks == nil {
		tracks = []api.Track{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	pl := &api.Playlist{
		ID:          shared.GenerateID(),
		Name:        name,
		Description: description,
		Tracks:      tracks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := writeJSON(m.path(pl.ID), pl); err != nil {
		return nil, err
	}
	m.playlists[pl.ID] = pl
	return pl, nil
}

// GetByID returns a playlist by its ID
func (m *Manager) GetByID(id string) (*api.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pl, ok := m.playlists[id]
	if !ok {
		return nil, playerrors.ErrPlaylistNotFound
	}
	return pl, nil
}

// GetAll returns all playlists, oldest first
func (m *Manager) GetAll() []*api.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*api.Playlist, 0, len(m.playlists))
	for _, pl := range m.playlists {
		all = append(all, pl)
	}
	slices.SortFunc(all, func(a, b *api.Playlist) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Name, b.Name))
	})
	return all
}

// Tracks returns copies of a playlist's tracks, ready to become a queue
func (m *Manager) Tracks(id string) ([]*api.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pl, ok := m.playlists[id]
	if !ok {
		return nil, playerrors.ErrPlaylistNotFound
	}
	out := make([]*api.Track, len(pl.Tracks))
	for i, t := range pl.Tracks {
		out[i] = &t
	}
	return out, nil
}

// mutate applies fn to a playlist and persists the result. On failure the
// in-memory playlist is left as it was.
func (m *Manager) mutate(id string, fn func(pl *api.Playlist) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pl, ok := m.playlists[id]
	if !ok {
		return playerrors.ErrPlaylistNotFound
	}

	next := *pl
	next.Tracks = slices.Clone(pl.Tracks)
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = m.now()

	if err := writeJSON(m.path(id), &next); err != nil {
		return err
	}
	*pl = next
	return nil
}

// Update renames a playlist
func (m *Manager) Update(id, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", playerrors.ErrInvalidInput)
	}
	return m.mutate(id, func(pl *api.Playlist) error {
		pl.Name, pl.Description = name, description
		return nil
	})
}

// AddTrack appends a copy of track
func (m *Manager) AddTrack(id string, track *api.Track) error {
	if track == nil {
		return playerrors.ErrTrackNotFound
	}
	return m.mutate(id, func(pl *api.Playlist) error {
		pl.Tracks = append(pl.Tracks, *track)
		return nil
	})
}

// RemoveTrack drops the first entry with trackID
func (m *Manager) RemoveTrack(id, trackID string) error {
	return m.mutate(id, func(pl *api.Playlist) error {
		i := slices.IndexFunc(pl.Tracks, func(t api.Track) bool { return t.ID == trackID })
		if i < 0 {
			return playerrors.ErrTrackNotFound
		}
		pl.Tracks = slices.Delete(pl.Tracks, i, i+1)
		return nil
	})
}

// Delete removes a playlist and its file
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.playlists[id]; !ok {
		return playerrors.ErrPlaylistNotFound
	}
	if err := os.Remove(m.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete playlist file: %w", err)
	}
	delete(m.playlists, id)
	return nil
}

// LoadAll reads every playlist file in the directory. Unreadable files are
// skipped and reported together; the rest still load.
func (m *Manager) LoadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read playlist directory: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var pl api.Playlist
		if err := readJSON(filepath.Join(m.dir, e.Name()), &pl); err != nil {
			errs = append(errs, err)
			continue
		}
		if pl.ID == "" {
			errs = append(errs, fmt.Errorf("%s: playlist has no id", e.Name()))
			continue
		}
		m.playlists[pl.ID] = &pl
	}
	return errors.Join(errs...)
}
