// Package library indexes audio files on disk and serves them as the "local"
// catalog source.
package library

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jscyril/vibestream/api"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// facet maps a tag value (artist, album) to the IDs of tracks carrying it
type facet map[string]map[string]struct{}

func (f facet) add(key, id string) {
	if key == "" {
		return
	}
	if f[key] == nil {
		f[key] = make(map[string]struct{})
	}
	f[key][id] = struct{}{}
}

func (f facet) remove(key, id string) {
	delete(f[key], id)
	if len(f[key]) == 0 {
		delete(f, key)
	}
}

// Library is the local music collection. The exported fields are what gets
// persisted; the facets are rebuilt on load.
type Library struct {
	Tracks      map[string]*api.Track `json:"tracks"`
	ScanPaths   []string              `json:"scan_paths"`
	LastScanned time.Time             `json:"last_scanned"`
	TotalTracks int                   `json:"total_tracks"`

	artists facet
	albums  facet

	mu      sync.RWMutex
	scanner *Scanner
}

// NewLibrary creates a new empty library
func NewLibrary() *Library {
	l := &Library{Tracks: make(map[string]*api.Track)}
	l.init()
	return l
}

func (l *Library) init() {
	if l.Tracks == nil {
		l.Tracks = make(map[string]*api.Track)
	}
	l.artists = make(facet)
	l.albums = make(facet)
	for id, t := range l.Tracks {
		l.artists.add(t.Artist, id)
		l.albums.add(t.Album, id)
	}
	l.TotalTracks = len(l.Tracks)
	l.scanner = NewScanner(defaultWorkers)
}

// AddTrack inserts or replaces a track
func (l *Library) AddTrack(track *api.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(track)
}

func (l *Library) putLocked(track *api.Track) {
	if old, ok := l.Tracks[track.ID]; ok {
		l.artists.remove(old.Artist, old.ID)
		l.albums.remove(old.Album, old.ID)
	}
	l.Tracks[track.ID] = track
	l.artists.add(track.Artist, track.ID)
	l.albums.add(track.Album, track.ID)
	l.TotalTracks = len(l.Tracks)
}

// Get returns a track by ID
func (l *Library) Get(id string) (*api.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	track, ok := l.Tracks[id]
	if !ok {
		return nil, playerrors.ErrTrackNotFound
	}
	return track, nil
}

// All returns every track ordered by artist, album and track number
func (l *Library) All() []*api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collectLocked(func(*api.Track) bool { return true })
}

// ByArtist returns the tracks of one artist in album order
func (l *Library) ByArtist(artist string) []*api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fromFacetLocked(l.artists, artist)
}

// ByAlbum returns the tracks of one album in track order
func (l *Library) ByAlbum(album string) []*api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fromFacetLocked(l.albums, album)
}

func (l *Library) fromFacetLocked(f facet, key string) []*api.Track {
	ids := f[key]
	if len(ids) == 0 {
		return nil
	}
	return l.collectLocked(func(t *api.Track) bool {
		_, ok := ids[t.ID]
		return ok
	})
}

func (l *Library) collectLocked(keep func(*api.Track) bool) []*api.Track {
	tracks := make([]*api.Track, 0, len(l.Tracks))
	for _, t := range l.Tracks {
		if keep(t) {
			tracks = append(tracks, t)
		}
	}
	slices.SortFunc(tracks, func(a, b *api.Track) int {
		return cmp.Or(
			cmp.Compare(a.Artist, b.Artist),
			cmp.Compare(a.Album, b.Album),
			cmp.Compare(a.TrackNum, b.TrackNum),
			cmp.Compare(a.Title, b.Title),
		)
	})
	return tracks
}

// Name identifies the library as a catalog source
func (l *Library) Name() string { return string(api.SourceLocal) }

// Search implements catalog.Source over Find
func (l *Library) Search(ctx context.Context, query string, limit int) ([]*api.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := l.Find(query)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// matchRank orders hits: title before artist before album; -1 is no match
func matchRank(t *api.Track, query string) int {
	for rank, field := range []string{t.Title, t.Artist, t.Album} {
		if strings.Contains(strings.ToLower(field), query) {
			return rank
		}
	}
	return -1
}

// Find returns tracks whose title, artist or album contains query,
// case-insensitively, title hits first.
func (l *Library) Find(query string) []*api.Track {
	query = strings.ToLower(strings.TrimSpace(query))

	l.mu.RLock()
	defer l.mu.RUnlock()

	type hit struct {
		track *api.Track
		rank  int
	}
	var hits []hit
	for _, t := range l.Tracks {
		if r := matchRank(t, query); r >= 0 {
			hits = append(hits, hit{t, r})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		return cmp.Or(cmp.Compare(a.rank, b.rank), cmp.Compare(a.track.Title, b.track.Title))
	})

	results := make([]*api.Track, len(hits))
	for i, h := range hits {
		results[i] = h.track
	}
	return results
}

// RemoveTrack removes a track from the library
func (l *Library) RemoveTrack(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	track, ok := l.Tracks[id]
	if !ok {
		return playerrors.ErrTrackNotFound
	}
	l.artists.remove(track.Artist, id)
	l.albums.remove(track.Album, id)
	delete(l.Tracks, id)
	l.TotalTracks = len(l.Tracks)
	return nil
}

// Scan adds every supported file under paths. A rescan updates existing
// entries in place since IDs derive from the file path.
func (l *Library) Scan(ctx context.Context, paths []string) error {
	err := l.scanner.Scan(ctx, paths, l.AddTrack)

	l.mu.Lock()
	l.ScanPaths = paths
	l.LastScanned = time.Now()
	l.mu.Unlock()
	return err
}

// AddFile adds a single file from any location to the library
func (l *Library) AddFile(path string) (*api.Track, error) {
	track, err := l.scanner.ScanFile(path)
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	l.AddTrack(track)
	return track, nil
}

// Save writes the library to path as JSON, replacing it atomically
func (l *Library) Save(path string) error {
	l.mu.RLock()
	data, err := json.MarshalIndent(l, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write library file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadLibrary reads a saved library. A missing file yields an empty one.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewLibrary(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}

	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("unmarshal library: %w", err)
	}
	lib.init()
	return &lib, nil
}
