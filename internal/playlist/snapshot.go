package playlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jscyril/vibestream/api"
)

// SnapshotFile mirrors the playback queue into a JSON file so it can be
// restored on the next start. It is a convenience cache, not authoritative.
type SnapshotFile struct {
	path string
	mu   sync.Mutex
}

type snapshot struct {
	Tracks []*api.Track `json:"tracks"`
}

// NewSnapshotFile creates a snapshot store backed by path
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the backing file path
func (s *SnapshotFile) Path() string {
	return s.path
}

// SaveQueue writes tracks to disk, replacing any previous snapshot
func (s *SnapshotFile) SaveQueue(tracks []*api.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tracks == nil {
		tracks = []*api.Track{}
	}
	return writeJSON(s.path, snapshot{Tracks: tracks})
}

// LoadQueue reads the last snapshot. A missing file yields an empty queue.
func (s *SnapshotFile) LoadQueue() ([]*api.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap snapshot
	if err := readJSON(s.path, &snap); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return snap.Tracks, nil
}

// writeJSON replaces path with v encoded as JSON, via a temp file and rename
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// readJSON decodes path into v; a missing file is returned unwrapped so
// callers can test it with os.IsNotExist.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
