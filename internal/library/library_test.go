package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/jscyril/vibestream/api"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// writeWAV writes one second of silence to dir/name
func writeWAV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Take(22050, beep.Silence(-1)), format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return path
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "album")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	first := writeWAV(t, dir, "Morning Rain.wav")
	writeWAV(t, nested, "Night Drive.wav")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	if err := lib.Scan(context.Background(), []string{dir}); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if lib.TotalTracks != 2 {
		t.Fatalf("expected 2 tracks, got %d", lib.TotalTracks)
	}

	track, err := lib.Get(trackID(first))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if track.Title != "Morning Rain" {
		t.Errorf("Title = %q", track.Title)
	}
	if track.Source != api.SourceLocal || track.MediaURL != first {
		t.Errorf("expected local track at %s, got %+v", first, track)
	}
	if track.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", track.Duration)
	}

	t.Run("rescan does not duplicate index entries", func(t *testing.T) {
		if err := lib.Scan(context.Background(), []string{dir}); err != nil {
			t.Fatal(err)
		}
		if got := len(lib.ByArtist("Unknown Artist")); got != 2 {
			t.Errorf("expected 2 indexed tracks, got %d", got)
		}
	})

	t.Run("Search", func(t *testing.T) {
		results, err := lib.Search(context.Background(), "night", 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].Title != "Night Drive" {
			t.Errorf("unexpected results %v", results)
		}

		limited, _ := lib.Search(context.Background(), "unknown", 1)
		if len(limited) != 1 {
			t.Errorf("limit not applied, got %d", len(limited))
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := lib.Search(ctx, "night", 10); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context error, got %v", err)
		}
	})

	t.Run("Save and Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "library.json")
		if err := lib.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := LoadLibrary(path)
		if err != nil {
			t.Fatalf("LoadLibrary failed: %v", err)
		}
		if loaded.TotalTracks != 2 || len(loaded.Find("morning")) != 1 {
			t.Errorf("loaded library mismatch: %d tracks", loaded.TotalTracks)
		}
	})

	t.Run("RemoveTrack", func(t *testing.T) {
		if err := lib.RemoveTrack(track.ID); err != nil {
			t.Fatalf("RemoveTrack failed: %v", err)
		}
		if err := lib.RemoveTrack(track.ID); !errors.Is(err, playerrors.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})
}

func TestAddFile(t *testing.T) {
	lib := NewLibrary()
	dir := t.TempDir()

	path := writeWAV(t, dir, "single.wav")
	track, err := lib.AddFile(path)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if track.Source != api.SourceLocal || lib.Name() != "local" {
		t.Errorf("expected local source, got %s / %s", track.Source, lib.Name())
	}

	if _, err := lib.AddFile(filepath.Join(dir, "song.ogg")); !errors.Is(err, playerrors.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestLoadLibraryMissing(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("LoadLibrary failed: %v", err)
	}
	if lib.TotalTracks != 0 {
		t.Error("expected empty library")
	}
}

func TestFindAndFacets(t *testing.T) {
	lib := NewLibrary()
	for _, tr := range []*api.Track{
		{ID: "1", Title: "Blue Monday", Artist: "New Order", Album: "Power, Corruption & Lies", TrackNum: 1},
		{ID: "2", Title: "Age of Consent", Artist: "New Order", Album: "Power, Corruption & Lies", TrackNum: 2},
		{ID: "3", Title: "Ceremony", Artist: "Joy Division", Album: "Still"},
		{ID: "4", Title: "Order", Artist: "Someone", Album: "Misc"},
	} {
		lib.AddTrack(tr)
	}

	t.Run("title hits rank first", func(t *testing.T) {
		got := lib.Find("ORDER")
		if len(got) != 3 || got[0].ID != "4" {
			t.Errorf("Find order = %v", ids(got))
		}
	})

	t.Run("album order follows track number", func(t *testing.T) {
		got := lib.ByAlbum("Power, Corruption & Lies")
		if want := []string{"1", "2"}; !slices.Equal(ids(got), want) {
			t.Errorf("ByAlbum = %v, want %v", ids(got), want)
		}
	})

	t.Run("replacing a track moves it between facets", func(t *testing.T) {
		lib.AddTrack(&api.Track{ID: "3", Title: "Ceremony", Artist: "New Order", Album: "Movement"})
		if got := lib.ByArtist("Joy Division"); got != nil {
			t.Errorf("stale artist facet %v", ids(got))
		}
		if got := len(lib.ByArtist("New Order")); got != 3 {
			t.Errorf("ByArtist = %d tracks, want 3", got)
		}
		if lib.TotalTracks != 4 {
			t.Errorf("TotalTracks = %d", lib.TotalTracks)
		}
	})

	t.Run("All is sorted", func(t *testing.T) {
		if want := []string{"3", "1", "2", "4"}; !slices.Equal(ids(lib.All()), want) {
			t.Errorf("All = %v, want %v", ids(lib.All()), want)
		}
	})
}

func TestScannerReportsErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeWAV(t, dir, "good.wav")
	bad := writeWAV(t, dir, "bad.wav")

	s := NewScanner(2)
	s.read = func(path string) (*api.Track, error) {
		if path == bad {
			return nil, errors.New("corrupt")
		}
		return &api.Track{ID: trackID(path), MediaURL: path}, nil
	}

	var (
		mu  sync.Mutex
		got []string
	)
	err := s.Scan(context.Background(), []string{dir, filepath.Join(dir, "missing")}, func(tr *api.Track) {
		mu.Lock()
		got = append(got, tr.MediaURL)
		mu.Unlock()
	})

	if len(got) != 1 || got[0] != good {
		t.Errorf("added %v, want only %s", got, good)
	}

	var scanErr *playerrors.ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("expected ScanError, got %v", err)
	}
	if !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("error should mention the unreadable file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Scan(ctx, []string{dir}, func(*api.Track) {}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func ids(tracks []*api.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}
