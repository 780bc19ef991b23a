package library

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/audio"
)

const unknownArtist = "Unknown Artist"

// readFunc turns one audio file into a track
type readFunc func(path string) (*api.Track, error)

// readTrack builds a local track from the file's tags. Files without tags
// still yield a track titled after the file name.
func readTrack(path string) (*api.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	track := &api.Track{
		ID:        trackID(path),
		Title:     titleFromFilename(path),
		Artist:    unknownArtist,
		MediaURL:  path,
		Duration:  probeDuration(path),
		Source:    api.SourceLocal,
		CreatedAt: time.Now(),
	}

	m, err := tag.ReadFrom(f)
	if err != nil {
		return track, nil
	}

	track.Title = cmp.Or(strings.TrimSpace(m.Title()), track.Title)
	track.Artist = cmp.Or(strings.TrimSpace(m.Artist()), strings.TrimSpace(m.AlbumArtist()), unknownArtist)
	track.Album = strings.TrimSpace(m.Album())
	track.Genre = strings.TrimSpace(m.Genre())
	track.Year = m.Year()
	track.TrackNum, _ = m.Track()
	return track, nil
}

// probeDuration decodes the stream header to learn the track length; 0 when unknown
func probeDuration(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}

	streamer, format, err := audio.DecodeAudio(f, path)
	if err != nil {
		f.Close()
		return 0
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len())
}

// trackID is stable for a given path so rescans update rather than duplicate
func trackID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return "local-" + hex.EncodeToString(sum[:8])
}

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
