package api

import (
	"time"
)

// Source identifies the catalog a track was fetched from
type Source string

const (
	SourceJamendo Source = "jamendo"
	SourceSpotify Source = "spotify"
	SourceYouTube Source = "youtube"
	SourceLocal   Source = "local"
)

// Track is a playable catalog item normalized from an upstream response
type Track struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	Album     string        `json:"album,omitempty"`
	Thumbnail string        `json:"thumbnail,omitempty"`
	MediaURL  string        `json:"media_url,omitempty"`
	EmbedID   string        `json:"embed_id,omitempty"`
	Duration  time.Duration `json:"duration"`
	Source    Source        `json:"source"`
	Genre     string        `json:"genre,omitempty"`
	Year      int           `json:"year,omitempty"`
	TrackNum  int           `json:"track_number,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Playable reports whether the track carries something a backend can load
func (t *Track) Playable() bool {
	return t != nil && (t.MediaURL != "" || t.EmbedID != "")
}

type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tracks      []Track   `json:"tracks"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status is the transport state of the controller
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets Status render as its name in JSON
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NoPosition marks an empty playback position
const NoPosition = -1

// PlaybackState is a point-in-time copy of the controller's transport state
type PlaybackState struct {
	Status       Status        `json:"status"`
	IsPlaying    bool          `json:"is_playing"`
	CurrentTrack *Track        `json:"current_track"`
	Index        int           `json:"index"`
	Queue        []*Track      `json:"queue"`
	Position     time.Duration `json:"position"`
	Duration     time.Duration `json:"duration"`
	Volume       float64       `json:"volume"`
	Muted        bool          `json:"muted"`
	Repeat       bool          `json:"repeat"`
	Shuffle      bool          `json:"shuffle"`
}

// EventType classifies an AudioEvent
type EventType int

const (
	EventTrackStarted EventType = iota
	EventPositionUpdate
	EventDurationKnown
	EventTrackEnded
	EventError
	EventStateChange
)

func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "started"
	case EventPositionUpdate:
		return "time_update"
	case EventDurationKnown:
		return "duration"
	case EventTrackEnded:
		return "ended"
	case EventError:
		return "error"
	case EventStateChange:
		return "state"
	default:
		return "unknown"
	}
}

// AudioEvent is emitted by a playback backend (or by the controller for
// StateChange). Session ties backend events to the load that produced them.
type AudioEvent struct {
	Type     EventType
	Session  uint64
	Position time.Duration
	Duration time.Duration
	Err      error
	State    *PlaybackState
}

// CommandType enumerates the commands an audio engine loop accepts
type CommandType int

const (
	CmdLoad CommandType = iota
	CmdPause
	CmdResume
	CmdStop
	CmdSeek
	CmdVolume
	CmdMute
)

type AudioCommand struct {
	Type    CommandType
	Session uint64
	Payload any
}
