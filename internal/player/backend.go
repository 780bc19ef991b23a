// Package player implements the playback queue controller: the single owner
// of what is playing, what is queued, and how transport commands interact.
package player

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/api"
)

// Backend is the playback engine the controller drives. Load is expected to
// return quickly and report readiness, progress and failure asynchronously
// through Subscribe, tagging each event with the session it was given.
type Backend interface {
	Load(track *api.Track, session uint64) error
	Pause() error
	Resume() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(v float64) error
	SetMuted(muted bool) error

	// Subscribe returns the backend event stream and a func that detaches it.
	Subscribe() (<-chan api.AudioEvent, func())
}

// QueueStore receives a copy of the queue after each structural change
type QueueStore interface {
	SaveQueue(tracks []*api.Track) error
}

// RestartThreshold is how far into a track Previous restarts it instead of
// moving back.
const RestartThreshold = 3 * time.Second

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger used for load failures and dropped events
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueueStore mirrors the queue into s after each mutation
func WithQueueStore(s QueueStore) Option {
	return func(c *Controller) {
		c.store = s
	}
}

// WithRand sets the source of shuffle picks
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithVolume sets the initial volume, clamped to [0, 1]
func WithVolume(v float64) Option {
	return func(c *Controller) {
		c.volume = clampVolume(v)
	}
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
