package player

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/playlist"
	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/pkg/events"
)

// Controller owns the playback queue and transport state and drives a single
// Backend. All methods are safe for concurrent use; structural misuse such as
// an out of range index or an empty queue is a silent no-op.
type Controller struct {
	backend Backend
	queue   *playlist.Queue
	bus     *events.EventBus
	store   QueueStore
	logger  *log.Logger
	rng     *rand.Rand

	status    api.Status
	isPlaying bool
	position  time.Duration
	duration  time.Duration
	volume    float64
	muted     bool
	repeat    bool
	shuffle   bool

	// session identifies the current load; backend events from older
	// sessions are dropped.
	session uint64

	detach func()
	done   chan struct{}

	mu sync.Mutex
}

// New creates a controller driving backend
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		queue:   playlist.NewQueue(),
		bus:     events.NewEventBus(),
		logger:  shared.Discard(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		status:  api.StatusIdle,
		volume:  1.0,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.backend.SetVolume(c.volume); err != nil {
		c.logger.Warn("failed to set initial volume", "err", err)
	}
	return c
}

// Attach starts consuming backend events until ctx is done or Close is called
func (c *Controller) Attach(ctx context.Context) {
	c.mu.Lock()
	if c.detach != nil {
		c.mu.Unlock()
		return
	}
	ch, unsubscribe := c.backend.Subscribe()
	done := make(chan struct{})
	c.detach = unsubscribe
	c.done = done
	c.mu.Unlock()

	go c.pump(ctx, ch, done)
}

func (c *Controller) pump(ctx context.Context, ch <-chan api.AudioEvent, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.HandleEvent(ev)
		}
	}
}

// Close detaches from the backend, waits for the event pump to exit and
// closes every state subscription.
func (c *Controller) Close() error {
	c.mu.Lock()
	detach, done := c.detach, c.done
	c.detach, c.done = nil, nil
	c.mu.Unlock()

	if detach != nil {
		detach()
		<-done
	}
	c.bus.Close()
	return nil
}

// Subscribe returns a channel of StateChange events carrying state snapshots
func (c *Controller) Subscribe() (<-chan api.AudioEvent, func()) {
	return c.bus.Subscribe(api.EventStateChange)
}

// State returns a snapshot of the queue and transport state
func (c *Controller) State() api.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Play adopts queue (or [track] when queue is empty) and plays track. The
// position is the index of track within queue, or 0 when it is not there.
func (c *Controller) Play(track *api.Track, queue []*api.Track) {
	queue = slices.DeleteFunc(slices.Clone(queue), func(t *api.Track) bool { return t == nil })

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(queue) > 0 {
		c.queue.Set(queue, indexOf(queue, track))
	} else {
		if track == nil {
			return
		}
		c.queue.Set([]*api.Track{track}, 0)
	}

	c.saveLocked()
	c.loadLocked(c.queue.Index())
	c.publishLocked()
}

// PlayAt plays the queue entry at index
func (c *Controller) PlayAt(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= c.queue.Len() {
		return
	}
	c.loadLocked(index)
	c.publishLocked()
}

// Restore adopts tracks as the queue without starting playback
func (c *Controller) Restore(tracks []*api.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.queue.Set(tracks, api.NoPosition)
	c.publishLocked()
}

// TogglePlayPause pauses while playing and resumes while paused. From idle,
// ended or error it (re)loads the current entry, or the first one when
// nothing is selected.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return
	}

	switch c.status {
	case api.StatusLoading:
		return
	case api.StatusPlaying:
		if err := c.backend.Pause(); err != nil {
			c.logger.Warn("pause failed", "err", err)
		}
		c.status = api.StatusPaused
		c.isPlaying = false
	case api.StatusPaused:
		if err := c.backend.Resume(); err != nil {
			c.failLocked("resume", err)
			break
		}
		c.status = api.StatusPlaying
		c.isPlaying = true
	default:
		index := c.queue.Index()
		if index == api.NoPosition {
			index = 0
		}
		c.loadLocked(index)
	}
	c.publishLocked()
}

// Next advances to the following entry, wrapping to the start. With shuffle
// on it picks a uniformly random entry instead.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nextLocked() {
		c.publishLocked()
	}
}

// Previous restarts the current track when more than RestartThreshold into
// it; otherwise it steps back one entry (wrapping to the end), or picks a
// random entry with shuffle on.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.queue.Len()
	if n == 0 {
		return
	}

	if c.queue.Current() != nil && c.position > RestartThreshold {
		c.seekLocked(0)
		c.publishLocked()
		return
	}

	var index int
	switch cur := c.queue.Index(); {
	case c.shuffle:
		index = c.rng.IntN(n)
	case cur <= 0:
		index = n - 1
	default:
		index = cur - 1
	}
	c.loadLocked(index)
	c.publishLocked()
}

// Seek moves the playback position, clamped to the track bounds. The new
// position is reported immediately without waiting for the backend.
func (c *Controller) Seek(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Current() == nil {
		return
	}
	c.seekLocked(pos)
	c.publishLocked()
}

// SetVolume clamps v to [0, 1] and applies it. A positive volume unmutes.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v = clampVolume(v)
	if err := c.backend.SetVolume(v); err != nil {
		c.logger.Warn("set volume failed", "volume", v, "err", err)
	}
	c.volume = v

	if v > 0 && c.muted {
		c.setMutedLocked(false)
	}
	c.publishLocked()
}

// ToggleMute flips the mute flag
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setMutedLocked(!c.muted)
	c.publishLocked()
}

// ToggleRepeat flips whether an ended track replays
func (c *Controller) ToggleRepeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repeat = !c.repeat
	c.publishLocked()
}

// ToggleShuffle flips random index selection for Next and Previous
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shuffle = !c.shuffle
	c.publishLocked()
}

// AddToQueue appends track to the end of the queue
func (c *Controller) AddToQueue(track *api.Track) {
	if track == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.Add(track)
	c.saveLocked()
	c.publishLocked()
}

// RemoveFromQueue deletes the entry at index. Removing the current entry
// stops playback and clears the position.
func (c *Controller) RemoveFromQueue(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasCurrent, err := c.queue.Remove(index)
	if err != nil {
		return
	}
	if wasCurrent || c.queue.Len() == 0 {
		c.stopLocked()
	}
	c.saveLocked()
	c.publishLocked()
}

// Reorder moves the entry at from to to; the position follows the current track
func (c *Controller) Reorder(from, to int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.queue.Move(from, to); err != nil {
		return
	}
	c.saveLocked()
	c.publishLocked()
}

// Clear stops playback and empties the queue
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.queue.Clear()
	c.saveLocked()
	c.publishLocked()
}

// HandleEvent applies a backend event. Events whose session is not the
// current load are ignored.
func (c *Controller) HandleEvent(ev api.AudioEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Session != c.session || c.queue.Current() == nil {
		c.logger.Debug("dropping stale event", "type", ev.Type, "session", ev.Session, "current", c.session)
		return
	}

	switch ev.Type {
	case api.EventTrackStarted:
		c.status = api.StatusPlaying
		c.isPlaying = true
		if ev.Duration > 0 {
			c.duration = ev.Duration
		}
	case api.EventDurationKnown:
		c.duration = ev.Duration
	case api.EventPositionUpdate:
		c.position = ev.Position
	case api.EventTrackEnded:
		c.status = api.StatusEnded
		c.isPlaying = false
		c.position = c.duration
		if c.repeat {
			c.loadLocked(c.queue.Index())
		} else {
			c.nextLocked()
		}
	case api.EventError:
		c.failLocked("playback", ev.Err)
	default:
		return
	}
	c.publishLocked()
}

func (c *Controller) nextLocked() bool {
	n := c.queue.Len()
	if n == 0 {
		return false
	}

	var index int
	if c.shuffle {
		index = c.rng.IntN(n)
	} else {
		index = (c.queue.Index() + 1) % n
	}
	c.loadLocked(index)
	return true
}

// loadLocked selects index and asks the backend to start it under a new session
func (c *Controller) loadLocked(index int) {
	if c.queue.At(index) == nil {
		return
	}
	if err := c.queue.JumpTo(index); err != nil {
		return
	}
	track := c.queue.Current()

	c.session++
	c.status = api.StatusLoading
	c.isPlaying = false
	c.position = 0
	c.duration = track.Duration

	if err := c.backend.Load(track, c.session); err != nil {
		c.failLocked("load", err)
	}
}

func (c *Controller) seekLocked(pos time.Duration) {
	if pos < 0 {
		pos = 0
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	if err := c.backend.Seek(pos); err != nil {
		c.logger.Warn("seek failed", "position", pos, "err", err)
	}
	c.position = pos
}

func (c *Controller) setMutedLocked(muted bool) {
	if err := c.backend.SetMuted(muted); err != nil {
		c.logger.Warn("set muted failed", "muted", muted, "err", err)
	}
	c.muted = muted
}

// stopLocked halts the backend and resets the transport to idle with no position
func (c *Controller) stopLocked() {
	if c.status != api.StatusIdle {
		if err := c.backend.Stop(); err != nil {
			c.logger.Warn("stop failed", "err", err)
		}
	}
	c.queue.Unselect()
	c.session++
	c.status = api.StatusIdle
	c.isPlaying = false
	c.position = 0
	c.duration = 0
}

// failLocked parks on the current track without retrying
func (c *Controller) failLocked(op string, err error) {
	track := c.queue.Current()
	l := c.logger.With("op", op)
	if track != nil {
		l = l.With("track", track.ID, "source", track.Source)
	}
	l.Error("playback failed", "err", err)

	c.status = api.StatusError
	c.isPlaying = false
}

func (c *Controller) saveLocked() {
	if c.store == nil {
		return
	}
	if err := c.store.SaveQueue(c.queue.GetAll()); err != nil {
		c.logger.Warn("failed to save queue snapshot", "err", err)
	}
}

func (c *Controller) stateLocked() api.PlaybackState {
	return api.PlaybackState{
		Status:       c.status,
		IsPlaying:    c.isPlaying,
		CurrentTrack: c.queue.Current(),
		Index:        c.queue.Index(),
		Queue:        c.queue.GetAll(),
		Position:     c.position,
		Duration:     c.duration,
		Volume:       c.volume,
		Muted:        c.muted,
		Repeat:       c.repeat,
		Shuffle:      c.shuffle,
	}
}

func (c *Controller) publishLocked() {
	state := c.stateLocked()
	c.bus.Publish(api.AudioEvent{
		Type:     api.EventStateChange,
		Session:  c.session,
		Position: state.Position,
		Duration: state.Duration,
		State:    &state,
	})
}

// indexOf finds track in queue by identity, then by ID; 0 when absent
func indexOf(queue []*api.Track, track *api.Track) int {
	if track == nil {
		return 0
	}
	for i, t := range queue {
		if t == track {
			return i
		}
	}
	for i, t := range queue {
		if t != nil && t.ID == track.ID {
			return i
		}
	}
	return 0
}
