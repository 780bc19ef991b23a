package audio

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/player"
	"github.com/jscyril/vibestream/internal/shared"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
	"github.com/jscyril/vibestream/pkg/events"
)

// Ensure Engine implements player.Backend at compile time
var _ player.Backend = (*Engine)(nil)

// outputRate is the speaker rate; decoded streams are resampled to it
const outputRate = beep.SampleRate(44100)

// PositionInterval is how often TimeUpdate events are emitted while playing
const PositionInterval = 500 * time.Millisecond

// Engine plays local files and remote audio URLs through the system
// speaker. Commands are processed by a single goroutine; decoding happens
// off that goroutine so a slow download never blocks pause or stop.
type Engine struct {
	commands chan api.AudioCommand
	loaded   chan *prepared
	bus      *events.EventBus
	client   *http.Client
	logger   *log.Logger
	done     chan struct{}

	mu          sync.RWMutex
	session     uint64
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	level       float64
	muted       bool
	speakerInit bool
	cancelLoad  context.CancelFunc
}

// prepared is a decoded track waiting to be handed to the speaker
type prepared struct {
	session  uint64
	track    *api.Track
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithHTTPClient sets the client used to fetch remote media
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithEngineLogger sets the engine logger
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a new audio engine instance
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		commands: make(chan api.AudioCommand, 16),
		loaded:   make(chan *prepared),
		bus:      events.NewEventBus(),
		client:   &http.Client{Timeout: time.Minute},
		logger:   shared.Discard(),
		done:     make(chan struct{}),
		level:    1.0,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins the audio engine goroutines
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
	go e.trackPosition(ctx)
}

// Done is closed once the engine has shut down
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Subscribe returns the engine event stream and its cancel func
func (e *Engine) Subscribe() (<-chan api.AudioEvent, func()) {
	return e.bus.SubscribeAll()
}

// run is the main command processing loop
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			e.cleanup()
			return

		case p := <-e.loaded:
			e.startPlayback(p)

		case cmd := <-e.commands:
			switch cmd.Type {
			case api.CmdLoad:
				track := cmd.Payload.(*api.Track)
				e.stopPlayback()
				e.mu.Lock()
				e.session = cmd.Session
				loadCtx, cancel := context.WithCancel(ctx)
				e.cancelLoad = cancel
				e.mu.Unlock()
				go e.prepare(loadCtx, track, cmd.Session)

			case api.CmdPause:
				e.setPaused(true)

			case api.CmdResume:
				e.setPaused(false)

			case api.CmdStop:
				e.stopPlayback()

			case api.CmdVolume:
				e.mu.Lock()
				e.level = cmd.Payload.(float64)
				e.applyVolumeLocked()
				e.mu.Unlock()

			case api.CmdMute:
				e.mu.Lock()
				e.muted = cmd.Payload.(bool)
				e.applyVolumeLocked()
				e.mu.Unlock()

			case api.CmdSeek:
				e.seekTo(cmd.Payload.(time.Duration))
			}
		}
	}
}

// prepare opens and decodes a track, then hands it to the run loop
func (e *Engine) prepare(ctx context.Context, track *api.Track, session uint64) {
	r, hint, err := openMedia(ctx, e.client, track.MediaURL)
	if err != nil {
		e.fail(ctx, session, playerrors.NewPlayerError("open", track.ID, err))
		return
	}

	streamer, format, err := DecodeAudio(r, hint)
	if err != nil {
		r.Close()
		e.fail(ctx, session, playerrors.NewPlayerError("decode", track.ID, err))
		return
	}

	select {
	case e.loaded <- &prepared{session: session, track: track, streamer: streamer, format: format}:
	case <-ctx.Done():
		streamer.Close()
	}
}

func (e *Engine) fail(ctx context.Context, session uint64, err error) {
	if ctx.Err() != nil {
		return
	}
	e.logger.Error("load failed", "session", session, "err", err)
	e.bus.Publish(api.AudioEvent{Type: api.EventError, Session: session, Err: err})
}

// startPlayback hands a decoded stream to the speaker
func (e *Engine) startPlayback(p *prepared) {
	e.mu.Lock()
	if p.session != e.session {
		e.mu.Unlock()
		p.streamer.Close()
		return
	}

	if !e.speakerInit {
		if err := speaker.Init(outputRate, outputRate.N(time.Second/10)); err != nil {
			e.mu.Unlock()
			p.streamer.Close()
			e.bus.Publish(api.AudioEvent{
				Type:    api.EventError,
				Session: p.session,
				Err:     playerrors.NewPlayerError("speaker_init", p.track.ID, err),
			})
			return
		}
		e.speakerInit = true
	}

	var source beep.Streamer = p.streamer
	if p.format.SampleRate != outputRate {
		source = beep.Resample(4, p.format.SampleRate, outputRate, p.streamer)
	}

	e.streamer = p.streamer
	e.format = p.format
	e.ctrl = &beep.Ctrl{Streamer: source, Paused: false}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2}
	e.applyVolumeLocked()
	vol := e.volume
	e.mu.Unlock()

	session := p.session
	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		e.bus.Publish(api.AudioEvent{Type: api.EventTrackEnded, Session: session})
	})))

	duration := p.format.SampleRate.D(p.streamer.Len())
	e.bus.Publish(api.AudioEvent{Type: api.EventDurationKnown, Session: session, Duration: duration})
	e.bus.Publish(api.AudioEvent{Type: api.EventTrackStarted, Session: session, Duration: duration})
}

// trackPosition publishes playback position periodically
func (e *Engine) trackPosition(ctx context.Context) {
	ticker := time.NewTicker(PositionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.RLock()
			if e.streamer == nil || e.ctrl == nil {
				e.mu.RUnlock()
				continue
			}
			speaker.Lock()
			paused := e.ctrl.Paused
			pos := e.format.SampleRate.D(e.streamer.Position())
			speaker.Unlock()
			session := e.session
			e.mu.RUnlock()

			if !paused {
				e.bus.Publish(api.AudioEvent{Type: api.EventPositionUpdate, Session: session, Position: pos})
			}
		}
	}
}

func (e *Engine) setPaused(paused bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = paused
	speaker.Unlock()
}

// applyVolumeLocked maps the linear level onto the exponential volume effect
func (e *Engine) applyVolumeLocked() {
	if e.volume == nil {
		return
	}
	gain, silent := volumeFor(e.level, e.muted)
	if e.speakerInit {
		speaker.Lock()
		defer speaker.Unlock()
	}
	e.volume.Volume = gain
	e.volume.Silent = silent
}

// volumeFor returns the base-2 exponent for level and whether output is silent
func volumeFor(level float64, muted bool) (float64, bool) {
	if muted || level <= 0 {
		return 0, true
	}
	if level > 1 {
		level = 1
	}
	return math.Log2(level), false
}

// stopPlayback stops the current playback and abandons any pending load
func (e *Engine) stopPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
	if e.speakerInit {
		speaker.Clear()
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	e.ctrl = nil
	e.volume = nil
}

// seekTo seeks to a specific position
func (e *Engine) seekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return
	}
	n := e.format.SampleRate.N(pos)
	if last := e.streamer.Len() - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}

	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		e.logger.Warn("seek failed", "position", pos, "err", err)
	}
}

// cleanup releases resources
func (e *Engine) cleanup() {
	e.stopPlayback()
	e.bus.Close()
}

func (e *Engine) send(cmd api.AudioCommand) error {
	select {
	case <-e.done:
		return playerrors.ErrBackendClosed
	default:
	}
	select {
	case e.commands <- cmd:
		return nil
	case <-e.done:
		return playerrors.ErrBackendClosed
	}
}

// Load starts playing track. Readiness and failures arrive as events
// tagged with session.
func (e *Engine) Load(track *api.Track, session uint64) error {
	if track == nil {
		return playerrors.ErrTrackNotFound
	}
	if track.MediaURL == "" {
		return playerrors.NewPlayerError("load", track.ID, playerrors.ErrUnplayable)
	}
	return e.send(api.AudioCommand{Type: api.CmdLoad, Session: session, Payload: track})
}

// Pause pauses playback
func (e *Engine) Pause() error {
	return e.send(api.AudioCommand{Type: api.CmdPause})
}

// Resume resumes playback
func (e *Engine) Resume() error {
	return e.send(api.AudioCommand{Type: api.CmdResume})
}

// Stop stops playback
func (e *Engine) Stop() error {
	return e.send(api.AudioCommand{Type: api.CmdStop})
}

// Seek seeks to the specified position
func (e *Engine) Seek(position time.Duration) error {
	if position < 0 {
		return errors.New("negative seek position")
	}
	return e.send(api.AudioCommand{Type: api.CmdSeek, Payload: position})
}

// SetVolume sets the volume level (0.0 to 1.0)
func (e *Engine) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return playerrors.ErrInvalidInput
	}
	return e.send(api.AudioCommand{Type: api.CmdVolume, Payload: level})
}

// SetMuted silences or restores output without touching the volume level
func (e *Engine) SetMuted(muted bool) error {
	return e.send(api.AudioCommand{Type: api.CmdMute, Payload: muted})
}
