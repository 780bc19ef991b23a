package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/player"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// Player is the controller surface the player API drives
type Player interface {
	State() api.PlaybackState
	Subscribe() (<-chan api.AudioEvent, func())
	Play(track *api.Track, queue []*api.Track)
	PlayAt(index int)
	TogglePlayPause()
	Next()
	Previous()
	Seek(pos time.Duration)
	SetVolume(v float64)
	ToggleMute()
	ToggleRepeat()
	ToggleShuffle()
	AddToQueue(track *api.Track)
	RemoveFromQueue(index int)
	Reorder(from, to int)
	Clear()
}

var _ Player = (*player.Controller)(nil)

const (
	playerPrefix = "/api/player/"
	wsWriteWait  = 5 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PlayerHandler maps REST commands onto the playback controller and streams
// state over a websocket
type PlayerHandler struct {
	player Player
	logger *log.Logger
}

func NewPlayerHandler(p Player, logger *log.Logger) *PlayerHandler {
	return &PlayerHandler{player: p, logger: logger}
}

func (h *PlayerHandler) Routes() []string { return []string{playerPrefix} }

func (h *PlayerHandler) Methods() []string {
	return []string{http.MethodGet, http.MethodPost}
}

type playRequest struct {
	Index *int         `json:"index"`
	Track *api.Track   `json:"track"`
	Queue []*api.Track `json:"queue"`
}

type seekRequest struct {
	Seconds float64 `json:"seconds"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

type queueRequest struct {
	Track *api.Track `json:"track"`
	Index int        `json:"index"`
	From  int        `json:"from"`
	To    int        `json:"to"`
}

func (h *PlayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, playerPrefix), "/")

	if r.Method == http.MethodGet {
		switch action {
		case "", "state":
			writeJSON(w, http.StatusOK, h.player.State())
		case "ws":
			h.stream(w, r)
		default:
			writeError(w, http.StatusNotFound, "unknown player endpoint")
		}
		return
	}

	if err := h.command(r, action); err != nil {
		if errors.Is(err, errUnknownAction) {
			writeError(w, http.StatusNotFound, "unknown player endpoint")
			return
		}
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.player.State())
}

var errUnknownAction = errors.New("unknown player action")

// command runs one POST action against the controller
func (h *PlayerHandler) command(r *http.Request, action string) error {
	p := h.player

	switch action {
	case "play":
		var req playRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		switch {
		case req.Track != nil:
			p.Play(req.Track, req.Queue)
		case req.Index != nil:
			p.PlayAt(*req.Index)
		default:
			return invalid("play needs a track or an index")
		}
	case "toggle":
		p.TogglePlayPause()
	case "next":
		p.Next()
	case "previous":
		p.Previous()
	case "seek":
		var req seekRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		p.Seek(time.Duration(req.Seconds * float64(time.Second)))
	case "volume":
		var req volumeRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if req.Volume == nil {
			return invalid("volume is required")
		}
		p.SetVolume(*req.Volume)
	case "mute":
		p.ToggleMute()
	case "repeat":
		p.ToggleRepeat()
	case "shuffle":
		p.ToggleShuffle()
	case "queue/add", "queue/remove", "queue/reorder", "queue/clear":
		var req queueRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		switch action {
		case "queue/add":
			if req.Track == nil {
				return invalid("track is required")
			}
			p.AddToQueue(req.Track)
		case "queue/remove":
			p.RemoveFromQueue(req.Index)
		case "queue/reorder":
			p.Reorder(req.From, req.To)
		case "queue/clear":
			p.Clear()
		}
	default:
		return errUnknownAction
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", playerrors.ErrInvalidInput, msg)
}

// stream pushes the current state, then every state change, until the
// client goes away
func (h *PlayerHandler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := h.player.Subscribe()
	defer cancel()

	// Drain client frames so close and ping frames are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(state api.PlaybackState) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(state) == nil
	}

	if !send(h.player.State()) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "player closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if ev.State == nil {
				continue
			}
			if !send(*ev.State) {
				return
			}
		}
	}
}
