package playlist

import (
	"sync"

	"github.com/jscyril/vibestream/api"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// Queue is an ordered playback queue with a current position.
// The position is api.NoPosition when nothing is selected; it is always a
// valid index otherwise.
type Queue struct {
	tracks []*api.Track
	index  int
	mu     sync.RWMutex
}

// NewQueue creates a new empty queue
func NewQueue() *Queue {
	return &Queue{
		tracks: make([]*api.Track, 0),
		index:  api.NoPosition,
	}
}

// Add appends tracks to the end of the queue
func (q *Queue) Add(tracks ...*api.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, compact(tracks)...)
}

// compact returns a copy of tracks without nil entries
func compact(tracks []*api.Track) []*api.Track {
	out := make([]*api.Track, 0, len(tracks))
	for _, t := range tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Set replaces the queue contents and selects index. Nil entries are
// dropped, and index refers to the remaining tracks. An index outside them
// selects nothing (or 0 for a non-empty queue when index >= 0).
func (q *Queue) Set(tracks []*api.Track, index int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = compact(tracks)

	switch {
	case len(q.tracks) == 0 || index < 0:
		q.index = api.NoPosition
	case index >= len(q.tracks):
		q.index = 0
	default:
		q.index = index
	}
}

// Clear removes all tracks from the queue
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]*api.Track, 0)
	q.index = api.NoPosition
}

// Current returns the current track, or nil when no position is set
func (q *Queue) Current() *api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.index < 0 || q.index >= len(q.tracks) {
		return nil
	}
	return q.tracks[q.index]
}

// At returns the track at index i, or nil when out of range
func (q *Queue) At(i int) *api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if i < 0 || i >= len(q.tracks) {
		return nil
	}
	return q.tracks[i]
}

// IndexOf returns the first index whose track has the given ID, or -1
func (q *Queue) IndexOf(id string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for i, t := range q.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// JumpTo sets the current position
func (q *Queue) JumpTo(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return playerrors.ErrIndexOutOfRange
	}

	q.index = index
	return nil
}

// Unselect clears the current position without touching the tracks
func (q *Queue) Unselect() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.index = api.NoPosition
}

// Remove deletes the track at index. It reports whether the removed entry
// was the current one; in that case the position becomes NoPosition.
// Removing before the current entry shifts the position down by one so it
// keeps pointing at the same track.
func (q *Queue) Remove(index int) (wasCurrent bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return false, playerrors.ErrIndexOutOfRange
	}

	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

	switch {
	case index == q.index:
		q.index = api.NoPosition
		wasCurrent = true
	case index < q.index:
		q.index--
	}

	return wasCurrent, nil
}

// Move relocates the track at from to to, translating the current position
// so it keeps referring to the same logical track.
func (q *Queue) Move(from, to int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return playerrors.ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}

	moved := q.tracks[from]
	if from < to {
		copy(q.tracks[from:to], q.tracks[from+1:to+1])
	} else {
		copy(q.tracks[to+1:from+1], q.tracks[to:from])
	}
	q.tracks[to] = moved

	cur := q.index
	switch {
	case cur == api.NoPosition:
	case from == cur:
		q.index = to
	case from < cur && to >= cur:
		q.index--
	case from > cur && to <= cur:
		q.index++
	}

	return nil
}

// GetAll returns a copy of all tracks in the queue
func (q *Queue) GetAll() []*api.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*api.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Len returns the number of tracks in the queue
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Index returns the current index, or api.NoPosition
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

// IsEmpty returns true if the queue has no tracks
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}
