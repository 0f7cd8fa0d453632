package player

import (
	"sync"

	"github.com/glizzus/encore/internal/track"
)

// Loop is a player's repeat mode.
type Loop string

const (
	LoopNone  Loop = "none"
	LoopTrack Loop = "track"
	LoopQueue Loop = "queue"
)

// Queue holds the play order for one player. It remembers the previous
// track and the current one alongside everything still waiting. Safe
// for concurrent use.
type Queue struct {
	mu       sync.RWMutex
	current  *track.Track
	previous *track.Track
	upcoming []*track.Track
}

func NewQueue() *Queue {
	return &Queue{}
}

// Add enqueues tracks. The first track added to an idle queue becomes
// the current track.
func (q *Queue) Add(tracks ...*track.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, tr := range tracks {
		if q.current == nil {
			q.current = tr
			continue
		}
		q.upcoming = append(q.upcoming, tr)
	}
}

// Current returns the track the player is on, or nil.
func (q *Queue) Current() *track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current
}

// Previous returns the last track that finished, or nil when the queue
// has not advanced yet.
func (q *Queue) Previous() *track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.previous
}

// Upcoming returns a copy of the queued tracks.
func (q *Queue) Upcoming() []*track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*track.Track, len(q.upcoming))
	copy(out, q.upcoming)
	return out
}

// Len reports how many tracks wait after the current one.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.upcoming)
}

// Clear drops every queued track, current included.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = nil
	q.upcoming = nil
}

// Advance moves the queue forward under the given loop mode and
// returns the new current track, or nil when the queue is drained.
//
//   - LoopTrack keeps the current track in place.
//   - LoopQueue re-enqueues the current track at the back.
//   - LoopNone discards the current track.
func (q *Queue) Advance(loop Loop) *track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if loop == LoopTrack {
		if q.current != nil {
			q.previous = q.current
		}
		return q.current
	}

	if q.current != nil {
		q.previous = q.current
		if loop == LoopQueue {
			q.upcoming = append(q.upcoming, q.current)
		}
		q.current = nil
	}

	if len(q.upcoming) == 0 {
		return nil
	}
	q.current = q.upcoming[0]
	q.upcoming = q.upcoming[1:]
	return q.current
}
