package core

import (
	"time"

	"github.com/yasashiisyndicate/ireul/internal/ogg"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

// Handle identifies an admitted track for status reporting and history.
type Handle uint64

// FallbackHandle is reserved for the fallback track.
const FallbackHandle Handle = 0

// TrackInfo is the user-visible state of a queued, playing or finished track.
type TrackInfo struct {
	Handle         Handle     `json:"handle"`
	SamplePosition uint64     `json:"sample_position"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// Track is an admitted Ogg/Vorbis track: an ordered page sequence sharing a
// single serial, starting at granule zero.
type Track struct {
	Handle Handle
	Pages  []ogg.Page
}

// Clone returns a copy of the track sharing the underlying immutable pages.
func (t *Track) Clone() *Track {
	pages := make([]ogg.Page, len(t.Pages))
	copy(pages, t.Pages)
	return &Track{Handle: t.Handle, Pages: pages}
}

// PlayQueue is a bounded FIFO of admitted tracks plus a bounded history of
// tracks that started playback, newest last. Handles are allocated
// monotonically and never reused; handle zero belongs to the fallback track.
type PlayQueue struct {
	capacity    int
	historySize int
	upcoming    []*Track
	history     []*TrackInfo
	nextHandle  Handle
}

// NewPlayQueue creates an empty queue with the given bounds.
func NewPlayQueue(capacity, historySize int) *PlayQueue {
	return &PlayQueue{
		capacity:    capacity,
		historySize: historySize,
		nextHandle:  FallbackHandle + 1,
	}
}

// Len returns the number of upcoming tracks.
func (q *PlayQueue) Len() int { return len(q.upcoming) }

// Admit allocates a handle for the track and appends it. A full queue
// rejects the track and leaves the queue unchanged.
func (q *PlayQueue) Admit(track *Track) (Handle, error) {
	if len(q.upcoming) >= q.capacity {
		return 0, errors.NewQueueFull(q.capacity)
	}
	track.Handle = q.nextHandle
	q.nextHandle++
	q.upcoming = append(q.upcoming, track)
	return track.Handle, nil
}

// Pop removes the head track and records it in the history with the playback
// start timestamp. The returned TrackInfo is the live record: the engine
// updates its sample position as pages are emitted, so the history entry
// ends up carrying the track's total sample count.
func (q *PlayQueue) Pop() (*Track, *TrackInfo) {
	if len(q.upcoming) == 0 {
		return nil, nil
	}
	track := q.upcoming[0]
	q.upcoming = q.upcoming[1:]

	now := time.Now()
	info := &TrackInfo{Handle: track.Handle, StartedAt: &now}
	q.history = append(q.history, info)
	if len(q.history) > q.historySize {
		q.history = q.history[len(q.history)-q.historySize:]
	}
	return track, info
}

// Infos returns a snapshot of the upcoming tracks.
func (q *PlayQueue) Infos() []TrackInfo {
	out := make([]TrackInfo, 0, len(q.upcoming))
	for _, track := range q.upcoming {
		out = append(out, TrackInfo{Handle: track.Handle})
	}
	return out
}

// History returns a snapshot of played tracks, newest first.
func (q *PlayQueue) History() []TrackInfo {
	out := make([]TrackInfo, 0, len(q.history))
	for i := len(q.history) - 1; i >= 0; i-- {
		out = append(out, *q.history[i])
	}
	return out
}
