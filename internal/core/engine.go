package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/ogg"
)

// Sink accepts Ogg pages for delivery to the shoutcast endpoint. It owns its
// reconnection policy; a failed write is reported and the page is lost.
type Sink interface {
	WritePage(page ogg.Page) error
}

// Queue is the status snapshot returned to clients.
type Queue struct {
	Upcoming []TrackInfo `json:"upcoming"`
	History  []TrackInfo `json:"history"`
}

// Engine owns all mutable streaming state and assembles the outgoing page
// sequence. Every track is emitted as a fresh logical bitstream: its pages
// are rewritten to the engine's current serial, which rotates on each
// refill, so receivers never carry decoder state across a splice.
//
// Callers serialize access through Facade; Engine itself is not safe for
// concurrent use.
type Engine struct {
	sink  Sink
	clock *Clock
	log   *zap.Logger

	curSerial      uint32
	buffer         []ogg.Page
	playingOffline bool
	playing        *TrackInfo

	prevGranule  uint64
	prevSerial   uint32
	prevSequence uint32

	queue    *PlayQueue
	fallback *Track
}

// NewEngine creates an engine that plays fallback until tracks arrive.
func NewEngine(sink Sink, clock *Clock, queue *PlayQueue, fallback *Track, log *zap.Logger) *Engine {
	fallback.Handle = FallbackHandle
	return &Engine{
		sink:     sink,
		clock:    clock,
		queue:    queue,
		fallback: fallback,
		log:      log,
	}
}

// fillBuffer loads the next track into the page buffer: the queue head if
// one exists, otherwise a copy of the fallback track. Every page is
// rewritten to the current serial, which then rotates.
func (e *Engine) fillBuffer() {
	var track *Track
	if popped, info := e.queue.Pop(); popped != nil {
		e.playingOffline = false
		e.playing = info
		track = popped
	} else {
		e.playingOffline = true
		e.playing = nil
		track = e.fallback.Clone()
	}

	for _, page := range track.Pages {
		e.buffer = append(e.buffer, page.Edit().SetSerial(e.curSerial).Commit())
	}
	e.curSerial++
}

func (e *Engine) nextPage() ogg.Page {
	if len(e.buffer) == 0 {
		e.fillBuffer()
	}
	if len(e.buffer) == 0 {
		// fillBuffer always loads at least the fallback track
		panic("ireul: page buffer empty after fill")
	}
	page := e.buffer[0]
	e.buffer = e.buffer[1:]
	return page
}

// FastForwardTrackBoundary discards the buffered remainder of the current
// track. Pages completing an in-flight packet are kept, the track's
// end-of-stream page is rewritten to sit continuously against the last
// emitted page, and everything between is dropped.
func (e *Engine) FastForwardTrackBoundary() {
	old := e.buffer
	e.buffer = nil

	i := 0
	for ; i < len(old); i++ {
		if !old[i].Continued() {
			break
		}
		e.buffer = append(e.buffer, old[i])
	}

	found := false
	for ; i < len(old); i++ {
		if old[i].Eos() {
			e.buffer = append(e.buffer, old[i].Edit().
				SetGranule(e.prevGranule).
				SetSerial(e.prevSerial).
				SetSequence(e.prevSequence+1).
				Commit())
			found = true
			i++
			break
		}
	}

	if !found && len(old) > 0 {
		e.log.Warn("fast-forward found no end-of-stream page; buffer emptied")
	}

	e.buffer = append(e.buffer, old[i:]...)
}

// Admit appends a cooked track to the play queue. When the engine is
// playing the fallback, the remainder of the fallback loop is skipped so
// the new track starts at the next page boundary.
func (e *Engine) Admit(track *Track) (Handle, error) {
	handle, err := e.queue.Admit(track)
	if err != nil {
		return 0, err
	}
	if e.playingOffline {
		e.FastForwardTrackBoundary()
	}
	return handle, nil
}

// ReplaceFallback swaps in a new fallback track. The current fallback loop,
// if playing, finishes; the next refill picks up the replacement.
func (e *Engine) ReplaceFallback(track *Track) {
	track.Handle = FallbackHandle
	e.fallback = track
}

// Status returns the queue snapshot: the playing track (if any) followed by
// the upcoming tracks, plus the play history newest first.
func (e *Engine) Status() Queue {
	upcoming := make([]TrackInfo, 0, e.queue.Len()+1)
	if e.playing != nil {
		upcoming = append(upcoming, *e.playing)
	}
	upcoming = append(upcoming, e.queue.Infos()...)

	return Queue{
		Upcoming: upcoming,
		History:  e.queue.History(),
	}
}

// Tick emits exactly one page and returns the deadline for the next
// emission. Sink failures are logged and swallowed: the clock still
// advances so reconnection does not produce a burst.
func (e *Engine) Tick() time.Time {
	page := e.nextPage()

	e.prevGranule = page.Granule()
	e.prevSerial = page.Serial()
	e.prevSequence = page.Sequence()

	if err := e.sink.WritePage(page); err != nil {
		e.log.Warn("failed to write page to sink", zap.Error(err))
	}

	if e.playing != nil {
		e.playing.SamplePosition = page.Granule()
	}

	e.log.Debug("copied page",
		zap.Uint64("granule", page.Granule()),
		zap.Uint32("serial", page.Serial()),
		zap.Uint32("sequence", page.Sequence()),
		zap.Bool("bos", page.Bos()),
		zap.Bool("eos", page.Eos()))

	return time.Now().Add(e.clock.WaitDuration(page))
}
