package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/vorbis"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

// Facade is the single point of serialized access to the engine. RPC
// handlers, the bus, the status API and the tick loop all enter through it;
// one exclusive lock covers every operation.
//
// Track bytes are validated and rewritten before the lock is taken, so the
// critical section only ever sees fully cooked tracks.
type Facade struct {
	mu     sync.Mutex
	engine *Engine
	log    *zap.Logger
}

// NewFacade wraps the engine.
func NewFacade(engine *Engine, log *zap.Logger) *Facade {
	return &Facade{engine: engine, log: log}
}

// cook validates the submitted bytes and rewrites the comment header with
// our vendor string and, when supplied, the replacement metadata. Runs
// without the lock; the sample rate is immutable configuration.
func (f *Facade) cook(buf []byte, metadata []vorbis.Comment) (*Track, error) {
	track, err := ValidateTrack(buf, f.engine.clock.SampleRate())
	if err != nil {
		return nil, err
	}

	samples := uint64(0)
	for _, page := range track.Pages {
		samples = page.Granule()
	}
	f.log.Info("client sent track",
		zap.Uint64("samples", samples),
		zap.Int("pages", len(track.Pages)))

	pages, err := RewriteComments(track.Pages, func(c *vorbis.Comments) {
		c.Vendor = VendorString
		if metadata != nil {
			c.Entries = append([]vorbis.Comment(nil), metadata...)
		}
	})
	if err != nil {
		// oversized metadata is the only way a validated track fails here
		return nil, errors.NewInvalidTrack("comment rewrite failed", err)
	}
	track.Pages = pages
	return track, nil
}

// Enqueue validates, rewrites and admits a track, returning its handle.
func (f *Facade) Enqueue(buf []byte, metadata []vorbis.Comment) (Handle, error) {
	track, err := f.cook(buf, metadata)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engine.Admit(track)
}

// ReplaceFallback validates, rewrites and installs a new fallback track.
func (f *Facade) ReplaceFallback(buf []byte, metadata []vorbis.Comment) error {
	track, err := f.cook(buf, metadata)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.engine.ReplaceFallback(track)
	return nil
}

// FastForward skips to the next track boundary.
func (f *Facade) FastForward() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engine.FastForwardTrackBoundary()
}

// Status returns the queue snapshot.
func (f *Facade) Status() Queue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engine.Status()
}

// Tick emits one page and returns the next emission deadline.
func (f *Facade) Tick() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engine.Tick()
}

// Run drives the tick loop until ctx is done, sleeping until each returned
// deadline. A late tick does not try to catch up; it simply emits the next
// page.
func (f *Facade) Run(ctx context.Context) error {
	for {
		deadline := f.Tick()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
