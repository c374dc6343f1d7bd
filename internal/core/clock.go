package core

import (
	"time"

	"github.com/yasashiisyndicate/ireul/internal/ogg"
)

// Clock converts granule position deltas into wall time so pages go out at
// playback rate. It keeps its own last-emitted state: a serial change means
// a fresh track starting at granule zero, and the Vorbis "no packet ends
// here" sentinel contributes no time.
type Clock struct {
	sampleRate  uint32
	started     bool
	lastSerial  uint32
	lastGranule uint64
}

// NewClock creates a clock for the given audio sample rate.
func NewClock(sampleRate uint32) *Clock {
	return &Clock{sampleRate: sampleRate}
}

// SampleRate returns the configured sample rate.
func (c *Clock) SampleRate() uint32 { return c.sampleRate }

// WaitDuration returns how long the caller should sleep after emitting the
// page before emitting the next one.
func (c *Clock) WaitDuration(page ogg.Page) time.Duration {
	granule := page.Granule()
	if granule == ogg.GranuleNone {
		return 0
	}

	if !c.started || page.Serial() != c.lastSerial {
		c.started = true
		c.lastSerial = page.Serial()
		c.lastGranule = 0
	}

	var delta uint64
	if granule > c.lastGranule {
		delta = granule - c.lastGranule
	}
	c.lastGranule = granule

	secs := delta / uint64(c.sampleRate)
	rem := delta % uint64(c.sampleRate)
	return time.Duration(secs)*time.Second +
		time.Duration(rem)*time.Second/time.Duration(c.sampleRate)
}
