package core

import (
	"testing"
	"time"

	"github.com/yasashiisyndicate/ireul/internal/ogg"
)

func clockPage(t *testing.T, granule uint64, serial uint32) ogg.Page {
	t.Helper()
	return mustBuildPage(t, [][]byte{{0x40}}).Edit().
		SetGranule(granule).
		SetSerial(serial).
		Commit()
}

func TestClockGranuleDelta(t *testing.T) {
	c := NewClock(48000)

	if d := c.WaitDuration(clockPage(t, 0, 1)); d != 0 {
		t.Errorf("first page wait = %v, want 0", d)
	}
	if d := c.WaitDuration(clockPage(t, 960, 1)); d != 20*time.Millisecond {
		t.Errorf("wait = %v, want 20ms", d)
	}
	if d := c.WaitDuration(clockPage(t, 48960, 1)); d != time.Second {
		t.Errorf("wait = %v, want 1s", d)
	}
}

func TestClockSentinelGranule(t *testing.T) {
	c := NewClock(48000)
	c.WaitDuration(clockPage(t, 960, 1))

	if d := c.WaitDuration(clockPage(t, ogg.GranuleNone, 1)); d != 0 {
		t.Errorf("sentinel wait = %v, want 0", d)
	}
	// the sentinel must not disturb the running position
	if d := c.WaitDuration(clockPage(t, 1920, 1)); d != 20*time.Millisecond {
		t.Errorf("wait after sentinel = %v, want 20ms", d)
	}
}

func TestClockResetsOnSerialChange(t *testing.T) {
	c := NewClock(48000)
	c.WaitDuration(clockPage(t, 96000, 7))

	// new track: granule restarts at zero under a fresh serial
	if d := c.WaitDuration(clockPage(t, 0, 8)); d != 0 {
		t.Errorf("wait at track start = %v, want 0", d)
	}
	if d := c.WaitDuration(clockPage(t, 960, 8)); d != 20*time.Millisecond {
		t.Errorf("wait = %v, want 20ms", d)
	}
}

func TestClockBackwardGranule(t *testing.T) {
	c := NewClock(48000)
	c.WaitDuration(clockPage(t, 960, 1))

	if d := c.WaitDuration(clockPage(t, 480, 1)); d != 0 {
		t.Errorf("backward granule wait = %v, want 0", d)
	}
}
