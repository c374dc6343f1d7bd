package core

import (
	_ "embed"
)

// Dead air played when no fallback track is configured. 48 kHz stereo.
//
//go:embed deadair.ogg
var deadAir []byte

// DeadAir returns the built-in dead-air track bytes.
func DeadAir() []byte {
	return deadAir
}
