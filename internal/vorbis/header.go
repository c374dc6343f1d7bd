// Package vorbis inspects and rebuilds the Vorbis header packets the
// splicing engine cares about: the identification header (sample rate check)
// and the comment header (metadata rewriting).
// See http://www.xiph.org/vorbis/doc/Vorbis_I_spec.html
package vorbis

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	identificationType = 1
	commentType        = 3
)

var headerMagic = []byte("vorbis")

// identification header: common header (7 bytes) + version, channels, sample
// rate, three bitrate fields, blocksizes, framing flag.
const identificationSize = 7 + 4 + 1 + 4 + 4 + 4 + 4 + 1 + 1

func hasHeaderPrefix(packet []byte, headerType byte) bool {
	return len(packet) > 7 && packet[0] == headerType && bytes.Equal(packet[1:7], headerMagic)
}

// IsIdentification reports whether the packet is a Vorbis identification
// header.
func IsIdentification(packet []byte) bool {
	return hasHeaderPrefix(packet, identificationType)
}

// IsComment reports whether the packet is a Vorbis comment header.
func IsComment(packet []byte) bool {
	return hasHeaderPrefix(packet, commentType)
}

// Identification is a decoded Vorbis identification header.
type Identification struct {
	Version        uint32
	Channels       uint8
	SampleRate     uint32
	BitrateMaximum int32
	BitrateNominal int32
	BitrateMinimum int32
}

// ParseIdentification decodes an identification header packet.
func ParseIdentification(packet []byte) (*Identification, error) {
	if !IsIdentification(packet) {
		return nil, fmt.Errorf("not an identification header")
	}
	if len(packet) < identificationSize {
		return nil, fmt.Errorf("identification header truncated: %d bytes", len(packet))
	}

	id := &Identification{
		Version:        binary.LittleEndian.Uint32(packet[7:11]),
		Channels:       packet[11],
		SampleRate:     binary.LittleEndian.Uint32(packet[12:16]),
		BitrateMaximum: int32(binary.LittleEndian.Uint32(packet[16:20])),
		BitrateNominal: int32(binary.LittleEndian.Uint32(packet[20:24])),
		BitrateMinimum: int32(binary.LittleEndian.Uint32(packet[24:28])),
	}
	if id.Version != 0 {
		return nil, fmt.Errorf("unsupported vorbis version %d", id.Version)
	}
	if packet[identificationSize-1]&0x01 == 0 {
		return nil, fmt.Errorf("identification header framing bit unset")
	}
	return id, nil
}
