package ogg

import (
	"encoding/binary"

	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

// Builder assembles packets into a single page. The produced page has zeroed
// granule, serial, sequence and flags; callers patch those through an edit
// transaction. Packet boundaries are preserved exactly: a complete packet is
// terminated by a lacing value below 255, and a trailing fragment (a packet
// continuing on the next page) is laced with 255s only.
type Builder struct {
	packets  [][]byte
	fragment []byte
}

// NewBuilder returns an empty page builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddPacket appends a packet that ends within this page.
func (b *Builder) AddPacket(data []byte) *Builder {
	b.packets = append(b.packets, data)
	return b
}

// AddFragment appends a trailing packet fragment that continues on the next
// page. Its length must be a positive multiple of 255 and it must be the
// last packet added.
func (b *Builder) AddFragment(data []byte) *Builder {
	b.fragment = data
	return b
}

func lacingCount(n int, fragment bool) int {
	if fragment {
		return n / 255
	}
	return n/255 + 1
}

// Build assembles the page. It fails if the packets need more than 255
// lacing values or if a fragment's length is not a multiple of 255.
func (b *Builder) Build() (Page, error) {
	if b.fragment != nil && (len(b.fragment) == 0 || len(b.fragment)%255 != 0) {
		return Page{}, errors.NewOggPageBuild("fragment length must be a positive multiple of 255")
	}

	nsegs := 0
	bodySize := 0
	for _, pkt := range b.packets {
		nsegs += lacingCount(len(pkt), false)
		bodySize += len(pkt)
	}
	if b.fragment != nil {
		nsegs += lacingCount(len(b.fragment), true)
		bodySize += len(b.fragment)
	}
	if nsegs == 0 {
		return Page{}, errors.NewOggPageBuild("no packets")
	}
	if nsegs > 255 {
		return Page{}, errors.NewOggPageBuild("too many segments for one page")
	}

	raw := make([]byte, headerSize+nsegs+bodySize)
	copy(raw, capturePattern)
	raw[26] = byte(nsegs)

	seg := headerSize
	body := headerSize + nsegs
	appendLaced := func(data []byte, fragment bool) {
		rem := len(data)
		for rem >= 255 {
			raw[seg] = 255
			seg++
			rem -= 255
		}
		if !fragment {
			raw[seg] = byte(rem)
			seg++
		}
		copy(raw[body:], data)
		body += len(data)
	}
	for _, pkt := range b.packets {
		appendLaced(pkt, false)
	}
	if b.fragment != nil {
		appendLaced(b.fragment, true)
	}

	binary.LittleEndian.PutUint32(raw[crcOffset:crcOffset+4], pageChecksum(raw))
	return Page{raw: raw}, nil
}
