// Package ogg implements the Ogg page framing used by the splicing engine:
// byte-accurate pages, packet extraction, page construction and checksummed
// header edits.
// See http://www.xiph.org/ogg/doc/framing.html for the format.
package ogg

import (
	"encoding/binary"

	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

const (
	headerSize = 27
	crcOffset  = 22

	flagContinued = 0x01
	flagBos       = 0x02
	flagEos       = 0x04

	// GranuleNone is the granule position of a page on which no packet ends.
	GranuleNone = ^uint64(0)

	// MaxBodySize is the largest body a single page can carry
	// (255 segments of 255 bytes).
	MaxBodySize = 255 * 255
)

var capturePattern = []byte("OggS")

// Page is an immutable, byte-accurate Ogg page. Accessors read straight from
// the raw framing; mutation goes through Edit, which produces a new page with
// the checksum recomputed.
type Page struct {
	raw []byte
}

// Bytes returns the raw page. Callers must not modify the returned slice.
func (p Page) Bytes() []byte { return p.raw }

// Len returns the total page size including framing.
func (p Page) Len() int { return len(p.raw) }

// Granule returns the granule position, GranuleNone if no packet ends here.
func (p Page) Granule() uint64 { return binary.LittleEndian.Uint64(p.raw[6:14]) }

// Serial returns the logical bitstream serial number.
func (p Page) Serial() uint32 { return binary.LittleEndian.Uint32(p.raw[14:18]) }

// Sequence returns the page sequence number.
func (p Page) Sequence() uint32 { return binary.LittleEndian.Uint32(p.raw[18:22]) }

// Continued reports whether the first packet continues one begun on a
// previous page.
func (p Page) Continued() bool { return p.raw[5]&flagContinued != 0 }

// Bos reports whether this is the first page of a logical bitstream.
func (p Page) Bos() bool { return p.raw[5]&flagBos != 0 }

// Eos reports whether this is the last page of a logical bitstream.
func (p Page) Eos() bool { return p.raw[5]&flagEos != 0 }

func (p Page) segments() []byte {
	n := int(p.raw[26])
	return p.raw[headerSize : headerSize+n]
}

// Body returns the page payload. Callers must not modify the returned slice.
func (p Page) Body() []byte {
	n := int(p.raw[26])
	return p.raw[headerSize+n:]
}

// Packet is a run of page body bytes delimited by the segment table. The
// first packet of a continued page and the last packet of a page whose final
// lacing value is 255 are fragments of packets spanning page boundaries.
type Packet struct {
	Data []byte
	// Complete is false for a trailing fragment that continues on the
	// next page.
	Complete bool
}

// Packets splits the body along the segment table. Fragments are reported
// with Complete = false; whether the first packet is itself a continuation
// is indicated by the page's continued flag.
func (p Page) Packets() []Packet {
	var out []Packet
	body := p.Body()
	start := 0
	length := 0
	for _, lacing := range p.segments() {
		length += int(lacing)
		if lacing < 255 {
			out = append(out, Packet{Data: body[start : start+length], Complete: true})
			start += length
			length = 0
		}
	}
	if length > 0 {
		out = append(out, Packet{Data: body[start : start+length], Complete: false})
	}
	return out
}

// decodeOne parses a single page at the start of buf and returns it along
// with the number of bytes consumed. The checksum is verified.
func decodeOne(buf []byte, offset int64) (Page, int, error) {
	if len(buf) < headerSize {
		return Page{}, 0, errors.NewOggFraming(offset, "truncated page header")
	}
	if string(buf[0:4]) != string(capturePattern) {
		return Page{}, 0, errors.NewOggFraming(offset, "missing capture pattern")
	}
	if buf[4] != 0 {
		return Page{}, 0, errors.NewOggFraming(offset, "unsupported stream structure version")
	}

	nsegs := int(buf[26])
	if len(buf) < headerSize+nsegs {
		return Page{}, 0, errors.NewOggFraming(offset, "truncated segment table")
	}
	bodySize := 0
	for _, lacing := range buf[headerSize : headerSize+nsegs] {
		bodySize += int(lacing)
	}
	total := headerSize + nsegs + bodySize
	if len(buf) < total {
		return Page{}, 0, errors.NewOggFraming(offset, "truncated page body")
	}

	raw := make([]byte, total)
	copy(raw, buf[:total])

	stored := binary.LittleEndian.Uint32(raw[crcOffset : crcOffset+4])
	if stored != pageChecksum(raw) {
		return Page{}, 0, errors.NewOggFraming(offset, "checksum mismatch")
	}

	return Page{raw: raw}, total, nil
}

// DecodePages parses buf as a sequence of back-to-back Ogg pages, verifying
// each page's checksum. Trailing garbage is an error.
func DecodePages(buf []byte) ([]Page, error) {
	var pages []Page
	offset := int64(0)
	for len(buf) > 0 {
		page, n, err := decodeOne(buf, offset)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		buf = buf[n:]
		offset += int64(n)
	}
	return pages, nil
}

// PageEdit is an edit transaction over an existing page. Setters patch a
// private copy of the framing; Commit recomputes the checksum and returns
// the new page. The original page is never modified.
type PageEdit struct {
	raw []byte
}

// Edit begins an edit transaction on a copy of the page.
func (p Page) Edit() *PageEdit {
	raw := make([]byte, len(p.raw))
	copy(raw, p.raw)
	return &PageEdit{raw: raw}
}

// SetGranule sets the granule position.
func (e *PageEdit) SetGranule(granule uint64) *PageEdit {
	binary.LittleEndian.PutUint64(e.raw[6:14], granule)
	return e
}

// SetSerial sets the bitstream serial number.
func (e *PageEdit) SetSerial(serial uint32) *PageEdit {
	binary.LittleEndian.PutUint32(e.raw[14:18], serial)
	return e
}

// SetSequence sets the page sequence number.
func (e *PageEdit) SetSequence(sequence uint32) *PageEdit {
	binary.LittleEndian.PutUint32(e.raw[18:22], sequence)
	return e
}

func (e *PageEdit) setFlag(mask byte, on bool) {
	if on {
		e.raw[5] |= mask
	} else {
		e.raw[5] &^= mask
	}
}

// SetContinued sets the continued-packet flag.
func (e *PageEdit) SetContinued(on bool) *PageEdit {
	e.setFlag(flagContinued, on)
	return e
}

// SetBos sets the beginning-of-stream flag.
func (e *PageEdit) SetBos(on bool) *PageEdit {
	e.setFlag(flagBos, on)
	return e
}

// SetEos sets the end-of-stream flag.
func (e *PageEdit) SetEos(on bool) *PageEdit {
	e.setFlag(flagEos, on)
	return e
}

// Commit recomputes the checksum and returns the edited page.
func (e *PageEdit) Commit() Page {
	binary.LittleEndian.PutUint32(e.raw[crcOffset:crcOffset+4], pageChecksum(e.raw))
	return Page{raw: e.raw}
}
