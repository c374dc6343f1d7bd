package core

import (
	"github.com/yasashiisyndicate/ireul/internal/ogg"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

// packetWalker reassembles packets from a track's page sequence, tracking
// whether each packet was spread over more than one page.
type packetWalker struct {
	pending  []byte
	spanning bool
}

type walkedPacket struct {
	data []byte
	// spanning is true when the packet was assembled from fragments on
	// more than one page.
	spanning bool
}

func (w *packetWalker) push(page ogg.Page) []walkedPacket {
	var out []walkedPacket
	for i, pkt := range page.Packets() {
		continuation := i == 0 && page.Continued()
		if continuation && w.pending == nil {
			// continuation of a packet we never saw the start of;
			// drop the fragment
			continue
		}
		if continuation {
			w.pending = append(w.pending, pkt.Data...)
			w.spanning = true
		} else {
			w.pending = append([]byte(nil), pkt.Data...)
			w.spanning = false
		}
		if pkt.Complete {
			out = append(out, walkedPacket{data: w.pending, spanning: w.spanning})
			w.pending = nil
			w.spanning = false
		}
	}
	return out
}

// ValidateTrack checks a submitted byte buffer against the container rules
// the splicer depends on and returns the parsed track. Checks run in order
// and stop at the first failure: non-empty input, page framing and
// checksums, zero starting granule, monotonic granules, a single serial,
// an identification header matching the engine's sample rate, and a comment
// header contained in a single page.
func ValidateTrack(buf []byte, sampleRate uint32) (*Track, error) {
	if len(buf) == 0 {
		return nil, errors.NewInvalidTrack("empty input", nil)
	}

	pages, err := ogg.DecodePages(buf)
	if err != nil {
		return nil, errors.NewInvalidTrack("malformed framing", err)
	}

	if pages[0].Granule() != 0 {
		return nil, errors.NewInvalidTrack("first page granule is non-zero", nil)
	}
	if !pages[0].Bos() {
		return nil, errors.NewInvalidTrack("first page is not beginning-of-stream", nil)
	}

	serial := pages[0].Serial()
	current := uint64(0)
	for _, page := range pages {
		if page.Serial() != serial {
			return nil, errors.NewInvalidTrack("pages carry more than one serial", nil)
		}
		if page.Granule() < current {
			return nil, errors.NewInvalidTrack("non-monotonic granule position", nil)
		}
		current = page.Granule()
	}

	var ident *vorbis.Identification
	var haveComment bool
	walker := &packetWalker{}
	for _, page := range pages {
		for _, pkt := range walker.push(page) {
			if ident == nil && vorbis.IsIdentification(pkt.data) {
				parsed, err := vorbis.ParseIdentification(pkt.data)
				if err != nil {
					return nil, errors.NewInvalidTrack("bad identification header", err)
				}
				ident = parsed
			}
			if vorbis.IsComment(pkt.data) {
				if pkt.spanning {
					return nil, errors.NewInvalidTrack("malformed framing: comment packet spans pages", nil)
				}
				if _, err := vorbis.ParseComments(pkt.data); err != nil {
					return nil, errors.NewInvalidTrack("bad comment header", err)
				}
				haveComment = true
			}
		}
		if ident != nil && haveComment {
			break
		}
	}

	if ident == nil {
		return nil, errors.NewInvalidTrack("missing identification header", nil)
	}
	if ident.SampleRate != sampleRate {
		return nil, errors.NewBadSampleRate(sampleRate, ident.SampleRate)
	}
	if !haveComment {
		return nil, errors.NewInvalidTrack("missing comment header", nil)
	}

	return &Track{Pages: pages}, nil
}
