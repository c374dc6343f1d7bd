package core

import (
	"encoding/binary"
	"testing"

	"github.com/yasashiisyndicate/ireul/internal/ogg"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
)

const testSampleRate = 48000

func identPacket(sampleRate uint32) []byte {
	out := []byte{1}
	out = append(out, "vorbis"...)
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = append(out, 2)
	out = binary.LittleEndian.AppendUint32(out, sampleRate)
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = binary.LittleEndian.AppendUint32(out, 112000)
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = append(out, 0xB8, 0x01)
	return out
}

func commentPacket(entries ...vorbis.Comment) []byte {
	return vorbis.BuildCommentPacket(&vorbis.Comments{
		Vendor:  "test encoder",
		Entries: entries,
	})
}

func mustBuildPage(t *testing.T, packets [][]byte) ogg.Page {
	t.Helper()
	b := ogg.NewBuilder()
	for _, pkt := range packets {
		b.AddPacket(pkt)
	}
	page, err := b.Build()
	if err != nil {
		t.Fatalf("page build failed: %v", err)
	}
	return page
}

// trackBytes assembles a syntactically valid track: the first page carries
// the identification header, the second the comment header, and the
// remaining granules become one audio page each. Page granules follow the
// supplied values; the last page is marked end-of-stream.
func trackBytes(t *testing.T, sampleRate uint32, granules []uint64, entries ...vorbis.Comment) []byte {
	t.Helper()
	if len(granules) < 2 {
		t.Fatalf("need at least 2 granules, got %d", len(granules))
	}

	const serial = 0x5EA10000
	var out []byte
	for i, granule := range granules {
		var page ogg.Page
		switch i {
		case 0:
			page = mustBuildPage(t, [][]byte{identPacket(sampleRate)})
		case 1:
			page = mustBuildPage(t, [][]byte{commentPacket(entries...)})
		default:
			page = mustBuildPage(t, [][]byte{{0x40, 0x41, 0x42, 0x43}})
		}

		edit := page.Edit().
			SetGranule(granule).
			SetSerial(serial).
			SetSequence(uint32(i))
		if i == 0 {
			edit.SetBos(true)
		}
		if i == len(granules)-1 {
			edit.SetEos(true)
		}
		out = append(out, edit.Commit().Bytes()...)
	}
	return out
}

func mustValidate(t *testing.T, buf []byte) *Track {
	t.Helper()
	track, err := ValidateTrack(buf, testSampleRate)
	if err != nil {
		t.Fatalf("ValidateTrack failed: %v", err)
	}
	return track
}

// collectSink records written pages in order.
type collectSink struct {
	pages []ogg.Page
	fail  bool
}

func (s *collectSink) WritePage(page ogg.Page) error {
	if s.fail {
		return errFailSink
	}
	s.pages = append(s.pages, page)
	return nil
}

var errFailSink = &failSinkError{}

type failSinkError struct{}

func (*failSinkError) Error() string { return "sink failure" }
