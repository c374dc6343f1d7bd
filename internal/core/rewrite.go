package core

import (
	"github.com/yasashiisyndicate/ireul/internal/ogg"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

// VendorString replaces the encoder vendor in every admitted track.
const VendorString = "Ireul Core"

// RewriteComments rebuilds the page(s) carrying the Vorbis comment packet
// with the transformation applied, leaving every other page byte-identical.
// A rebuilt page keeps the original granule, serial, sequence and flags, and
// keeps the packet boundaries of any non-comment packets on the page,
// including a trailing fragment that continues on the next page.
func RewriteComments(pages []ogg.Page, fn func(*vorbis.Comments)) ([]ogg.Page, error) {
	out := make([]ogg.Page, 0, len(pages))

	for _, page := range pages {
		haveComment := false
		for i, pkt := range page.Packets() {
			if i == 0 && page.Continued() {
				continue
			}
			if pkt.Complete && vorbis.IsComment(pkt.Data) {
				haveComment = true
			}
		}

		// fast-path: no comment
		if !haveComment {
			out = append(out, page)
			continue
		}

		builder := ogg.NewBuilder()
		for i, pkt := range page.Packets() {
			continuation := i == 0 && page.Continued()
			if !continuation && pkt.Complete && vorbis.IsComment(pkt.Data) {
				comments, err := vorbis.ParseComments(pkt.Data)
				if err != nil {
					return nil, errors.NewOggPageBuild("unparseable comment packet")
				}
				fn(comments)
				builder.AddPacket(vorbis.BuildCommentPacket(comments))
				continue
			}
			if pkt.Complete {
				builder.AddPacket(pkt.Data)
			} else {
				builder.AddFragment(pkt.Data)
			}
		}

		rebuilt, err := builder.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, rebuilt.Edit().
			SetGranule(page.Granule()).
			SetSerial(page.Serial()).
			SetSequence(page.Sequence()).
			SetContinued(page.Continued()).
			SetBos(page.Bos()).
			SetEos(page.Eos()).
			Commit())
	}

	return out, nil
}
