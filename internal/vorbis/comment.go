package vorbis

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Comment is a single user comment, stored as KEY=value on the wire.
type Comment struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Comments is a decoded Vorbis comment header.
type Comments struct {
	Vendor  string
	Entries []Comment
}

// ParseComments decodes a comment header packet.
func ParseComments(packet []byte) (*Comments, error) {
	if !IsComment(packet) {
		return nil, fmt.Errorf("not a comment header")
	}

	rest := packet[7:]
	readBytes := func(n int) ([]byte, error) {
		if len(rest) < n {
			return nil, fmt.Errorf("comment header truncated")
		}
		out := rest[:n]
		rest = rest[n:]
		return out, nil
	}
	readLengthPrefixed := func() (string, error) {
		lenBuf, err := readBytes(4)
		if err != nil {
			return "", err
		}
		data, err := readBytes(int(binary.LittleEndian.Uint32(lenBuf)))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	vendor, err := readLengthPrefixed()
	if err != nil {
		return nil, err
	}

	countBuf, err := readBytes(4)
	if err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(countBuf)

	out := &Comments{Vendor: vendor}
	for i := uint32(0); i < count; i++ {
		entry, err := readLengthPrefixed()
		if err != nil {
			return nil, err
		}
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("comment entry %d has no separator", i)
		}
		out.Entries = append(out.Entries, Comment{Key: key, Value: value})
	}

	if len(rest) < 1 || rest[0]&0x01 == 0 {
		return nil, fmt.Errorf("comment header framing bit unset")
	}

	return out, nil
}

// BuildCommentPacket serializes a comment header packet.
func BuildCommentPacket(c *Comments) []byte {
	size := 7 + 4 + len(c.Vendor) + 4 + 1
	for _, entry := range c.Entries {
		size += 4 + len(entry.Key) + 1 + len(entry.Value)
	}

	out := make([]byte, 0, size)
	out = append(out, commentType)
	out = append(out, headerMagic...)

	appendLengthPrefixed := func(s string) {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		out = append(out, lenBuf[:]...)
		out = append(out, s...)
	}

	appendLengthPrefixed(c.Vendor)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(c.Entries)))
	out = append(out, countBuf[:]...)
	for _, entry := range c.Entries {
		appendLengthPrefixed(entry.Key + "=" + entry.Value)
	}

	// framing bit
	out = append(out, 0x01)
	return out
}
