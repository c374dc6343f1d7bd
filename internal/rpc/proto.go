// Package rpc implements the framed control protocol: a version byte, a
// big-endian opcode and length, then a JSON payload. Replies are a
// big-endian length followed by a JSON payload tagged with "status".
package rpc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

// Version is the only supported protocol version.
const Version = 0

// Opcodes. OpClose asks the server to close the connection.
const (
	OpClose           uint32 = 0
	OpEnqueueTrack    uint32 = 1
	OpFastForward     uint32 = 2
	OpQueueStatus     uint32 = 3
	OpReplaceFallback uint32 = 4
)

// MaxFrameSize bounds a request payload; larger frames terminate the
// connection.
const MaxFrameSize = 20 * 1 << 20

// FastForwardTrackBoundary is the only fast-forward kind.
const FastForwardTrackBoundary uint32 = 0

// EnqueueTrackRequest submits a track, optionally replacing its comment
// entries.
type EnqueueTrackRequest struct {
	TrackData []byte           `json:"track_data"`
	Metadata  []vorbis.Comment `json:"metadata,omitempty"`
}

// FastForwardRequest skips ahead in the emitted stream.
type FastForwardRequest struct {
	Kind uint32 `json:"kind"`
}

// QueueStatusRequest asks for the queue snapshot.
type QueueStatusRequest struct{}

// ReplaceFallbackRequest installs a new fallback track.
type ReplaceFallbackRequest struct {
	TrackData []byte           `json:"track_data"`
	Metadata  []vorbis.Comment `json:"metadata,omitempty"`
}

// Response is the tagged reply for every operation.
type Response struct {
	Status string      `json:"status"`
	Code   uint32      `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
	Handle uint64      `json:"handle,omitempty"`
	Queue  *core.Queue `json:"queue,omitempty"`
}

func okResponse() *Response {
	return &Response{Status: "ok"}
}

func errorResponse(err error) *Response {
	resp := &Response{Status: "error", Error: err.Error()}
	if code, ok := errors.AdmissionCodeOf(err); ok {
		resp.Code = uint32(code)
	}
	return resp
}

// Err converts an error response back into an error on the client side.
func (r *Response) Err() error {
	if r.Status == "ok" {
		return nil
	}
	if r.Code != 0 {
		return errors.NewAdmission(errors.AdmissionCode(r.Code), r.Error, nil)
	}
	return fmt.Errorf("request failed: %s", r.Error)
}

// readRequest reads one request frame. A nil payload with OpClose means the
// client said goodbye.
func readRequest(r io.Reader) (opcode uint32, payload []byte, err error) {
	var version [1]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return 0, nil, err
	}
	if version[0] != Version {
		return 0, nil, errors.NewRPCFraming(fmt.Sprintf("invalid version: %d", version[0]))
	}

	var opBuf [4]byte
	if _, err := io.ReadFull(r, opBuf[:]); err != nil {
		return 0, nil, err
	}
	opcode = binary.BigEndian.Uint32(opBuf[:])
	if opcode == OpClose {
		return opcode, nil, nil
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return 0, nil, errors.NewRPCFraming(
			fmt.Sprintf("frame too large: %d bytes (limit is %d)", length, MaxFrameSize))
	}

	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}

// writeRequest writes one request frame. OpClose is version and opcode
// only.
func writeRequest(w io.Writer, opcode uint32, req any) error {
	if opcode == OpClose {
		var frame [5]byte
		frame[0] = Version
		_, err := w.Write(frame[:])
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if len(payload) > MaxFrameSize {
		return errors.NewRPCFraming(fmt.Sprintf("request too large: %d bytes", len(payload)))
	}

	header := make([]byte, 9)
	header[0] = Version
	binary.BigEndian.PutUint32(header[1:5], opcode)
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// writeResponse writes a length-prefixed reply payload.
func writeResponse(w io.Writer, resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// readResponse reads a length-prefixed reply payload.
func readResponse(r io.Reader) (*Response, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(length[:])
	if n > MaxFrameSize {
		return nil, errors.NewRPCFraming(fmt.Sprintf("response too large: %d bytes", n))
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	resp := &Response{}
	if err := json.Unmarshal(payload, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
