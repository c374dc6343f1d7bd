package rpc

import (
	"net"
	"time"

	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
)

// Client speaks the control protocol over a single connection. Not safe for
// concurrent use.
type Client struct {
	conn net.Conn
}

// Dial connects to a control endpoint.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) roundTrip(opcode uint32, req any) (*Response, error) {
	if err := writeRequest(c.conn, opcode, req); err != nil {
		return nil, err
	}
	return readResponse(c.conn)
}

// Enqueue submits a track and returns its handle.
func (c *Client) Enqueue(trackData []byte, metadata []vorbis.Comment) (core.Handle, error) {
	resp, err := c.roundTrip(OpEnqueueTrack, &EnqueueTrackRequest{
		TrackData: trackData,
		Metadata:  metadata,
	})
	if err != nil {
		return 0, err
	}
	if err := resp.Err(); err != nil {
		return 0, err
	}
	return core.Handle(resp.Handle), nil
}

// FastForward skips to the next track boundary.
func (c *Client) FastForward() error {
	resp, err := c.roundTrip(OpFastForward, &FastForwardRequest{Kind: FastForwardTrackBoundary})
	if err != nil {
		return err
	}
	return resp.Err()
}

// QueueStatus returns the queue snapshot.
func (c *Client) QueueStatus() (*core.Queue, error) {
	resp, err := c.roundTrip(OpQueueStatus, &QueueStatusRequest{})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Queue, nil
}

// ReplaceFallback installs a new fallback track.
func (c *Client) ReplaceFallback(trackData []byte, metadata []vorbis.Comment) error {
	resp, err := c.roundTrip(OpReplaceFallback, &ReplaceFallbackRequest{
		TrackData: trackData,
		Metadata:  metadata,
	})
	if err != nil {
		return err
	}
	return resp.Err()
}

// Close says goodbye and closes the connection.
func (c *Client) Close() error {
	_ = writeRequest(c.conn, OpClose, struct{}{})
	return c.conn.Close()
}
