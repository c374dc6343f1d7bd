package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/core"
)

// Server accepts control connections and dispatches requests to the facade.
// Each connection gets its own goroutine; a framing failure closes only the
// offending connection.
type Server struct {
	facade *core.Facade
	log    *zap.Logger
}

// NewServer creates a server around the facade.
func NewServer(facade *core.Facade, log *zap.Logger) *Server {
	return &Server{facade: facade, log: log}
}

// Serve accepts connections until ctx is done. The listener is closed on
// return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("error accepting new client", zap.Error(err))
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("remote", conn.RemoteAddr().String()))
	log.Debug("client connected")

	for {
		opcode, payload, err := readRequest(conn)
		if err != nil {
			if err == io.EOF {
				log.Debug("client disconnected")
			} else {
				log.Info("client disconnected with error", zap.Error(err))
			}
			return
		}
		if opcode == OpClose {
			log.Debug("goodbye, client")
			return
		}

		resp, err := s.dispatch(opcode, payload)
		if err != nil {
			log.Info("closing client connection", zap.Error(err))
			return
		}
		if err := writeResponse(conn, resp); err != nil {
			log.Info("failed to write response", zap.Error(err))
			return
		}
	}
}

// dispatch runs one request. A returned error means the connection is
// unrecoverable and must be closed; operation failures are encoded in the
// response instead.
func (s *Server) dispatch(opcode uint32, payload []byte) (*Response, error) {
	switch opcode {
	case OpEnqueueTrack:
		req := &EnqueueTrackRequest{}
		if err := json.Unmarshal(payload, req); err != nil {
			return nil, err
		}
		handle, err := s.facade.Enqueue(req.TrackData, req.Metadata)
		if err != nil {
			return errorResponse(err), nil
		}
		resp := okResponse()
		resp.Handle = uint64(handle)
		return resp, nil

	case OpFastForward:
		req := &FastForwardRequest{}
		if err := json.Unmarshal(payload, req); err != nil {
			return nil, err
		}
		s.facade.FastForward()
		return okResponse(), nil

	case OpQueueStatus:
		queue := s.facade.Status()
		resp := okResponse()
		resp.Queue = &queue
		return resp, nil

	case OpReplaceFallback:
		req := &ReplaceFallbackRequest{}
		if err := json.Unmarshal(payload, req); err != nil {
			return nil, err
		}
		if err := s.facade.ReplaceFallback(req.TrackData, req.Metadata); err != nil {
			return errorResponse(err), nil
		}
		return okResponse(), nil

	default:
		return nil, fmt.Errorf("unknown op-code %d", opcode)
	}
}
