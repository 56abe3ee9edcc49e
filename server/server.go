// Package server accepts TCP connections and dispatches each line-delimited
// JSON request against a shared engine, the way cmd/remote wraps the core
// engine for net/rpc, but speaking the plain JSON wire protocol instead.
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/epokhe/kvs/engineselect"
	"github.com/epokhe/kvs/proto"
)

type Server struct {
	engine   *engineselect.Engine
	listener net.Listener
	log      *zap.SugaredLogger
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = l }
}

// Listen binds addr and returns a Server ready to Serve. Splitting Listen
// from Serve lets callers log the resolved address (useful when addr asks
// for an ephemeral port) before blocking in the accept loop.
func Listen(addr string, engine *engineselect.Engine, opts ...Option) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{engine: engine, listener: listener, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until the listener is closed, handling each one
// in its own goroutine. It always returns a non-nil error, mirroring
// net/http's Serve contract.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	log := s.log.With("conn", connID, "remote", conn.RemoteAddr())
	log.Infow("connection accepted")
	defer func() {
		_ = conn.Close()
		log.Infow("connection closed")
	}()

	reader := bufio.NewReader(conn)
	dec := json.NewDecoder(reader)
	enc := json.NewEncoder(conn)

	for {
		var req proto.Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warnw("malformed request", "error", err)
			}
			return
		}

		resp := s.dispatch(log, req)
		if err := enc.Encode(resp); err != nil {
			log.Warnw("failed to write response", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(log *zap.SugaredLogger, req proto.Request) proto.Response {
	switch {
	case req.Set != nil:
		if err := s.engine.Set(req.Set.Key, req.Set.Value); err != nil {
			log.Warnw("set failed", "key", req.Set.Key, "error", err)
			return proto.Response{Set: proto.ErrUnit(err.Error())}
		}
		return proto.Response{Set: proto.OkUnit()}

	case req.Get != nil:
		val, ok, err := s.engine.Get(req.Get.Key)
		if err != nil {
			log.Warnw("get failed", "key", req.Get.Key, "error", err)
			return proto.Response{Get: proto.ErrString(err.Error())}
		}
		if !ok {
			return proto.Response{Get: proto.OkString(nil)}
		}
		return proto.Response{Get: proto.OkString(&val)}

	case req.Remove != nil:
		if err := s.engine.Remove(req.Remove.Key); err != nil {
			if engineselect.IsKeyNotFound(err) {
				return proto.Response{Remove: proto.ErrUnit(proto.KeyNotFoundMessage)}
			}
			log.Warnw("remove failed", "key", req.Remove.Key, "error", err)
			return proto.Response{Remove: proto.ErrUnit(err.Error())}
		}
		return proto.Response{Remove: proto.OkUnit()}

	default:
		return proto.Response{Set: proto.ErrUnit("empty request")}
	}
}
