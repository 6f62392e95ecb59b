// Package server implements the wordtally server: a TCP acceptor that runs
// one command processor per connection against a single shared store.
//
// Architecture:
//   - One listener; every accepted connection gets its own goroutine
//   - Each goroutine decodes frames, serves GET and SET, writes responses
//   - All goroutines share one store, locked per call and never across I/O
//   - A live-connection counter is kept for observability only
//
// Example usage:
//
//	srv := server.New("127.0.0.1:6379", store.New())
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//
// Connection goroutines are detached: their outcome is logged and reflected
// in the connection counter, nothing else. A failure on one connection
// never affects the store or any other connection. A failure to accept is
// fatal to Serve.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cachemir/wordtally/internal/logger"
	"github.com/cachemir/wordtally/pkg/protocol"
)

var (
	// ErrServerClosed is returned by Serve after Stop.
	ErrServerClosed = errors.New("server closed")
	// ErrUnsupportedCommand terminates a connection that sent anything but GET or SET.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// Store is the key-value store served to clients. Each call must be
// atomic on its own.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// Server accepts connections and serves GET/SET requests against a Store.
type Server struct {
	store        Store
	logger       *log.Logger
	listener     net.Listener
	address      string
	readTimeout  time.Duration
	writeTimeout time.Duration
	conns        atomic.Int64
	closed       atomic.Bool
	mu           sync.Mutex // guards listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTimeouts sets per-frame read and write deadlines. Zero disables a deadline.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// New creates a Server that will listen on address and serve st.
// The server is not started until Start (or Listen and Serve) is called.
func New(address string, st Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		address: address,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New("server")
	}
	return s
}

// Listen binds the listening endpoint.
func (s *Server) Listen() error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Serve runs the accept loop until Stop is called or accepting fails.
// It returns ErrServerClosed after Stop and the accept error otherwise.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}

		total := s.conns.Add(1)
		s.logger.Debug("new connection", "remote", conn.RemoteAddr().String(), "total", total)

		go s.handleConnection(conn)
	}
}

// Start is Listen followed by Serve.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes the listener so Serve returns. Established connections keep
// being served until their clients disconnect.
func (s *Server) Stop() error {
	s.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveConnections returns the number of connections being processed.
func (s *Server) ActiveConnections() int64 {
	return s.conns.Load()
}

// handleConnection runs the processor for one connection and records its
// completion. Nothing else observes the outcome.
func (s *Server) handleConnection(conn net.Conn) {
	remote := conn.RemoteAddr().String()

	err := s.process(conn)
	total := s.conns.Add(-1)

	if err != nil {
		s.logger.Warn("connection failed", "remote", remote, "err", err, "total", total)
		return
	}
	s.logger.Debug("end connection", "remote", remote, "total", total)
}

// process serves one connection until the peer closes it (nil) or a frame,
// transport or unsupported-command error occurs.
func (s *Server) process(conn net.Conn) error {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("error closing connection", "err", err)
		}
	}()

	pc := protocol.NewConn(conn)
	for {
		if s.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
				return fmt.Errorf("set read deadline: %w", err)
			}
		}

		cmd, err := pc.ReadCommand()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}
		s.logger.Debug("received command", "type", cmd.Type, "key", cmd.Key)

		resp, execErr := s.executeCommand(cmd)

		if s.writeTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
				return fmt.Errorf("set write deadline: %w", err)
			}
		}
		s.logger.Debug("writing response", "type", resp.Type)
		if err := pc.WriteResponse(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}

		if execErr != nil {
			return execErr
		}
	}
}

// executeCommand dispatches cmd to its handler. An unsupported command
// yields an error response together with ErrUnsupportedCommand, which ends
// the connection once the response is sent.
func (s *Server) executeCommand(cmd *protocol.Command) (*protocol.Response, error) {
	if handler := s.getCommandHandler(cmd.Type); handler != nil {
		return handler(cmd), nil
	}

	err := fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Type)
	return protocol.Errorf("%v", err), err
}

func (s *Server) getCommandHandler(cmdType protocol.CommandType) func(*protocol.Command) *protocol.Response {
	switch cmdType {
	case protocol.CmdGet:
		return s.handleGet
	case protocol.CmdSet:
		return s.handleSet
	default:
		return nil
	}
}

// handleGet returns the stored value, or NIL if the key is absent.
func (s *Server) handleGet(cmd *protocol.Command) *protocol.Response {
	value, exists := s.store.Get(cmd.Key)
	if !exists {
		return protocol.Nil()
	}
	return protocol.Value(value)
}

// handleSet stores the value and acknowledges.
func (s *Server) handleSet(cmd *protocol.Command) *protocol.Response {
	if err := s.store.Set(cmd.Key, cmd.Value); err != nil {
		return protocol.Errorf("SET %q: %v", cmd.Key, err)
	}
	return protocol.OK()
}
