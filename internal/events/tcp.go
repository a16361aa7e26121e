package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const Welcome = "welcome"

// TCPServer streams hub events to raw TCP clients as newline-delimited JSON.
// Anything a client sends is read and discarded.
type TCPServer struct {
	addr   string
	hub    *Hub
	logger *zap.Logger

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewTCPServer(addr string, hub *Hub, logger *zap.Logger) *TCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPServer{
		addr:   addr,
		hub:    hub,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Listen binds the address so bind errors surface before serving.
func (s *TCPServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("tcp event feed listening", zap.String("addr", ln.Addr().String()))
	return nil
}

func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts clients until Close. It calls Listen when needed.
func (s *TCPServer) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.ln
		s.mu.Unlock()
	}
	return s.serve(ln)
}

const maxAcceptDelay = time.Second

func (s *TCPServer) serve(ln net.Listener) error {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// back off like net/http so EMFILE doesn't spin
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.logger.Warn("tcp accept failed", zap.Error(err), zap.Duration("retry_in", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *TCPServer) handle(conn net.Conn) {
	defer s.wg.Done()

	remote := conn.RemoteAddr().String()
	s.logger.Info("tcp client connected", zap.String("remote", remote))

	ch, unsubscribe := s.hub.Subscribe(16)
	defer func() {
		unsubscribe()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Info("tcp client disconnected", zap.String("remote", remote))
	}()

	// reading detects the close; it ends the write loop below
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
		}
		unsubscribe()
	}()

	enc := json.NewEncoder(conn)
	if err := s.write(conn, enc, Event{Type: Welcome, At: time.Now().UTC()}); err != nil {
		return
	}
	for ev := range ch {
		if err := s.write(conn, enc, ev); err != nil {
			return
		}
	}
}

func (s *TCPServer) write(conn net.Conn, enc *json.Encoder, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return enc.Encode(ev)
}

// Close stops accepting, disconnects every client and waits for handlers.
func (s *TCPServer) Close() error {
	s.mu.Lock()
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
