package simulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("simulator: closed")

// Logger is the logging interface used by Server.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds simulator configuration.
type Config struct {
	// Timing sets the movement phase durations.
	// Default: DefaultTiming().
	Timing Timing

	// State is the initial door state.
	// Default: DefaultState().
	State *State

	// Logger receives connection and command logs. Optional.
	Logger Logger
}

// peer is one connected client. Writes are serialised per connection.
type peer struct {
	conn net.Conn
	mu   sync.Mutex
}

func (p *peer) send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.conn.Write(frame)
	return err
}

// Server is a simulated door.
type Server struct {
	timing Timing
	logger Logger

	mu            sync.Mutex
	state         State
	respondToPing bool
	silent        map[string]bool
	peers         map[*peer]struct{}
	ln            net.Listener
	closed        bool
	stopMotion    chan struct{}
	retrigger     chan struct{}

	wg sync.WaitGroup
}

// New creates a simulator. Call Start to begin listening.
func New(cfg Config) *Server {
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	state := DefaultState()
	if cfg.State != nil {
		state = cfg.State.clone()
		if state.Notifications == nil {
			state.Notifications = DefaultState().Notifications
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return &Server{
		timing:        cfg.Timing,
		logger:        cfg.Logger,
		state:         state,
		respondToPing: true,
		silent:        make(map[string]bool),
		peers:         make(map[*peer]struct{}),
		retrigger:     make(chan struct{}, 1),
	}
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves
// clients in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.ln != nil {
		return fmt.Errorf("simulator: already listening on %s", s.ln.Addr())
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("simulator: listen %s: %w", addr, err)
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("door simulator listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Port returns the listening port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Close stops listening, drops every client and waits for the server's
// goroutines to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.stopMotion != nil {
		close(s.stopMotion)
		s.stopMotion = nil
	}
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for p := range s.peers {
		p.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// DropClients closes every client connection while continuing to listen.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		p.conn.Close()
	}
}

// Snapshot returns a copy of the door state.
func (s *Server) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetRespondToPing controls whether PINGs are answered.
func (s *Server) SetRespondToPing(respond bool) {
	s.mu.Lock()
	s.respondToPing = respond
	s.mu.Unlock()
}

// SetSilent makes the door ignore a command without replying.
func (s *Server) SetSilent(command string, silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if silent {
		s.silent[command] = true
	} else {
		delete(s.silent, command)
	}
}

// SetBattery updates the charge level and pushes DOOR_BATTERY to every
// client.
func (s *Server) SetBattery(percent int) {
	s.mu.Lock()
	s.state.BatteryPercent = percent
	frame := s.batteryLocked(protocol.CmdDoorBattery)
	s.mu.Unlock()

	s.broadcast(frame)
}

// SetPower switches the door on or off. A door without power ignores its
// sensors.
func (s *Server) SetPower(on bool) {
	s.mu.Lock()
	s.state.Power = on
	s.mu.Unlock()
}

// SetPetInDoorway holds the door open while set.
func (s *Server) SetPetInDoorway(present bool) {
	s.mu.Lock()
	s.state.PetInDoorway = present
	s.mu.Unlock()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		p := &peer{conn: conn}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.peers[p] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		s.logger.Info("client connected", "remote", conn.RemoteAddr().String())
		go s.serve(p)
	}
}

func (s *Server) serve(p *peer) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		p.conn.Close()
		s.logger.Info("client disconnected", "remote", p.conn.RemoteAddr().String())
	}()

	var frames protocol.FrameBuffer
	buf := make([]byte, 1024)

	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			frames.Write(buf[:n])
			for {
				frame, ferr := frames.Next()
				if ferr != nil {
					s.logger.Warn("discarding unframed data", "error", ferr)
					continue
				}
				if frame == nil {
					break
				}
				s.handleFrame(p, frame)
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleFrame(p *peer, frame []byte) {
	in, err := protocol.Decode(frame)
	if err != nil {
		s.logger.Warn("malformed request", "error", err)
		return
	}
	s.logger.Debug("RX", "frame", string(frame))

	req := parseRequest(in.Fields)
	replies, effect := s.handle(req)
	for _, r := range replies {
		data, err := json.Marshal(r)
		if err != nil {
			s.logger.Error("encoding reply failed", "command", req.command, "error", err)
			continue
		}
		if err := p.send(data); err != nil {
			return
		}
		s.logger.Debug("TX", "frame", string(data))
	}
	if effect != nil {
		effect()
	}
}

// broadcast sends one frame to every connected client.
func (s *Server) broadcast(frame map[string]any) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("encoding broadcast failed", "error", err)
		return
	}

	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.send(data)
	}
}
