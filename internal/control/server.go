// Package control lets one nexus process drive the sync controller of another through a
// Unix socket. A process that keeps a project open (nexus watch) serves the socket; short
// lived commands (nexus sync save|refresh|status) connect to it.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Command types
const (
	CommandSave    = "save"
	CommandRefresh = "refresh"
	CommandStatus  = "status"
)

// Command represents a control command sent to a watching process
type Command struct {
	Type      string    `json:"type"`       // "save", "refresh", "status"
	ProjectID string    `json:"project_id"` // Must match the served project when set
	Timestamp time.Time `json:"timestamp"`
}

// Response represents a response to a control command
type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error,omitempty"`
}

// Handler executes a command and returns response data.
type Handler func(ctx context.Context, cmd Command) (map[string]interface{}, error)

// SocketPath returns the socket used for projectID under dir.
func SocketPath(dir, projectID string) string {
	return filepath.Join(dir, "sync-"+projectID+".sock")
}

// Server manages the control socket of a watching process
type Server struct {
	socketPath string
	listener   net.Listener
	logger     *slog.Logger
	mu         sync.RWMutex
	running    bool
	stopped    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	handler    Handler
}

// NewServer creates a new control server. A nil logger uses slog.Default().
func NewServer(socketPath string, handler Handler, logger *slog.Logger) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("command handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	// Remove a socket left behind by a crashed process
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins listening for control commands
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("control server already running")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	s.listener = listener
	s.running = true
	s.logger.Debug("control server listening", "socket", s.socketPath)

	go func() {
		select {
		case <-ctx.Done():
			_ = listener.Close()
		case <-s.stopCh:
		}
	}()
	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("control accept failed", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection processes a single control connection
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Bad clients must not hold the connection open
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		s.logger.Warn("control: failed to set read deadline", "error", err)
		return
	}

	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		s.sendError(conn, fmt.Sprintf("failed to decode command: %v", err))
		return
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now()
	}

	var resp Response
	data, err := s.handler(ctx, cmd)
	if err != nil {
		resp = Response{
			Success: false,
			Message: fmt.Sprintf("Command failed: %v", err),
			Error:   err.Error(),
		}
	} else {
		resp = Response{
			Success: true,
			Message: fmt.Sprintf("Command '%s' completed successfully", cmd.Type),
			Data:    data,
		}
	}

	if err := s.sendResponse(conn, resp); err != nil {
		s.logger.Warn("control: failed to send response", "error", err)
	}
}

func (s *Server) sendError(conn net.Conn, message string) {
	_ = s.sendResponse(conn, Response{Success: false, Message: message, Error: message})
}

func (s *Server) sendResponse(conn net.Conn, resp Response) error {
	return json.NewEncoder(conn).Encode(resp)
}

// Stop closes the socket and waits for in-flight commands.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.listener == nil || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("control: error closing listener", "error", err)
	}

	select {
	case <-s.doneCh:
	case <-time.After(5 * time.Second):
		s.logger.Warn("control: timeout waiting for server shutdown")
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove socket file: %w", err)
	}
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SocketPath returns the path to the control socket
func (s *Server) SocketPath() string {
	return s.socketPath
}
