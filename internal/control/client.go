package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client sends control commands to a watching process
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new control client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// SetTimeout sets the client timeout for commands
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SendCommand sends a command and waits for the response
func (c *Client) SendCommand(cmd Command) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect (is 'nexus watch' running?): %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &resp, nil
}

// Save asks the watcher to write pending edits now
func (c *Client) Save(projectID string) (*Response, error) {
	return c.SendCommand(Command{Type: CommandSave, ProjectID: projectID, Timestamp: time.Now()})
}

// Refresh asks the watcher to drop pending edits and reload
func (c *Client) Refresh(projectID string) (*Response, error) {
	return c.SendCommand(Command{Type: CommandRefresh, ProjectID: projectID, Timestamp: time.Now()})
}

// Status requests the watcher's sync status
func (c *Client) Status(projectID string) (*Response, error) {
	return c.SendCommand(Command{Type: CommandStatus, ProjectID: projectID, Timestamp: time.Now()})
}
