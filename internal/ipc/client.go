package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// RemoteError is a failure reported by the daemon rather than the transport.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

type Client struct {
	SocketPath string
	Timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{SocketPath: socketPath, Timeout: 5 * time.Second}
}

// Call sends cmd and decodes the response data into out, which may be nil.
// It returns the daemon's message on success.
func (c *Client) Call(cmd Command, out interface{}) (string, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, 2*time.Second)
	if err != nil {
		return "", fmt.Errorf("connecting to daemon socket (%s): %w", c.SocketPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.Timeout))

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return "", fmt.Errorf("sending command: %w", err)
	}

	var resp struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return "", fmt.Errorf("receiving response: %w", err)
	}
	if !resp.Success {
		return "", &RemoteError{Message: resp.Message}
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return resp.Message, fmt.Errorf("decoding response data: %w", err)
		}
	}
	return resp.Message, nil
}
