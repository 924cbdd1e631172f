package ipc

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Client is a control-channel client used by vikeyctl.
type Client struct {
	conn    net.Conn
	timeout time.Duration
	nextID  atomic.Uint32
}

// Dial connects to the daemon's control channel.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := dial(socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Request sends one request and decodes the response payload into out (when
// out is non-nil). A MsgError response is returned as an error.
func (c *Client) Request(msgType MessageType, req, out any) error {
	var payload []byte
	if req != nil {
		var err error
		payload, err = Encode(req)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	id := c.nextID.Add(1)
	msg := NewMessage(msgType, id, payload)

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := msg.Write(c.conn); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	resp, err := ReadMessage(c.conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.Header.Type == MsgError {
		var e ErrorResponse
		if err := Decode(resp.Payload, &e); err != nil {
			return fmt.Errorf("daemon error (undecodable)")
		}
		return fmt.Errorf("daemon error: %s", e.Message)
	}

	if out != nil {
		if err := Decode(resp.Payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// RequestAck sends a request whose response is a generic Ack and converts a
// failed ack into an error.
func (c *Client) RequestAck(msgType MessageType, req any) error {
	var ack Ack
	if err := c.Request(msgType, req, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return fmt.Errorf("%s", ack.Error)
	}
	return nil
}

// Ping round-trips a ping message.
func (c *Client) Ping() error {
	return c.Request(MsgPing, nil, nil)
}
