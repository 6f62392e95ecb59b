// Package client provides the connection a wordtally chunk reader uses to
// talk to the server.
//
// A Client owns exactly one TCP connection. Requests are strictly
// request/response: each call writes one frame and waits for the answer.
// There are no retries; a transport error leaves the Client unusable and
// the caller decides what to do with the unit of work.
//
// Basic Usage:
//
//	c, err := client.Dial(ctx, "127.0.0.1:6379")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Set("cat", []byte("1")); err != nil {
//		log.Fatal(err)
//	}
//	value, ok, err := c.Get("cat")
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/cachemir/wordtally/pkg/protocol"
)

// ErrServer wraps error responses sent by the server.
var ErrServer = errors.New("server error")

// Client is a single connection to a wordtally server. It is safe for
// concurrent use; calls are serialized so responses pair with requests.
type Client struct {
	conn net.Conn
	pc   *protocol.Conn
	mu   sync.Mutex // keeps each request/response pair together
}

// Dial connects to the server at address.
func Dial(ctx context.Context, address string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{conn: conn, pc: protocol.NewConn(conn)}
}

// Get returns the value stored for key. ok is false when the key is absent.
func (c *Client) Get(key string) (value []byte, ok bool, err error) {
	resp, err := c.do(&protocol.Command{Type: protocol.CmdGet, Key: key})
	if err != nil {
		return nil, false, err
	}

	switch resp.Type {
	case protocol.RespNil:
		return nil, false, nil
	case protocol.RespValue:
		if resp.Value == nil {
			return []byte{}, true, nil
		}
		return resp.Value, true, nil
	default:
		return nil, false, unexpected(protocol.CmdGet, resp)
	}
}

// Set stores value under key.
func (c *Client) Set(key string, value []byte) error {
	resp, err := c.do(&protocol.Command{Type: protocol.CmdSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if resp.Type != protocol.RespOK {
		return unexpected(protocol.CmdSet, resp)
	}
	return nil
}

// Ping sends a PING. The reference server only serves GET and SET, so
// this reports the server's refusal and the connection is closed by the
// server afterwards.
func (c *Client) Ping() error {
	resp, err := c.do(&protocol.Command{Type: protocol.CmdPing})
	if err != nil {
		return err
	}
	if resp.Type != protocol.RespOK {
		return unexpected(protocol.CmdPing, resp)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local address of the connection.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Client) do(cmd *protocol.Command) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pc.WriteCommand(cmd); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	resp, err := c.pc.ReadResponse()
	if err != nil {
		return nil, fmt.Errorf("receive %s response: %w", cmd.Type, err)
	}
	return resp, nil
}

func unexpected(cmd protocol.CommandType, resp *protocol.Response) error {
	if resp.Type == protocol.RespError {
		return fmt.Errorf("%s: %w: %s", cmd, ErrServer, resp.Error)
	}
	return fmt.Errorf("%s: unexpected %s response", cmd, resp.Type)
}
