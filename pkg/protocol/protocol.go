// Package protocol implements the request/response framing used between
// wordtally clients and the server.
//
// Protocol Format:
//   - Every message is prefixed with a 4-byte length header (big-endian)
//   - The body is a msgpack-encoded Command or Response
//   - Bodies larger than MaxFrameSize are rejected
//
// Example usage:
//
//	cmd := &protocol.Command{Type: protocol.CmdSet, Key: "cat", Value: []byte("2")}
//	if err := protocol.WriteCommand(conn, cmd); err != nil {
//		log.Fatal(err)
//	}
//	resp, err := protocol.ReadResponse(conn)
//
// A reader that hits end of stream exactly at a frame boundary gets io.EOF,
// which marks a cleanly closed connection. End of stream inside a frame
// is reported as io.ErrUnexpectedEOF.
package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Protocol constants
const (
	protocolHeaderSize = 4
	MaxFrameSize       = 1024 * 1024
)

// ErrFrameTooLarge is returned for frames whose header exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("protocol: frame too large")

// CommandType is the kind of a request.
type CommandType uint8

const (
	CmdGet  CommandType = iota // GET key
	CmdSet                     // SET key value
	CmdPing                    // PING
)

func (t CommandType) String() string {
	switch t {
	case CmdGet:
		return "GET"
	case CmdSet:
		return "SET"
	case CmdPing:
		return "PING"
	default:
		return fmt.Sprintf("CMD(%d)", uint8(t))
	}
}

// ResponseType is the kind of a response.
type ResponseType uint8

const (
	RespOK    ResponseType = iota // acknowledgement
	RespError                     // Error holds the message
	RespValue                     // Value holds the payload
	RespNil                       // no value for the key
)

func (t ResponseType) String() string {
	switch t {
	case RespOK:
		return "OK"
	case RespError:
		return "ERROR"
	case RespValue:
		return "VALUE"
	case RespNil:
		return "NIL"
	default:
		return fmt.Sprintf("RESP(%d)", uint8(t))
	}
}

// Command is a client request.
type Command struct {
	Key   string      `msgpack:"k,omitempty"`
	Value []byte      `msgpack:"v,omitempty"`
	Type  CommandType `msgpack:"t"`
}

// Response is the server's answer to one Command.
type Response struct {
	Value []byte       `msgpack:"v,omitempty"`
	Error string       `msgpack:"e,omitempty"`
	Type  ResponseType `msgpack:"t"`
}

// OK returns an acknowledgement response.
func OK() *Response { return &Response{Type: RespOK} }

// Nil returns the response for an absent key.
func Nil() *Response { return &Response{Type: RespNil} }

// Value returns a response carrying v.
func Value(v []byte) *Response { return &Response{Type: RespValue, Value: v} }

// Errorf returns an error response.
func Errorf(format string, args ...any) *Response {
	return &Response{Type: RespError, Error: fmt.Sprintf(format, args...)}
}

// WriteCommand encodes cmd and writes it as one frame.
func WriteCommand(w io.Writer, cmd *Command) error {
	return writeFrame(w, cmd)
}

// ReadCommand reads and decodes one command frame.
func ReadCommand(r io.Reader) (*Command, error) {
	cmd := &Command{}
	if err := readFrame(r, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// WriteResponse encodes resp and writes it as one frame.
func WriteResponse(w io.Writer, resp *Response) error {
	return writeFrame(w, resp)
}

// ReadResponse reads and decodes one response frame.
func ReadResponse(r io.Reader) (*Response, error) {
	resp := &Response{}
	if err := readFrame(r, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func writeFrame(w io.Writer, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	frame := make([]byte, protocolHeaderSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[protocolHeaderSize:], data)

	_, err = w.Write(frame)
	return err
}

func readFrame(r io.Reader, v any) error {
	header := make([]byte, protocolHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}

// Conn pairs a buffered reader with the underlying stream so that frames
// can be read without a syscall per header.
type Conn struct {
	rw io.ReadWriter
	br *bufio.Reader
}

// NewConn wraps rw.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, br: bufio.NewReader(rw)}
}

// ReadCommand reads the next command frame.
func (c *Conn) ReadCommand() (*Command, error) { return ReadCommand(c.br) }

// ReadResponse reads the next response frame.
func (c *Conn) ReadResponse() (*Response, error) { return ReadResponse(c.br) }

// WriteCommand writes one command frame.
func (c *Conn) WriteCommand(cmd *Command) error { return WriteCommand(c.rw, cmd) }

// WriteResponse writes one response frame.
func (c *Conn) WriteResponse(resp *Response) error { return WriteResponse(c.rw, resp) }
