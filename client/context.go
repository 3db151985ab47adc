// Package client implements the context manager: the one-shot,
// synchronous-from-the-caller's-view invocation path described in
// spec §4.4. A Context binds a UDP socket, a server address, and a
// transmission protocol chosen by semantics.Mode, and offers a single
// Invoke operation.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oryx-udprpc/rfs/envelope"
	"github.com/oryx-udprpc/rfs/semantics"
	"github.com/oryx-udprpc/rfs/transport"
)

// Config is the client-side configuration: the shared invocation knobs
// plus the remote address to call.
type Config struct {
	semantics.Config
	TargetAddress string
}

// ErrTimeout is returned when the configured retries are exhausted
// without a reply.
var ErrTimeout = errors.New("client: timed out waiting for reply")

// ErrEncode is returned when request_bytes cannot be framed into an
// envelope; encoding failures are deterministic and are never retried.
var ErrEncode = errors.New("client: failed to encode request")

// ErrDecode is returned when a reply datagram cannot be parsed as an
// envelope.
var ErrDecode = errors.New("client: failed to decode reply")

// ErrProtocolViolation is returned when a reply is a well-formed
// envelope but not one Invoke's state expects (neither Payload nor
// ErrorResponse).
var ErrProtocolViolation = errors.New("client: unexpected envelope variant in reply")

// RemoteError reports a server-side refusal: a decoded
// envelope.ErrorResponse translated into a Go error, carrying the
// abstract kind (see dispatch package) and free-form detail the
// dispatcher attached.
type RemoteError struct {
	Kind   string
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("client: remote error %s: %s", e.Kind, e.Detail)
}

// Context is the bound invocation context spec §4.4 describes: one
// socket, one server address, one protocol, for the lifetime of the
// process that owns it. Invoke is not safe for concurrent use: every
// call reads replies from the one shared socket, so concurrent calls can
// receive or discard each other's frames.
type Context struct {
	conn     net.PacketConn
	addr     net.Addr
	protocol transport.Protocol
	cfg      semantics.Config
}

// NewContext resolves targetAddress and binds a Context to conn, using
// the protocol semantics.Mode selects (transport.ForMode). cfg is
// validated before any socket I/O happens.
func NewContext(conn net.PacketConn, targetAddress string, cfg semantics.Config) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("client: resolve %s: %w", targetAddress, err)
	}
	return &Context{
		conn:     conn,
		addr:     addr,
		protocol: transport.ForMode(cfg),
		cfg:      cfg,
	}, nil
}

// Invoke implements spec §4.4 steps 1-4: wrap request in an
// application-level Payload envelope, hand it to the transmission
// protocol (which performs its own framing, retries, and — for
// Handshake — chunking), await exactly one reply, and decode it back
// into either the reply bytes or a typed error.
func (c *Context) Invoke(ctx context.Context, signature string, request []byte) ([]byte, error) {
	frame, err := envelope.Encode(envelope.Payload{Bytes: request})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := c.protocol.SendBytes(ctx, c.conn, c.addr, frame, c.cfg); err != nil {
		if errors.Is(err, transport.ErrTimeout) || isNetTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("client: send %s: %w", signature, err)
	}

	replyFrame, _, err := c.protocol.RecvBytes(ctx, c.conn, c.cfg)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) || isNetTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("client: recv reply to %s: %w", signature, err)
	}

	env, err := envelope.Decode(replyFrame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch v := env.(type) {
	case envelope.Payload:
		return v.Bytes, nil
	case envelope.ErrorResponse:
		return nil, &RemoteError{Kind: v.Kind, Detail: v.Detail}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrProtocolViolation, env)
	}
}

func isNetTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
