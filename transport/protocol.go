// Package transport implements the three transmission protocols that
// sit between the wire envelope and a raw UDP socket: Default (fire
// and forget), RequestAck (one round trip, retried), and Handshake
// (chunked, ordered, optionally selectively-retransmitted). Each has a
// Faulty twin that drops outbound datagrams to exercise the others'
// retry logic.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oryx-udprpc/rfs/envelope"
	"github.com/oryx-udprpc/rfs/semantics"
)

// Protocol moves one opaque application payload across a UDP socket in
// one direction's round trip. Implementations are safe to reuse across
// calls but not safe for concurrent SendBytes/RecvBytes on the same
// exchange from multiple goroutines.
type Protocol interface {
	// SendBytes frames payload and writes it (and, depending on the
	// protocol, handles the ensuing acknowledgment/retry dance) to addr
	// over conn.
	SendBytes(ctx context.Context, conn net.PacketConn, addr net.Addr, payload []byte, cfg semantics.Config) error

	// RecvBytes blocks until a full application payload has arrived on
	// conn, replying with whatever acknowledgments its protocol phase
	// requires, and returns the payload plus the peer's address.
	RecvBytes(ctx context.Context, conn net.PacketConn, cfg semantics.Config) (payload []byte, from net.Addr, err error)
}

// maxDatagram is large enough for any single frame this package emits;
// Handshake callers should keep semantics.Config.ChunkSize comfortably
// under it to avoid IP fragmentation.
const maxDatagram = 65507

func readDeadline(ctx context.Context, cfg semantics.Config) time.Time {
	d := time.Now().Add(cfg.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

// recvEnvelope reads one datagram before deadline and decodes its
// envelope.
func recvEnvelope(conn net.PacketConn, deadline time.Time) (envelope.Envelope, net.Addr, error) {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, fmt.Errorf("transport: set read deadline: %w", err)
	}
	buf := make([]byte, maxDatagram)
	n, from, err := conn.ReadFrom(buf)
	if err != nil {
		return nil, nil, err
	}
	env, err := envelope.Decode(buf[:n])
	if err != nil {
		return nil, nil, err
	}
	return env, from, nil
}

func sendEnvelope(conn net.PacketConn, addr net.Addr, e envelope.Envelope, timeout time.Duration) error {
	b, err := envelope.Encode(e)
	if err != nil {
		return err
	}
	if len(b) > maxDatagram {
		return fmt.Errorf("%w: %d bytes exceeds %d-byte datagram limit", ErrTooLarge, len(b), maxDatagram)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("transport: set write deadline: %w", err)
	}
	_, err = conn.WriteTo(b, addr)
	return err
}

// Default implements best-effort, fire-and-forget delivery: one
// datagram out, no acknowledgment expected. It backs semantics.Maybe.
type Default struct{}

func (Default) SendBytes(ctx context.Context, conn net.PacketConn, addr net.Addr, payload []byte, cfg semantics.Config) error {
	return sendEnvelope(conn, addr, envelope.Payload{Bytes: payload}, cfg.Timeout)
}

func (Default) RecvBytes(ctx context.Context, conn net.PacketConn, cfg semantics.Config) ([]byte, net.Addr, error) {
	env, from, err := recvEnvelope(conn, readDeadline(ctx, cfg))
	if err != nil {
		return nil, nil, err
	}
	p, ok := env.(envelope.Payload)
	if !ok {
		return nil, nil, fmt.Errorf("%w: got %T, want Payload", ErrUnexpectedFrame, env)
	}
	return p.Bytes, from, nil
}
