package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/xid"

	"github.com/oryx-udprpc/rfs/envelope"
	"github.com/oryx-udprpc/rfs/semantics"
)

// exchangeIDLen is the width of the raw xid prefix RequestAck stitches
// onto every application payload so the receiver can echo it back in
// an Ack and the sender can tell a stale retransmission's reply from
// the current one's.
const exchangeIDLen = 12

// RequestAck implements a one-round-trip, retried exchange: the sender
// prefixes the payload with a fresh exchange ID, resends the same
// datagram up to cfg.Retries times until an Ack naming that ID arrives,
// and gives up with ErrTimeout otherwise. It backs semantics.AtLeastOnce.
type RequestAck struct{}

func (RequestAck) SendBytes(ctx context.Context, conn net.PacketConn, addr net.Addr, payload []byte, cfg semantics.Config) error {
	id := xid.New()
	framed := make([]byte, 0, exchangeIDLen+len(payload))
	framed = append(framed, id.Bytes()...)
	framed = append(framed, payload...)

	for attempt := 0; attempt < cfg.Retries; attempt++ {
		if attempt > 0 {
			countRetransmit()
		}
		if err := sendEnvelope(conn, addr, envelope.Payload{Bytes: framed}, cfg.Timeout); err != nil {
			return err
		}

		deadline := readDeadline(ctx, cfg)
		for {
			env, _, err := recvEnvelope(conn, deadline)
			if err != nil {
				if isTimeout(err) {
					break // fall through to the next attempt
				}
				return err
			}
			ack, ok := env.(envelope.Ack)
			if !ok {
				continue // stray frame from an earlier attempt; keep waiting
			}
			if ack.ID != id.String() {
				continue // ack for a retransmission we already gave up on
			}
			return nil
		}
	}
	return ErrTimeout
}

func (RequestAck) RecvBytes(ctx context.Context, conn net.PacketConn, cfg semantics.Config) ([]byte, net.Addr, error) {
	env, from, err := recvEnvelope(conn, readDeadline(ctx, cfg))
	if err != nil {
		return nil, nil, err
	}
	p, ok := env.(envelope.Payload)
	if !ok {
		return nil, nil, fmt.Errorf("%w: got %T, want Payload", ErrUnexpectedFrame, env)
	}
	if len(p.Bytes) < exchangeIDLen {
		return nil, nil, fmt.Errorf("transport: payload shorter than exchange ID prefix")
	}
	id, err := xid.FromBytes(p.Bytes[:exchangeIDLen])
	if err != nil {
		return nil, nil, fmt.Errorf("transport: decode exchange ID: %w", err)
	}
	if err := sendEnvelope(conn, from, envelope.Ack{ID: id.String()}, cfg.Timeout); err != nil {
		return nil, nil, err
	}
	return p.Bytes[exchangeIDLen:], from, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
