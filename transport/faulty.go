package transport

import (
	"context"
	"math/rand"
	"net"
	"sync/atomic"

	"github.com/oryx-udprpc/rfs/semantics"
)

// Faulty wraps a Protocol and silently drops roughly one outbound
// datagram in every N by skipping the underlying write and returning
// nil, as if it had been sent and lost in flight. It is the fault twin
// spec.md's scenario 4 and 6 use to exercise retransmission and
// duplicate suppression: Inverse of 1 drops every datagram, and 0 or
// less disables dropping.
type Faulty struct {
	Protocol Protocol
	Inverse  int
	Rand     *rand.Rand

	dropped uint64
}

// NewFaulty wraps p so that, on average, one in inverse outbound
// datagrams is dropped.
func NewFaulty(p Protocol, inverse int, seed int64) *Faulty {
	return &Faulty{Protocol: p, Inverse: inverse, Rand: rand.New(rand.NewSource(seed))}
}

// DropsTotal reports how many outbound datagrams this Faulty has
// discarded since construction.
func (f *Faulty) DropsTotal() uint64 { return atomic.LoadUint64(&f.dropped) }

func (f *Faulty) drop() bool {
	if f.Inverse <= 0 {
		return false
	}
	if f.Rand.Intn(f.Inverse) != 0 {
		return false
	}
	atomic.AddUint64(&f.dropped, 1)
	return true
}

// faultyConn intercepts WriteTo calls made by the wrapped protocol so
// drops apply uniformly across every datagram a protocol sends,
// including the internal acks and nacks of Handshake/RequestAck.
type faultyConn struct {
	net.PacketConn
	f *Faulty
}

func (c *faultyConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if c.f.drop() {
		return len(b), nil
	}
	return c.PacketConn.WriteTo(b, addr)
}

func (f *Faulty) SendBytes(ctx context.Context, conn net.PacketConn, addr net.Addr, payload []byte, cfg semantics.Config) error {
	return f.Protocol.SendBytes(ctx, &faultyConn{PacketConn: conn, f: f}, addr, payload, cfg)
}

func (f *Faulty) RecvBytes(ctx context.Context, conn net.PacketConn, cfg semantics.Config) ([]byte, net.Addr, error) {
	return f.Protocol.RecvBytes(ctx, &faultyConn{PacketConn: conn, f: f}, cfg)
}
