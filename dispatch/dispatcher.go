package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oryx-udprpc/rfs/cache"
	"github.com/oryx-udprpc/rfs/envelope"
	"github.com/oryx-udprpc/rfs/logger"
	"github.com/oryx-udprpc/rfs/ratesample"
	"github.com/oryx-udprpc/rfs/semantics"
	"github.com/oryx-udprpc/rfs/statusapi"
	"github.com/oryx-udprpc/rfs/transport"
)

// defaultCacheCapacity bounds the at-most-once dedup cache independent
// of its TTL, so a sustained flood of distinct requests can't grow it
// without bound while waiting for entries to expire.
const defaultCacheCapacity = 16384

// Dispatcher owns the UDP socket, the chosen transport.Protocol, the
// at-most-once dedup cache, and a PayloadHandler. Serve runs the main
// loop of spec §4.5 exactly: recv -> decode envelope -> (cache check ->)
// invoke -> (cache store ->) reply, with decode failures and handler
// panics folded into ErrorResponse instead of ever reaching the caller.
type Dispatcher struct {
	conn     net.PacketConn
	handler  PayloadHandler
	protocol transport.Protocol
	cache    *cache.Cache
	cfg      semantics.Config
	ctx      logger.Context

	inflight singleflight.Group
	sampler  ratesample.Sampler

	startedAt time.Time

	requestsTotal      uint64
	cacheHitsTotal     uint64
	handlerErrorsTotal uint64
}

// New builds a Dispatcher over conn. cfg.Validate is called first; an
// invalid configuration is rejected before any socket I/O happens.
func New(ctx logger.Context, conn net.PacketConn, handler PayloadHandler, cfg semantics.Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	d := &Dispatcher{
		conn:      conn,
		handler:   handler,
		protocol:  transport.ForMode(cfg),
		cache:     cache.New(cfg.CacheTTL, defaultCacheCapacity),
		cfg:       cfg,
		ctx:       ctx,
		startedAt: time.Now(),
	}
	d.sampler = ratesample.New(ctx, d)
	return d, nil
}

// NbRequests implements ratesample.Source.
func (d *Dispatcher) NbRequests() uint64 { return atomic.LoadUint64(&d.requestsTotal) }

// RequestsTotal implements rpcmetrics.Source.
func (d *Dispatcher) RequestsTotal() uint64 { return atomic.LoadUint64(&d.requestsTotal) }

// CacheHitsTotal implements rpcmetrics.Source.
func (d *Dispatcher) CacheHitsTotal() uint64 { return atomic.LoadUint64(&d.cacheHitsTotal) }

// HandlerErrorsTotal implements rpcmetrics.Source.
func (d *Dispatcher) HandlerErrorsTotal() uint64 { return atomic.LoadUint64(&d.handlerErrorsTotal) }

// RetransmitsTotal implements rpcmetrics.Source, reading the
// process-wide counter every RequestAck/Handshake retry increments.
func (d *Dispatcher) RetransmitsTotal() uint64 { return transport.RetransmitsTotal() }

// DropsTotal implements rpcmetrics.Source. It is zero unless fault
// injection is configured, since only transport.Faulty counts drops.
func (d *Dispatcher) DropsTotal() uint64 {
	if f, ok := d.protocol.(*transport.Faulty); ok {
		return f.DropsTotal()
	}
	return 0
}

// Health implements statusapi.HealthSource.
func (d *Dispatcher) Health() statusapi.Health {
	return statusapi.Health{
		Uptime:      time.Since(d.startedAt).String(),
		Mode:        d.cfg.Mode.String(),
		RequestsRps: d.sampler.Rps10s(),
		CacheSize:   d.cache.Len(),
	}
}

// Serve runs the main loop until ctx is canceled or the socket is
// closed out from under it. Socket I/O errors are logged and the loop
// continues, per spec §4.5's failure semantics: injected packet loss
// must never terminate the server.
func (d *Dispatcher) Serve(ctx context.Context) error {
	if err := d.sampler.Start(); err != nil {
		return fmt.Errorf("dispatch: start sampler: %w", err)
	}
	defer d.sampler.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, peer, err := d.protocol.RecvBytes(ctx, d.conn, d.cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.W(d.ctx, "dispatch: recv failed, continuing:", err)
			continue
		}

		reply := d.handleFrame(frame, peer)
		if err := d.protocol.SendBytes(ctx, d.conn, peer, reply, d.cfg); err != nil {
			if errors.Is(err, transport.ErrTooLarge) {
				logger.W(d.ctx, "dispatch: reply to", peer, "too large, downgrading to TooLarge error:", err)
				tooLarge := d.errorFrame(KindTooLarge, "result exceeds single-datagram limit")
				if err := d.protocol.SendBytes(ctx, d.conn, peer, tooLarge, d.cfg); err != nil {
					logger.W(d.ctx, "dispatch: reply to", peer, "failed:", err)
				}
				continue
			}
			logger.W(d.ctx, "dispatch: reply to", peer, "failed:", err)
		}
	}
}

// handleFrame implements spec §4.5 step 3: decode the application-level
// envelope, route Payload requests through lookup/invoke/reply, and
// fold anything else into a MalformedRequest reply without ever
// reaching the handler.
func (d *Dispatcher) handleFrame(frame []byte, peer net.Addr) []byte {
	env, err := envelope.Decode(frame)
	if err != nil {
		return d.errorFrame(KindMalformedRequest, err.Error())
	}

	p, ok := env.(envelope.Payload)
	if !ok {
		return d.errorFrame(KindMalformedRequest, fmt.Sprintf("unexpected %T at application layer", env))
	}

	atomic.AddUint64(&d.requestsTotal, 1)
	return d.process(p.Bytes, peer)
}

// process implements the IDLE->LOOKUP->REPLY / LOOKUP->INVOKE->STORE->
// REPLY state machine. Only AtMostOnce consults the fingerprint cache
// and collapses concurrent duplicate invocations via singleflight;
// Maybe and AtLeastOnce always invoke the handler, so that a
// retransmitted at-least-once request can be observed to run the
// handler more than once (spec §8 scenario 3).
func (d *Dispatcher) process(payload []byte, peer net.Addr) []byte {
	if d.cfg.Mode != semantics.AtMostOnce {
		return d.invoke(payload)
	}

	fp := cache.FingerprintOf(fingerprintKey(payload, peer))
	if cached, ok := d.cache.Get(fp); ok {
		atomic.AddUint64(&d.cacheHitsTotal, 1)
		return cached
	}

	v, _, _ := d.inflight.Do(string(fp), func() (interface{}, error) {
		if cached, ok := d.cache.Get(fp); ok {
			atomic.AddUint64(&d.cacheHitsTotal, 1)
			return cached, nil
		}
		reply := d.invoke(payload)
		d.cache.Put(fp, reply)
		return reply, nil
	})
	return v.([]byte)
}

// fingerprintKey folds the peer address into the fingerprint so two
// different clients issuing byte-identical requests are never
// conflated (spec §3's fingerprint(p, peer)).
func fingerprintKey(payload []byte, peer net.Addr) []byte {
	addr := peer.String()
	key := make([]byte, 0, len(addr)+len(payload))
	key = append(key, addr...)
	key = append(key, payload...)
	return key
}

// invoke calls the handler, recovering from panics and translating any
// failure into an ErrorResponse frame; it never returns an error
// itself so process/handleFrame always have a frame to send back.
func (d *Dispatcher) invoke(payload []byte) (reply []byte) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddUint64(&d.handlerErrorsTotal, 1)
			logger.E(d.ctx, "dispatch: handler panic:", r)
			reply = d.errorFrame(KindInternalError, fmt.Sprint(r))
		}
	}()

	result, err := d.handler.Handle(payload)
	if err != nil {
		atomic.AddUint64(&d.handlerErrorsTotal, 1)
		kind, detail := KindInternalError, err.Error()
		if he, ok := err.(*HandlerError); ok {
			kind, detail = he.Kind, he.Detail
		}
		return d.errorFrame(kind, detail)
	}

	frame, err := envelope.Encode(envelope.Payload{Bytes: result})
	if err != nil {
		atomic.AddUint64(&d.handlerErrorsTotal, 1)
		logger.E(d.ctx, "dispatch: encode reply:", err)
		return d.errorFrame(KindInternalError, err.Error())
	}
	return frame
}

func (d *Dispatcher) errorFrame(kind, detail string) []byte {
	frame, err := envelope.Encode(envelope.ErrorResponse{Kind: kind, Detail: detail})
	if err != nil {
		// envelope.Encode over a Struct of two strings cannot itself
		// fail; if it somehow does, there is no well-formed frame to
		// send, so log and answer with a minimal raw tag byte instead
		// of panicking the server.
		logger.E(d.ctx, "dispatch: encode ErrorResponse:", err)
		return []byte{byte(envelope.TagErrorResponse)}
	}
	return frame
}
