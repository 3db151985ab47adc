package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/oryx-udprpc/rfs/envelope"
	"github.com/oryx-udprpc/rfs/semantics"
)

const (
	ackInit = "init"
	ackFin  = "fin"
)

// Handshake implements the three-phase chunked transfer protocol:
// HandshakeInit negotiates the chunk size and sequence base, a burst of
// HandshakeData frames carries the payload in order, and HandshakeFin
// closes the transfer. The receiver replies to Init and Fin with an
// Ack, and to a Fin that found gaps with one HandshakeNack per missing
// chunk; the sender resends only the named chunks and resends Fin.
// It backs semantics.AtMostOnce and carries payloads of any size; the
// other modes' protocols reject a frame larger than one datagram with
// ErrTooLarge instead of switching to Handshake.
type Handshake struct{}

func (Handshake) SendBytes(ctx context.Context, conn net.PacketConn, addr net.Addr, payload []byte, cfg semantics.Config) error {
	chunkSize := cfg.ChunkSize
	numChunks := (len(payload) + chunkSize - 1) / chunkSize
	if numChunks == 0 {
		numChunks = 1 // still negotiate and transfer one empty chunk
	}
	const seqBase = uint32(0)

	chunk := func(i int) []byte {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		return payload[start:end]
	}

	if err := awaitAck(ctx, conn, addr, cfg, envelope.HandshakeInit{
		TotalBytes: uint64(len(payload)),
		ChunkSize:  uint32(chunkSize),
		SeqBase:    seqBase,
	}, ackInit); err != nil {
		return err
	}

	sendAll := func(seqs []uint32) error {
		for _, seq := range seqs {
			i := int(seq - seqBase)
			if err := sendEnvelope(conn, addr, envelope.HandshakeData{Seq: seq, Bytes: chunk(i)}, cfg.Timeout); err != nil {
				return err
			}
		}
		return nil
	}

	all := make([]uint32, numChunks)
	for i := range all {
		all[i] = seqBase + uint32(i)
	}
	if err := sendAll(all); err != nil {
		return err
	}

	lastSeq := seqBase + uint32(numChunks) - 1
	for attempt := 0; attempt < cfg.Retries; attempt++ {
		if attempt > 0 {
			countRetransmit()
		}
		if err := sendEnvelope(conn, addr, envelope.HandshakeFin{LastSeq: lastSeq}, cfg.Timeout); err != nil {
			return err
		}

		deadline := readDeadline(ctx, cfg)
		for {
			env, _, err := recvEnvelope(conn, deadline)
			if err != nil {
				if isTimeout(err) {
					break
				}
				return err
			}
			switch f := env.(type) {
			case envelope.Ack:
				if f.ID == ackFin {
					return nil
				}
			case envelope.HandshakeNack:
				countRetransmit()
				if err := sendAll([]uint32{f.MissingSeq}); err != nil {
					return err
				}
			}
		}
	}
	return ErrTimeout
}

// awaitAck sends e, retrying up to cfg.Retries times, until an Ack
// naming wantID arrives.
func awaitAck(ctx context.Context, conn net.PacketConn, addr net.Addr, cfg semantics.Config, e envelope.Envelope, wantID string) error {
	for attempt := 0; attempt < cfg.Retries; attempt++ {
		if attempt > 0 {
			countRetransmit()
		}
		if err := sendEnvelope(conn, addr, e, cfg.Timeout); err != nil {
			return err
		}
		deadline := readDeadline(ctx, cfg)
		for {
			got, _, err := recvEnvelope(conn, deadline)
			if err != nil {
				if isTimeout(err) {
					break
				}
				return err
			}
			if ack, ok := got.(envelope.Ack); ok && ack.ID == wantID {
				return nil
			}
		}
	}
	return ErrTimeout
}

func (Handshake) RecvBytes(ctx context.Context, conn net.PacketConn, cfg semantics.Config) ([]byte, net.Addr, error) {
	deadline := readDeadline(ctx, cfg)
	env, from, err := recvEnvelope(conn, deadline)
	if err != nil {
		return nil, nil, err
	}
	init, ok := env.(envelope.HandshakeInit)
	if !ok {
		return nil, nil, fmt.Errorf("%w: got %T, want HandshakeInit", ErrUnexpectedFrame, env)
	}
	if err := sendEnvelope(conn, from, envelope.Ack{ID: ackInit}, cfg.Timeout); err != nil {
		return nil, nil, err
	}

	chunks := make(map[uint32][]byte)
	for attempt := 0; attempt < cfg.Retries; attempt++ {
		deadline = readDeadline(ctx, cfg)
		var lastSeq uint32
		sawFin := false

		for {
			env, _, err := recvEnvelope(conn, deadline)
			if err != nil {
				if isTimeout(err) {
					break
				}
				return nil, nil, err
			}
			switch f := env.(type) {
			case envelope.HandshakeData:
				if uint32(len(f.Bytes)) > init.ChunkSize {
					return nil, nil, ErrChunkTooLarge
				}
				chunks[f.Seq] = f.Bytes
			case envelope.HandshakeFin:
				lastSeq = f.LastSeq
				sawFin = true
			}
			if sawFin {
				break
			}
		}
		if !sawFin {
			continue
		}

		missing := missingSeqs(chunks, init.SeqBase, lastSeq)
		if len(missing) == 0 {
			return reassemble(chunks, init.SeqBase, lastSeq, from, conn, cfg)
		}
		for _, seq := range missing {
			if err := sendEnvelope(conn, from, envelope.HandshakeNack{MissingSeq: seq}, cfg.Timeout); err != nil {
				return nil, nil, err
			}
		}
	}
	return nil, nil, ErrTimeout
}

func missingSeqs(chunks map[uint32][]byte, seqBase, lastSeq uint32) []uint32 {
	var missing []uint32
	for seq := seqBase; seq <= lastSeq; seq++ {
		if _, ok := chunks[seq]; !ok {
			missing = append(missing, seq)
		}
	}
	return missing
}

func reassemble(chunks map[uint32][]byte, seqBase, lastSeq uint32, from net.Addr, conn net.PacketConn, cfg semantics.Config) ([]byte, net.Addr, error) {
	var out []byte
	for seq := seqBase; seq <= lastSeq; seq++ {
		out = append(out, chunks[seq]...)
	}
	if err := sendEnvelope(conn, from, envelope.Ack{ID: ackFin}, cfg.Timeout); err != nil {
		return nil, nil, err
	}
	return out, from, nil
}
