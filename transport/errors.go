package transport

import "errors"

// ErrTimeout is returned when a protocol exhausts its retry budget
// without a satisfactory response.
var ErrTimeout = errors.New("transport: timed out waiting for peer")

// ErrAckMismatch describes an acknowledgment carrying an ID that does
// not match the in-flight exchange. RequestAck and Handshake skip such
// acks and keep waiting; neither returns this value.
var ErrAckMismatch = errors.New("transport: acknowledgment does not match exchange")

// ErrUnexpectedFrame is returned when a peer sends an envelope that
// doesn't fit the protocol's current phase.
var ErrUnexpectedFrame = errors.New("transport: unexpected frame for this phase")

// ErrChunkTooLarge is returned when a chunk's decoded length exceeds
// the chunk size negotiated at Init.
var ErrChunkTooLarge = errors.New("transport: chunk exceeds negotiated size")

// ErrTooLarge is returned by Default and RequestAck when an encoded
// envelope would not fit in a single UDP datagram. Handshake callers
// avoid this by keeping semantics.Config.ChunkSize under maxDatagram.
var ErrTooLarge = errors.New("transport: payload exceeds single-datagram limit")
