// Package envelope implements the outermost middleware framing carried in
// every datagram: a one-byte envelope discriminator (disjoint from every
// codec type tag and structural delimiter, which all fall in printable
// ASCII) followed by a codec-encoded, then RLE-compressed, body.
package envelope

import (
	"fmt"

	"github.com/oryx-udprpc/rfs/codec"
	"github.com/oryx-udprpc/rfs/rle"
)

// Tag is the envelope discriminator. The range 0x80-0x8C is disjoint from
// every codec tag (0x62-0x74) and structural delimiter (0x28-0x7D), so a
// raw parse of the first byte of a datagram is always unambiguous.
type Tag byte

const (
	TagPayload       Tag = 0x80
	TagAck           Tag = 0x81
	TagErrorResponse Tag = 0x82
	TagHandshakeInit Tag = 0x83
	TagHandshakeData Tag = 0x84
	TagHandshakeFin  Tag = 0x85
	TagHandshakeNack Tag = 0x86
)

func (t Tag) String() string {
	switch t {
	case TagPayload:
		return "Payload"
	case TagAck:
		return "Ack"
	case TagErrorResponse:
		return "ErrorResponse"
	case TagHandshakeInit:
		return "HandshakeInit"
	case TagHandshakeData:
		return "HandshakeData"
	case TagHandshakeFin:
		return "HandshakeFin"
	case TagHandshakeNack:
		return "HandshakeNack"
	default:
		return fmt.Sprintf("Tag(0x%02x)", byte(t))
	}
}

// Envelope is any middleware frame.
type Envelope interface {
	tag() Tag
	body() (codec.Value, error)
}

// Payload carries an encoded method payload, request or reply.
type Payload struct{ Bytes []byte }

func (Payload) tag() Tag { return TagPayload }
func (v Payload) body() (codec.Value, error) {
	return codec.NewBytes(v.Bytes), nil
}

// Ack acknowledges a prior message by its nonce/sequence identifier.
// RequestAck exchanges use a random exchange nonce; Handshake exchanges
// use "init", "fin", or a decimal chunk sequence number.
type Ack struct{ ID string }

func (Ack) tag() Tag { return TagAck }
func (v Ack) body() (codec.Value, error) {
	return codec.NewString(v.ID), nil
}

// ErrorResponse is the dispatcher's refusal frame. Kind is one of the
// abstract error kinds from spec.md §7 (MalformedRequest, InternalError,
// UnknownMethod, TooLarge, ...); Detail is free-form diagnostic text.
type ErrorResponse struct {
	Kind   string
	Detail string
}

func (ErrorResponse) tag() Tag { return TagErrorResponse }
func (v ErrorResponse) body() (codec.Value, error) {
	return codec.NewStruct(
		codec.StringField("kind", codec.NewString(v.Kind)),
		codec.StringField("detail", codec.NewString(v.Detail)),
	), nil
}

// HandshakeInit starts a chunked transfer.
type HandshakeInit struct {
	TotalBytes uint64
	ChunkSize  uint32
	SeqBase    uint32
}

func (HandshakeInit) tag() Tag { return TagHandshakeInit }
func (v HandshakeInit) body() (codec.Value, error) {
	return codec.NewStruct(
		codec.StringField("total_bytes", codec.NewUint(v.TotalBytes)),
		codec.StringField("chunk_size", codec.NewUint(uint64(v.ChunkSize))),
		codec.StringField("seq_base", codec.NewUint(uint64(v.SeqBase))),
	), nil
}

// HandshakeData carries one payload chunk.
type HandshakeData struct {
	Seq   uint32
	Bytes []byte
}

func (HandshakeData) tag() Tag { return TagHandshakeData }
func (v HandshakeData) body() (codec.Value, error) {
	return codec.NewStruct(
		codec.StringField("seq", codec.NewUint(uint64(v.Seq))),
		codec.StringField("bytes", codec.NewBytes(v.Bytes)),
	), nil
}

// HandshakeFin marks the end of a chunked transfer.
type HandshakeFin struct{ LastSeq uint32 }

func (HandshakeFin) tag() Tag { return TagHandshakeFin }
func (v HandshakeFin) body() (codec.Value, error) {
	return codec.NewStruct(
		codec.StringField("last_seq", codec.NewUint(uint64(v.LastSeq))),
	), nil
}

// HandshakeNack requests selective retransmission of one missing chunk.
type HandshakeNack struct{ MissingSeq uint32 }

func (HandshakeNack) tag() Tag { return TagHandshakeNack }
func (v HandshakeNack) body() (codec.Value, error) {
	return codec.NewStruct(
		codec.StringField("missing_seq", codec.NewUint(uint64(v.MissingSeq))),
	), nil
}

// Encode renders e as [tag byte][RLE-compressed codec-encoded body].
func Encode(e Envelope) ([]byte, error) {
	val, err := e.body()
	if err != nil {
		return nil, err
	}
	plain, err := val.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("envelope: encode body: %w", err)
	}
	compressed := rle.Compress(plain)
	out := make([]byte, 0, 1+len(compressed))
	out = append(out, byte(e.tag()))
	out = append(out, compressed...)
	return out, nil
}

// Decode parses the envelope tag, decompresses the body, and decodes it
// into the concrete Envelope type the tag names.
func Decode(data []byte) (Envelope, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("envelope: empty datagram")
	}
	tag := Tag(data[0])
	plain, err := rle.Decompress(data[1:])
	if err != nil {
		return nil, fmt.Errorf("envelope: decompress body: %w", err)
	}

	switch tag {
	case TagPayload:
		b, n, err := codec.DecodeBytes(plain)
		if err != nil {
			return nil, fmt.Errorf("envelope: decode Payload: %w", err)
		}
		return requireConsumed(Payload{Bytes: b}, plain, n)
	case TagAck:
		s, n, err := codec.DecodeString(plain)
		if err != nil {
			return nil, fmt.Errorf("envelope: decode Ack: %w", err)
		}
		return requireConsumed(Ack{ID: string(s)}, plain, n)
	case TagErrorResponse:
		str, n, err := codec.DecodeStruct(plain, []codec.FieldSpec{
			{Key: decodeStringKey, Value: decodeStringValue},
			{Key: decodeStringKey, Value: decodeStringValue},
		})
		if err != nil {
			return nil, fmt.Errorf("envelope: decode ErrorResponse: %w", err)
		}
		return requireConsumed(ErrorResponse{
			Kind:   string(str.Fields[0].Value.(codec.String)),
			Detail: string(str.Fields[1].Value.(codec.String)),
		}, plain, n)
	case TagHandshakeInit:
		str, n, err := codec.DecodeStruct(plain, []codec.FieldSpec{
			{Key: decodeStringKey, Value: decodeIntValue},
			{Key: decodeStringKey, Value: decodeIntValue},
			{Key: decodeStringKey, Value: decodeIntValue},
		})
		if err != nil {
			return nil, fmt.Errorf("envelope: decode HandshakeInit: %w", err)
		}
		return requireConsumed(HandshakeInit{
			TotalBytes: str.Fields[0].Value.(codec.Int).AsUint(),
			ChunkSize:  uint32(str.Fields[1].Value.(codec.Int).AsUint()),
			SeqBase:    uint32(str.Fields[2].Value.(codec.Int).AsUint()),
		}, plain, n)
	case TagHandshakeData:
		str, n, err := codec.DecodeStruct(plain, []codec.FieldSpec{
			{Key: decodeStringKey, Value: decodeIntValue},
			{Key: decodeStringKey, Value: decodeBytesValue},
		})
		if err != nil {
			return nil, fmt.Errorf("envelope: decode HandshakeData: %w", err)
		}
		return requireConsumed(HandshakeData{
			Seq:   uint32(str.Fields[0].Value.(codec.Int).AsUint()),
			Bytes: []byte(str.Fields[1].Value.(codec.Bytes)),
		}, plain, n)
	case TagHandshakeFin:
		str, n, err := codec.DecodeStruct(plain, []codec.FieldSpec{
			{Key: decodeStringKey, Value: decodeIntValue},
		})
		if err != nil {
			return nil, fmt.Errorf("envelope: decode HandshakeFin: %w", err)
		}
		return requireConsumed(HandshakeFin{
			LastSeq: uint32(str.Fields[0].Value.(codec.Int).AsUint()),
		}, plain, n)
	case TagHandshakeNack:
		str, n, err := codec.DecodeStruct(plain, []codec.FieldSpec{
			{Key: decodeStringKey, Value: decodeIntValue},
		})
		if err != nil {
			return nil, fmt.Errorf("envelope: decode HandshakeNack: %w", err)
		}
		return requireConsumed(HandshakeNack{
			MissingSeq: uint32(str.Fields[0].Value.(codec.Int).AsUint()),
		}, plain, n)
	default:
		return nil, fmt.Errorf("envelope: unknown envelope tag 0x%02x", data[0])
	}
}

func requireConsumed(e Envelope, plain []byte, n int) (Envelope, error) {
	if n != len(plain) {
		return nil, fmt.Errorf("envelope: %d residual bytes after decoding %T", len(plain)-n, e)
	}
	return e, nil
}

func decodeStringKey(d []byte) (codec.Value, int, error) {
	v, n, err := codec.DecodeString(d)
	return v, n, err
}

func decodeStringValue(d []byte) (codec.Value, int, error) {
	v, n, err := codec.DecodeString(d)
	return v, n, err
}

func decodeIntValue(d []byte) (codec.Value, int, error) {
	v, n, err := codec.DecodeInt(d)
	return v, n, err
}

func decodeBytesValue(d []byte) (codec.Value, int, error) {
	v, n, err := codec.DecodeBytes(d)
	return v, n, err
}
