package codec

import (
	"encoding"
	"encoding/binary"
	"math"
)

// Value is any serializable shape in the wire format. It mirrors the
// teacher library's Amf0 interface: a binary marshaler/unmarshaler pair
// plus a Size hint, sealed to the types defined in this package.
type Value interface {
	encoding.BinaryMarshaler
	// Size returns the exact number of bytes MarshalBinary will produce.
	Size() int
	sealed()
}

// Decoder decodes one Value, starting at the beginning of data, and
// reports how many bytes it consumed.
type Decoder func(data []byte) (Value, int, error)

// Bool is the one-byte boolean shape, tag 'c'.
type Bool bool

func NewBool(b bool) Bool { return Bool(b) }

func (v Bool) sealed() {}

func (v Bool) Size() int { return 2 }

func (v Bool) MarshalBinary() ([]byte, error) {
	b := boolFalse
	if bool(v) {
		b = boolTrue
	}
	return []byte{byte(TagBool), b}, nil
}

func DecodeBool(data []byte) (Bool, int, error) {
	if len(data) < 2 {
		return false, 0, errShort("bool", 0)
	}
	if Tag(data[0]) != TagBool {
		return false, 0, errTag("bool", 0, data[0])
	}
	switch data[1] {
	case boolTrue:
		return true, 2, nil
	case boolFalse:
		return false, 2, nil
	default:
		return false, 0, &DecodeError{Offset: 1, Expect: "bool", Reason: "body byte must be 0x00 or 0xFF"}
	}
}

// Char is a UTF-32BE code point with no leading tag: it only appears
// embedded in a position (struct field, tuple slot, enum payload) whose
// shape the caller already knows.
type Char rune

func NewChar(r rune) Char { return Char(r) }

func (v Char) sealed() {}

func (v Char) Size() int { return 4 }

func (v Char) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b, nil
}

func DecodeChar(data []byte) (Char, int, error) {
	if len(data) < 4 {
		return 0, 0, errShort("char", 0)
	}
	return Char(binary.BigEndian.Uint32(data)), 4, nil
}

// Int is any signed or unsigned integer width, widened to 64 bits on the
// wire, tag 'n'. Narrowing back to a smaller Go type on decode is the
// caller's responsibility and may truncate.
type Int int64

func NewInt(i int64) Int    { return Int(i) }
func NewUint(u uint64) Int  { return Int(int64(u)) }
func (v Int) AsUint() uint64 { return uint64(v) }

func (v Int) sealed() {}

func (v Int) Size() int { return 9 }

func (v Int) MarshalBinary() ([]byte, error) {
	b := make([]byte, 9)
	b[0] = byte(TagInt)
	binary.BigEndian.PutUint64(b[1:], uint64(v))
	return b, nil
}

func DecodeInt(data []byte) (Int, int, error) {
	if len(data) < 9 {
		return 0, 0, errShort("int", 0)
	}
	if Tag(data[0]) != TagInt {
		return 0, 0, errTag("int", 0, data[0])
	}
	return Int(int64(binary.BigEndian.Uint64(data[1:9]))), 9, nil
}

// Float is any float width, widened to an IEEE-754 double, tag 'f'.
type Float float64

func NewFloat(f float64) Float { return Float(f) }

func (v Float) sealed() {}

func (v Float) Size() int { return 9 }

func (v Float) MarshalBinary() ([]byte, error) {
	b := make([]byte, 9)
	b[0] = byte(TagFloat)
	binary.BigEndian.PutUint64(b[1:], math.Float64bits(float64(v)))
	return b, nil
}

func DecodeFloat(data []byte) (Float, int, error) {
	if len(data) < 9 {
		return 0, 0, errShort("float", 0)
	}
	if Tag(data[0]) != TagFloat {
		return 0, 0, errTag("float", 0, data[0])
	}
	return Float(math.Float64frombits(binary.BigEndian.Uint64(data[1:9]))), 9, nil
}

// encodeLen writes a length as a bare n-encoded Int (tag included), used
// ahead of every length-prefixed body.
func encodeLen(n int) []byte {
	b, _ := NewInt(int64(n)).MarshalBinary()
	return b
}

// decodeLen reads a length prefix written by encodeLen.
func decodeLen(data []byte, expect string, offset int) (int, int, error) {
	v, n, err := DecodeInt(data)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Offset += offset
			de.Expect = expect
		}
		return 0, 0, err
	}
	if v < 0 {
		return 0, 0, &DecodeError{Offset: offset, Expect: expect, Reason: "negative length"}
	}
	return int(v), n, nil
}
