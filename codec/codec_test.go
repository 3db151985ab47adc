package codec

import (
	"bytes"
	"testing"

	"github.com/oryx-udprpc/rfs/rle"
)

func roundTrip(t *testing.T, v Value, decode Decoder) {
	t.Helper()
	b, err := v.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(b) != v.Size() {
		t.Fatalf("Size() %d does not match marshaled length %d", v.Size(), len(b))
	}
	got, n, err := decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(b) {
		t.Fatalf("decode consumed %d of %d bytes", n, len(b))
	}
	gb, err := got.MarshalBinary()
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	if !bytes.Equal(gb, b) {
		t.Fatalf("round trip mismatch: got %x want %x", gb, b)
	}
}

func TestBoolRoundTrip(t *testing.T) {
	for _, b := range []bool{true, false} {
		roundTrip(t, NewBool(b), func(d []byte) (Value, int, error) {
			v, n, err := DecodeBool(d)
			return v, n, err
		})
	}
}

func TestIntRoundTripIncludingOverflow(t *testing.T) {
	cases := []int64{0, 1, -1, 255, 256, -128, 1<<62 - 1, -(1 << 62)}
	for _, c := range cases {
		roundTrip(t, NewInt(c), func(d []byte) (Value, int, error) {
			v, n, err := DecodeInt(d)
			return v, n, err
		})
	}

	// Narrowing on decode: widen a big value then take it back down to a
	// byte, like a real u64 -> u8 call site would.
	wide := NewUint(1000)
	b, _ := wide.MarshalBinary()
	got, _, err := DecodeInt(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	narrowed := uint8(got.AsUint())
	if narrowed != 232 { // 1000 mod 256
		t.Fatalf("expected truncating narrowing semantics, got %d", narrowed)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1.5, -1.5, 3.14159265, 1e300} {
		roundTrip(t, NewFloat(f), func(d []byte) (Value, int, error) {
			v, n, err := DecodeFloat(d)
			return v, n, err
		})
	}
}

func TestBytesRoundTrip(t *testing.T) {
	roundTrip(t, NewBytes([]byte{1, 2, 3, 0, 0, 0}), func(d []byte) (Value, int, error) {
		v, n, err := DecodeBytes(d)
		return v, n, err
	})
	roundTrip(t, NewBytes(nil), func(d []byte) (Value, int, error) {
		v, n, err := DecodeBytes(d)
		return v, n, err
	})
}

func TestStringRoundTrip(t *testing.T) {
	roundTrip(t, NewString("hello, world!"), func(d []byte) (Value, int, error) {
		v, n, err := DecodeString(d)
		return v, n, err
	})
}

func TestStringRejectsInvalidUTF8(t *testing.T) {
	s := NewString("ok")
	b, _ := s.MarshalBinary()
	b[len(b)-2] = 0xFF // corrupt the last body byte with an invalid UTF-8 lead byte
	if _, _, err := DecodeString(b); err == nil {
		t.Fatalf("expected invalid utf-8 decode error")
	}
}

func TestSeqRoundTrip(t *testing.T) {
	s := NewSeq(NewInt(1), NewInt(2), NewInt(3))
	roundTrip(t, s, func(d []byte) (Value, int, error) {
		v, n, err := DecodeSeq(d, func(d []byte) (Value, int, error) {
			v, n, err := DecodeInt(d)
			return v, n, err
		})
		return v, n, err
	})
}

func TestTupleRoundTrip(t *testing.T) {
	tup := NewTuple(NewString("hi"), NewBool(true))
	roundTrip(t, tup, func(d []byte) (Value, int, error) {
		v, n, err := DecodeTuple(d, []Decoder{
			func(d []byte) (Value, int, error) { v, n, err := DecodeString(d); return v, n, err },
			func(d []byte) (Value, int, error) { v, n, err := DecodeBool(d); return v, n, err },
		})
		return v, n, err
	})
}

func TestOptionRoundTrip(t *testing.T) {
	roundTrip(t, Some(NewInt(7)), func(d []byte) (Value, int, error) {
		v, n, err := DecodeOption(d, func(d []byte) (Value, int, error) {
			v, n, err := DecodeInt(d)
			return v, n, err
		})
		return v, n, err
	})
	roundTrip(t, None(), func(d []byte) (Value, int, error) {
		v, n, err := DecodeOption(d, func(d []byte) (Value, int, error) {
			v, n, err := DecodeInt(d)
			return v, n, err
		})
		return v, n, err
	})
}

// TestCustomPayloadLargeFixture implements spec scenario 5: encode
// enum CustomPayload::Large{ message: (t, "hi"), data: [0u8; 10],
// lookup: {"k" -> 7} }.
func TestCustomPayloadLargeFixture(t *testing.T) {
	payload := NewStruct(
		StringField("message", NewTuple(NewString("hi"))),
		StringField("data", NewBytes(make([]byte, 10))),
		StringField("lookup", NewStruct(StringField("k", NewInt(7)))),
	)
	large := NewEnum("Large", payload)

	b, err := large.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if Tag(b[0]) != TagEnum {
		t.Fatalf("expected leading enum tag, got 0x%02x", b[0])
	}
	nameBytes, err := NewString("Large").MarshalBinary()
	if err != nil {
		t.Fatalf("marshal variant name: %v", err)
	}
	if !bytes.Equal(b[1:1+len(nameBytes)], nameBytes) {
		t.Fatalf("expected length-prefixed variant name %x right after the enum tag, got %x", nameBytes, b[1:1+len(nameBytes)])
	}

	variant, nameLen, err := DecodeEnumName(b)
	if err != nil {
		t.Fatalf("decode name: %v", err)
	}
	if variant != "Large" {
		t.Fatalf("expected variant Large, got %s", variant)
	}

	messageDecoder := func(d []byte) (Value, int, error) {
		v, n, err := DecodeTuple(d, []Decoder{
			func(d []byte) (Value, int, error) { v, n, err := DecodeString(d); return v, n, err },
		})
		return v, n, err
	}
	dataDecoder := func(d []byte) (Value, int, error) {
		v, n, err := DecodeBytes(d)
		return v, n, err
	}
	lookupDecoder := func(d []byte) (Value, int, error) {
		v, n, err := DecodeStruct(d, []FieldSpec{
			{Key: func(d []byte) (Value, int, error) { v, n, err := DecodeString(d); return v, n, err },
				Value: func(d []byte) (Value, int, error) { v, n, err := DecodeInt(d); return v, n, err }},
		})
		return v, n, err
	}

	payloadDecoder := func(d []byte) (Value, int, error) {
		v, n, err := DecodeStruct(d, []FieldSpec{
			{Key: func(d []byte) (Value, int, error) { v, n, err := DecodeString(d); return v, n, err }, Value: messageDecoder},
			{Key: func(d []byte) (Value, int, error) { v, n, err := DecodeString(d); return v, n, err }, Value: dataDecoder},
			{Key: func(d []byte) (Value, int, error) { v, n, err := DecodeString(d); return v, n, err }, Value: lookupDecoder},
		})
		return v, n, err
	}

	decoded, total, err := DecodeEnum(b, nameLen, payloadDecoder)
	if err != nil {
		t.Fatalf("decode enum: %v", err)
	}
	if total != len(b) {
		t.Fatalf("decode consumed %d of %d bytes", total, len(b))
	}

	redb, err := decoded.MarshalBinary()
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	if !bytes.Equal(redb, b) {
		t.Fatalf("round trip mismatch for CustomPayload::Large fixture")
	}

	// Compressing the encoded payload must collapse the 10-byte zero run
	// for `data` into a 3-byte long-run token.
	compressed := rle.Compress(b)
	if len(compressed) >= len(b) {
		t.Fatalf("expected compression to shrink the zero-run-heavy fixture")
	}
}

func TestDecodeLeavesTrailingBytesUnconsumed(t *testing.T) {
	b, _ := NewBool(true).MarshalBinary()
	b = append(b, 0xAA)
	_, n, err := DecodeBool(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 consumed bytes, residual check is caller's responsibility")
	}
	if n == len(b) {
		t.Fatalf("expected residual trailing byte to remain unconsumed")
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, _, err := Decode([]byte{0xAB})
	if err == nil {
		t.Fatalf("expected error for unknown/schema-requiring tag")
	}
}
