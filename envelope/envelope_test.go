package envelope

import (
	"bytes"
	"testing"
)

func TestPayloadRoundTrip(t *testing.T) {
	e := Payload{Bytes: []byte("hello")}
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if Tag(b[0]) != TagPayload {
		t.Fatalf("expected leading Payload tag")
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p, ok := got.(Payload)
	if !ok {
		t.Fatalf("expected Payload, got %T", got)
	}
	if !bytes.Equal(p.Bytes, e.Bytes) {
		t.Fatalf("round trip mismatch")
	}
}

func TestAckRoundTrip(t *testing.T) {
	e := Ack{ID: "exchange-42"}
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.(Ack).ID != e.ID {
		t.Fatalf("round trip mismatch")
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	e := ErrorResponse{Kind: "InternalError", Detail: "boom"}
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	er := got.(ErrorResponse)
	if er.Kind != e.Kind || er.Detail != e.Detail {
		t.Fatalf("round trip mismatch: %+v", er)
	}
}

func TestHandshakeFramesRoundTrip(t *testing.T) {
	init := HandshakeInit{TotalBytes: 262144, ChunkSize: 1024, SeqBase: 0}
	b, err := Encode(init)
	if err != nil {
		t.Fatalf("encode init: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if got.(HandshakeInit) != init {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	data := HandshakeData{Seq: 7, Bytes: bytes.Repeat([]byte{0}, 1024)}
	b, err = Encode(data)
	if err != nil {
		t.Fatalf("encode data: %v", err)
	}
	got, err = Decode(b)
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}
	gotData := got.(HandshakeData)
	if gotData.Seq != data.Seq || !bytes.Equal(gotData.Bytes, data.Bytes) {
		t.Fatalf("round trip mismatch")
	}
	// The chunk is a 1024-byte zero run; compression must shrink it hard.
	if len(b) >= len(data.Bytes) {
		t.Fatalf("expected compression to shrink an all-zero chunk, got %d bytes for a %d-byte chunk", len(b), len(data.Bytes))
	}

	fin := HandshakeFin{LastSeq: 255}
	b, err = Encode(fin)
	if err != nil {
		t.Fatalf("encode fin: %v", err)
	}
	got, err = Decode(b)
	if err != nil {
		t.Fatalf("decode fin: %v", err)
	}
	if got.(HandshakeFin) != fin {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	nack := HandshakeNack{MissingSeq: 3}
	b, err = Encode(nack)
	if err != nil {
		t.Fatalf("encode nack: %v", err)
	}
	got, err = Decode(b)
	if err != nil {
		t.Fatalf("decode nack: %v", err)
	}
	if got.(HandshakeNack) != nack {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	if _, err := Decode([]byte{0x99}); err == nil {
		t.Fatalf("expected error for unknown envelope tag")
	}
}
