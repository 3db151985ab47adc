package rle

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTripFixtures(t *testing.T) {
	cases := [][]byte{
		{},
		{1, 2, 3},
		{0},
		{0, 0},
		{0, 0, 0},
		{0, 0, 0, 0},
		{1, 0, 0, 0, 0, 2},
		bytes.Repeat([]byte{0}, 255),
		bytes.Repeat([]byte{0}, 256),
		bytes.Repeat([]byte{0}, 1000),
		append([]byte{'m', '{'}, bytes.Repeat([]byte{0}, 10)...),
	}
	for i, c := range cases {
		compressed := Compress(c)
		got, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("case %d: decompress: %v", i, err)
		}
		if !bytes.Equal(got, c) {
			t.Fatalf("case %d: round trip mismatch: got %v want %v", i, got, c)
		}
	}
}

func TestRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := r.Intn(2000)
		b := make([]byte, n)
		for j := range b {
			if r.Intn(3) == 0 {
				b[j] = 0
			} else {
				b[j] = byte(r.Intn(256))
			}
		}
		compressed := Compress(b)
		got, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("iter %d: decompress: %v", i, err)
		}
		if !bytes.Equal(got, b) {
			t.Fatalf("iter %d: round trip mismatch", i)
		}
	}
}

func TestCompressionReducesLongRuns(t *testing.T) {
	b := append([]byte("hdr"), bytes.Repeat([]byte{0}, 64)...)
	b = append(b, []byte("trailer")...)
	compressed := Compress(b)
	if len(compressed) >= len(b) {
		t.Fatalf("expected compression to shrink a 64-byte zero run: got %d >= %d", len(compressed), len(b))
	}
}

func TestDecompressRejectsTruncatedLongRun(t *testing.T) {
	_, err := Decompress([]byte{delim, 10})
	if err == nil {
		t.Fatalf("expected error for truncated long-run token")
	}
}

func TestDecompressRejectsMissingTrailingDelim(t *testing.T) {
	_, err := Decompress([]byte{delim, 10, 'x'})
	if err == nil {
		t.Fatalf("expected error for malformed long-run token")
	}
}
