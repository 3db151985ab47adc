package transport

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/oryx-udprpc/rfs/semantics"
)

func udpPair(t *testing.T) (*net.UDPConn, *net.UDPConn) {
	t.Helper()
	a, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen a: %v", err)
	}
	b, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen b: %v", err)
	}
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func testConfig() semantics.Config {
	cfg := semantics.Config{Timeout: 200 * time.Millisecond, Retries: 30, ChunkSize: 1024}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func TestDefaultRoundTrip(t *testing.T) {
	a, b := udpPair(t)
	cfg := testConfig()
	var proto Default

	errCh := make(chan error, 1)
	go func() {
		errCh <- proto.SendBytes(context.Background(), a, b.LocalAddr(), []byte("hello"), cfg)
	}()

	got, _, err := proto.RecvBytes(context.Background(), b, cfg)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("send: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
}

func TestRequestAckRoundTrip(t *testing.T) {
	a, b := udpPair(t)
	cfg := testConfig()
	var proto RequestAck

	errCh := make(chan error, 1)
	go func() {
		errCh <- proto.SendBytes(context.Background(), a, b.LocalAddr(), []byte("payload"), cfg)
	}()

	got, _, err := proto.RecvBytes(context.Background(), b, cfg)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("send: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Fatalf("got %q", got)
	}
}

func TestRequestAckTimesOutWithoutReceiver(t *testing.T) {
	a, b := udpPair(t)
	b.Close() // nobody home
	cfg := semantics.Config{Timeout: 20 * time.Millisecond, Retries: 2, ChunkSize: 1024}
	cfg.Validate()
	var proto RequestAck
	err := proto.SendBytes(context.Background(), a, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}, []byte("x"), cfg)
	if err == nil {
		t.Fatalf("expected an error when nobody acknowledges")
	}
}

func TestHandshakeRoundTripLargeTransfer(t *testing.T) {
	a, b := udpPair(t)
	cfg := testConfig()
	var proto Handshake

	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- proto.SendBytes(context.Background(), a, b.LocalAddr(), payload, cfg)
	}()

	got, _, err := proto.RecvBytes(context.Background(), b, cfg)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("send: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

// TestHandshakeSurvivesOmissions implements spec scenario 4: a 256 KiB
// transfer over Handshake with chunk_size 1024 and roughly 1-in-100
// datagrams dropped in each direction must still land byte-for-byte.
func TestHandshakeSurvivesOmissions(t *testing.T) {
	a, b := udpPair(t)
	cfg := semantics.Config{Timeout: 200 * time.Millisecond, Retries: 50, ChunkSize: 1024}
	cfg.Validate()

	sender := NewFaulty(Handshake{}, 100, 1)
	receiver := NewFaulty(Handshake{}, 100, 2)

	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- sender.SendBytes(context.Background(), a, b.LocalAddr(), payload, cfg)
	}()

	got, _, err := receiver.RecvBytes(context.Background(), b, cfg)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("send: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch under simulated loss")
	}
}
