package ratesample

import (
	"testing"
	"time"
)

type mockSource struct {
	n uint64
}

func (v *mockSource) NbRequests() uint64 { return v.n }

func TestSamplerAverage(t *testing.T) {
	src := &mockSource{}
	s := New(nil, src).(*sampler)

	if v := s.sampleAverage(time.Unix(0, 0)); v != 0 {
		t.Errorf("invalid average %v", v)
	}

	src.n = 10
	if v := s.sampleAverage(time.Unix(10, 0)); v != 0 {
		t.Errorf("invalid average %v", v)
	}

	src.n = 20
	if v := s.sampleAverage(time.Unix(10, 0)); v != 0 {
		t.Errorf("invalid average %v", v)
	} else if v := s.sampleAverage(time.Unix(20, 0)); v != 10.0/10.0 {
		t.Errorf("invalid average %v", v)
	}
}

func TestSamplerRps10s(t *testing.T) {
	src := &mockSource{}
	s := New(nil, src).(*sampler)

	if err := s.doSample(time.Unix(0, 0)); err != nil {
		t.Fatalf("sample failed: %v", err)
	} else if s.r10s.rps != 0 || s.r30s.rps != 0 || s.r300s.rps != 0 {
		t.Fatalf("sample invalid, 10s=%v 30s=%v 300s=%v", s.r10s.rps, s.r30s.rps, s.r300s.rps)
	}

	src.n = 10
	if err := s.doSample(time.Unix(10, 0)); err != nil {
		t.Fatalf("sample failed: %v", err)
	} else if s.r10s.rps != 0 || s.r30s.rps != 0 || s.r300s.rps != 0 {
		t.Fatalf("sample invalid, 10s=%v 30s=%v 300s=%v", s.r10s.rps, s.r30s.rps, s.r300s.rps)
	}

	src.n = 20
	if err := s.doSample(time.Unix(20, 0)); err != nil {
		t.Fatalf("sample failed: %v", err)
	} else if s.r10s.rps != 10.0/10.0 || s.r30s.rps != 0 || s.r300s.rps != 0 {
		t.Fatalf("sample invalid, 10s=%v 30s=%v 300s=%v", s.r10s.rps, s.r30s.rps, s.r300s.rps)
	}
}

func TestSamplerPanicsBeforeStart(t *testing.T) {
	src := &mockSource{}
	s := New(nil, src)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic reading Rps10s before Start")
		}
	}()
	s.Rps10s()
}
