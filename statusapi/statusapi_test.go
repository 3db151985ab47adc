package statusapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

type fakeHealth struct{ h Health }

func (f fakeHealth) Health() Health { return f.h }

func TestHealthzReportsSource(t *testing.T) {
	mux := NewMux(nil, fakeHealth{h: Health{Mode: "AtMostOnce", CacheSize: 3}})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Code int    `json:"code"`
		Data Health `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Mode != "AtMostOnce" || body.Data.CacheSize != 3 {
		t.Fatalf("unexpected health payload: %+v", body.Data)
	}
}

func TestHealthzWithoutSource(t *testing.T) {
	mux := NewMux(nil, nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsServed(t *testing.T) {
	mux := NewMux(nil, nil)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
}
