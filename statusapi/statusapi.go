// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package statusapi exposes a small loopback HTTP surface alongside the
// UDP wire protocol: "/metrics" for Prometheus scraping and "/healthz"
// for a JSON liveness summary. It never touches the RPC codec or
// transport and is off by default in invocations that don't pass a
// status address.
package statusapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oryx-udprpc/rfs/logger"
)

// HttpJson is the content type every handler in this package responds
// with.
const HttpJson = "application/json"

// Server sets the response header["Server"] on every JSON response, mirroring
// the ambient stack's conventions elsewhere.
var Server = "rfs"

// Health reports a snapshot of dispatcher liveness for "/healthz".
type Health struct {
	Uptime      string  `json:"uptime"`
	Mode        string  `json:"mode"`
	RequestsRps float64 `json:"requests_rps_10s"`
	CacheSize   int     `json:"cache_size"`
}

// HealthSource supplies the live values Health reports.
type HealthSource interface {
	Health() Health
}

func setHeader(w http.ResponseWriter) {
	w.Header().Set("Server", Server)
}

func writeJSON(ctx logger.Context, w http.ResponseWriter, r *http.Request, v interface{}) {
	setHeader(w)
	w.Header().Set("Content-Type", HttpJson)

	b, err := json.Marshal(v)
	if err != nil {
		logger.E(ctx, "statusapi: marshal", r.URL, "failed:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(b)
}

func writeData(ctx logger.Context, w http.ResponseWriter, r *http.Request, v interface{}) {
	writeJSON(ctx, w, r, map[string]interface{}{
		"code":   0,
		"server": os.Getpid(),
		"data":   v,
	})
}

// NewMux builds the "/metrics" and "/healthz" HTTP mux. source supplies
// the data "/healthz" reports; it may be nil, in which case "/healthz"
// always answers an empty Health.
func NewMux(ctx logger.Context, source HealthSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		var h Health
		if source != nil {
			h = source.Health()
		}
		writeData(ctx, w, r, h)
	})
	return mux
}

// ListenAndServe starts the status HTTP server on addr and blocks until
// it exits; it is meant to be run in its own goroutine.
func ListenAndServe(ctx logger.Context, addr string, source HealthSource) error {
	mux := NewMux(ctx, source)
	logger.T(ctx, "statusapi: listening on", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		return writeErrorStart(ctx, addr, err)
	}
	return nil
}

func writeErrorStart(ctx logger.Context, addr string, err error) error {
	logger.E(ctx, "statusapi: listen on", addr, "failed:", err)
	return fmt.Errorf("statusapi: listen on %s: %w", addr, err)
}
