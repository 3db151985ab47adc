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

// Package ratesample computes a requests-per-second moving average
// over 10s/30s/300s windows plus a since-start average, for any
// monotonically increasing counter. The dispatcher feeds it its total
// request count and reports the 10s rate through its /healthz Health
// snapshot.
package ratesample

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oryx-udprpc/rfs/logger"
)

// Source is the monotonic counter to sample. dispatch.Dispatcher
// implements this over its total-requests-seen counter.
type Source interface {
	NbRequests() uint64
}

// Sampler reports recent request rate.
type Sampler interface {
	Start() error

	Rps10s() float64
	Rps30s() float64
	Rps300s() float64
	Average() float64

	io.Closer
}

type window struct {
	rps        float64
	nbRequests uint64
	create     time.Time
	lastSample time.Time
	interval   time.Duration
}

func (v *window) initialize(now time.Time, nbRequests uint64) {
	v.nbRequests = nbRequests
	v.lastSample = now
	v.create = now
}

func (v *window) sample(now time.Time, nbRequests uint64) bool {
	if v.lastSample.Add(v.interval).After(now) {
		return false
	}

	diff := int64(nbRequests - v.nbRequests)
	v.nbRequests = nbRequests
	v.lastSample = now
	if diff <= 0 {
		v.rps = 0
		return true
	}

	interval := int(v.interval / time.Millisecond)
	v.rps = float64(diff) * 1000 / float64(interval)

	return true
}

var errClosed = fmt.Errorf("ratesample: sampler closed")

type sampler struct {
	source  Source
	ctx     logger.Context
	closed  bool
	started bool
	lock    sync.Mutex

	r10s  window
	r30s  window
	r300s window

	average uint64
	create  time.Time
}

// New builds a Sampler over source. ctx is an optional logger context.
func New(ctx logger.Context, source Source) Sampler {
	v := &sampler{lock: sync.Mutex{}, source: source, ctx: ctx}
	v.r10s.interval = 10 * time.Second
	v.r30s.interval = 30 * time.Second
	v.r300s.interval = 300 * time.Second
	return v
}

func (v *sampler) Close() error {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.closed = true
	v.started = false
	return nil
}

func (v *sampler) Rps10s() float64 {
	if !v.started {
		panic("ratesample: must Start before reading Rps10s")
	}
	return v.r10s.rps
}

func (v *sampler) Rps30s() float64 {
	if !v.started {
		panic("ratesample: must Start before reading Rps30s")
	}
	return v.r30s.rps
}

func (v *sampler) Rps300s() float64 {
	if !v.started {
		panic("ratesample: must Start before reading Rps300s")
	}
	return v.r300s.rps
}

func (v *sampler) Average() float64 {
	if !v.started {
		panic("ratesample: must Start before reading Average")
	}
	return v.sampleAverage(time.Now())
}

func (v *sampler) sampleAverage(now time.Time) float64 {
	if v.source.NbRequests() == 0 {
		return 0
	}

	if v.average == 0 {
		v.average = v.source.NbRequests()
		v.create = now
		return 0
	}

	diff := int64(v.source.NbRequests() - v.average)
	if diff <= 0 {
		return 0
	}

	duration := int64(now.Sub(v.create) / time.Millisecond)
	if duration <= 0 {
		return 0
	}

	return float64(diff) * 1000 / float64(duration)
}

func (v *sampler) doSample(now time.Time) error {
	nbRequests := v.source.NbRequests()
	if nbRequests == 0 {
		return nil
	}

	if v.r10s.nbRequests == 0 {
		v.r10s.initialize(now, nbRequests)
		v.r30s.initialize(now, nbRequests)
		v.r300s.initialize(now, nbRequests)
		return nil
	}

	if !v.r10s.sample(now, nbRequests) {
		return nil
	}
	if !v.r30s.sample(now, nbRequests) {
		return nil
	}
	if !v.r300s.sample(now, nbRequests) {
		return nil
	}

	return nil
}

func (v *sampler) sample() error {
	defer func() {
		if r := recover(); r != nil {
			logger.W(v.ctx, "ratesample: recovered from", r)
		}
	}()

	v.lock.Lock()
	defer v.lock.Unlock()

	if v.closed {
		return errClosed
	}
	return v.doSample(time.Now())
}

func (v *sampler) Start() error {
	go func() {
		for {
			if err := v.sample(); err != nil {
				if err == errClosed {
					return
				}
				logger.W(v.ctx, "ratesample: ignoring sample failure", err)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	v.started = true
	return nil
}
