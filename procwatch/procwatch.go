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

// Package procwatch installs SIGINT/SIGTERM handling and a
// parent-liveness watch for the rfsserver executable, running a cleanup
// callback (rfsserver passes the cancel func of Serve's context) before
// the process exits.
package procwatch

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oryx-udprpc/rfs/logger"
)

// CheckParentInterval is the recommended interval to poll the parent
// pid at.
const CheckParentInterval = time.Second

// Cleanup runs once, just before the process exits.
type Cleanup func()

// Watch installs a SIGINT/SIGTERM handler and starts a goroutine that
// exits the process if its parent dies or is reparented to init,
// running callback first in both cases. ctx is an optional logger
// context; callback may be nil.
func Watch(ctx logger.Context, interval time.Duration, callback Cleanup) {
	v := &watcher{ctx: ctx, interval: interval, callback: callback}
	v.installSignals()
	v.watchParent()
}

type watcher struct {
	ctx      logger.Context
	interval time.Duration
	callback Cleanup
}

func (v *watcher) installSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for s := range sigs {
			logger.T(v.ctx, "received signal", s)
			if v.callback != nil {
				v.callback()
			}
			os.Exit(0)
		}
	}()
	logger.T(v.ctx, "signal watch installed")
}

func (v *watcher) watchParent() {
	ppid := os.Getppid()

	go func() {
		for {
			if pid := os.Getppid(); pid == 1 || pid != ppid {
				logger.E(v.ctx, "quitting: parent process gone, ppid is now", pid)
				if v.callback != nil {
					v.callback()
				}
				os.Exit(0)
			}
			time.Sleep(v.interval)
		}
	}()
	logger.T(v.ctx, "parent process watch started, ppid is", ppid)
}
