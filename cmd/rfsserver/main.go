// Command rfsserver runs the dispatcher side of the UDP RPC middleware
// with the demo SimpleOps/Counter interface registered. Exit codes: 0
// success, 1 on flag-parse or bind failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oryx-udprpc/rfs/dispatch"
	"github.com/oryx-udprpc/rfs/logger"
	"github.com/oryx-udprpc/rfs/procwatch"
	"github.com/oryx-udprpc/rfs/rfsdemo"
	"github.com/oryx-udprpc/rfs/semantics"
	"github.com/oryx-udprpc/rfs/statusapi"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rfsserver", flag.ContinueOnError)
	bindAddress := fs.String("bind-address", "127.0.0.1:7890", "UDP address to listen on")
	statusAddress := fs.String("status-address", "", "loopback HTTP address for /metrics and /healthz (disabled if empty)")
	modeFlag := fs.String("invocation-semantics", "at-most-once", "maybe|at-least-once|at-most-once")
	simulateOmissions := fs.Int("simulate-omissions", 0, "drop roughly 1/N outbound datagrams; 0 disables")
	timeout := fs.Duration("timeout", 2*time.Second, "per-attempt I/O timeout")
	retries := fs.Int("retries", 5, "retry budget for RequestAck/Handshake exchanges")
	chunkSize := fs.Int("chunk-size", 1024, "Handshake chunk size in bytes")
	cacheTTL := fs.Duration("cache-ttl", 0, "at-most-once dedup cache TTL; 0 picks spec's recommended default")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	mode, err := semantics.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsserver:", err)
		return 1
	}

	cfg := semantics.Config{
		Mode:              mode,
		SimulateOmissions: *simulateOmissions,
		Timeout:           *timeout,
		Retries:           *retries,
		ChunkSize:         *chunkSize,
		CacheTTL:          *cacheTTL,
	}

	addr, err := net.ResolveUDPAddr("udp", *bindAddress)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsserver: resolve bind address:", err)
		return 1
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsserver: listen:", err)
		return 1
	}
	defer conn.Close()

	registry, _, err := rfsdemo.NewHandler()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsserver: build handler:", err)
		return 1
	}

	d, err := dispatch.New(nil, conn, registry, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsserver: build dispatcher:", err)
		return 1
	}

	if *statusAddress != "" {
		go func() {
			if err := statusapi.ListenAndServe(nil, *statusAddress, d); err != nil {
				logger.E(nil, "rfsserver: status server exited:", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	procwatch.Watch(nil, procwatch.CheckParentInterval, cancel)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	logger.T(nil, "rfsserver: listening on", conn.LocalAddr(), "mode", mode)
	if err := d.Serve(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "rfsserver: serve:", err)
		return 1
	}
	return 0
}
