// Command rfsclient issues one invocation against rfsserver's demo
// SimpleOps/Counter interface and prints the reply. Exit codes: 0
// success, 1 on flag-parse or socket failure, 2 when the server itself
// returns a remote error.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/oryx-udprpc/rfs/client"
	"github.com/oryx-udprpc/rfs/codec"
	"github.com/oryx-udprpc/rfs/semantics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rfsclient", flag.ContinueOnError)
	targetAddress := fs.String("target-address", "127.0.0.1:7890", "server UDP address")
	modeFlag := fs.String("invocation-semantics", "at-most-once", "maybe|at-least-once|at-most-once")
	simulateOmissions := fs.Int("simulate-omissions", 0, "drop roughly 1/N outbound datagrams; 0 disables")
	timeout := fs.Duration("timeout", 2*time.Second, "per-attempt I/O timeout")
	retries := fs.Int("retries", 5, "retry budget for RequestAck/Handshake exchanges")
	chunkSize := fs.Int("chunk-size", 1024, "Handshake chunk size in bytes")
	call := fs.String("call", "say-hello", "say-hello|compute-fib|compute-primes|counter-incr")
	arg := fs.String("arg", "Hello, world!", "string argument for say-hello")
	n := fs.Uint64("n", 10, "integer argument for compute-fib/compute-primes")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	mode, err := semantics.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsclient:", err)
		return 1
	}

	cfg := semantics.Config{
		Mode:              mode,
		SimulateOmissions: *simulateOmissions,
		Timeout:           *timeout,
		Retries:           *retries,
		ChunkSize:         *chunkSize,
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(0, 0, 0, 0)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsclient: bind local socket:", err)
		return 1
	}
	defer conn.Close()

	cc, err := client.NewContext(conn, *targetAddress, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsclient:", err)
		return 1
	}

	signature, request, err := buildRequest(*call, *arg, *n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rfsclient:", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*retries+1)*(*timeout))
	defer cancel()

	reply, err := cc.Invoke(ctx, signature, request)
	if err != nil {
		if remote, ok := err.(*client.RemoteError); ok {
			fmt.Fprintf(os.Stderr, "rfsclient: remote error %s: %s\n", remote.Kind, remote.Detail)
			return 2
		}
		fmt.Fprintln(os.Stderr, "rfsclient:", err)
		return 1
	}

	if err := printReply(*call, reply); err != nil {
		fmt.Fprintln(os.Stderr, "rfsclient: decode reply:", err)
		return 1
	}
	return 0
}

func buildRequest(call, arg string, n uint64) (signature string, request []byte, err error) {
	switch call {
	case "say-hello":
		signature = "SimpleOps::say_hello"
		request, err = codec.NewEnum(signature, codec.NewString(arg)).MarshalBinary()
	case "compute-fib":
		signature = "SimpleOps::compute_fib"
		request, err = codec.NewEnum(signature, codec.NewUint(n)).MarshalBinary()
	case "compute-primes":
		signature = "SimpleOps::compute_primes"
		request, err = codec.NewEnum(signature, codec.NewUint(n)).MarshalBinary()
	case "counter-incr":
		signature = "Counter::incr"
		request, err = codec.NewEnum(signature, nil).MarshalBinary()
	default:
		err = fmt.Errorf("unknown -call %q", call)
	}
	return signature, request, err
}

func decodeIntValue(data []byte) (codec.Value, int, error) {
	return codec.DecodeInt(data)
}

func printReply(call string, reply []byte) error {
	switch call {
	case "say-hello":
		v, _, err := codec.DecodeBool(reply)
		if err != nil {
			return err
		}
		fmt.Println(bool(v))
	case "compute-fib":
		v, _, err := codec.DecodeInt(reply)
		if err != nil {
			return err
		}
		fmt.Println(v.AsUint())
	case "compute-primes":
		v, n, err := codec.DecodeSeq(reply, decodeIntValue)
		if err != nil {
			return err
		}
		_ = n
		primes := make([]uint64, len(v.Elements))
		for i, e := range v.Elements {
			primes[i] = e.(codec.Int).AsUint()
		}
		fmt.Println(primes)
	case "counter-incr":
		v, _, err := codec.DecodeInt(reply)
		if err != nil {
			return err
		}
		fmt.Println(v.AsUint())
	}
	return nil
}
