// Package rfsdemo implements the demo interface spec §8's end-to-end
// scenarios are written against: SimpleOps (say_hello, compute_fib,
// compute_primes) and Counter (incr). It exists to drive integration
// tests and is the handler rfsserver always serves; it is not part of
// the middleware itself.
package rfsdemo

import (
	"sync/atomic"

	"github.com/oryx-udprpc/rfs/codec"
	"github.com/oryx-udprpc/rfs/dispatch"
)

// Counter is the server-side mutable state spec §8 scenarios 3 and 6
// exercise: Counter::incr increments it and returns the new value, so
// a test can observe how many times the handler actually ran
// regardless of how many replies the client received.
type Counter struct {
	value uint64
}

// Value reports the counter's current value.
func (c *Counter) Value() uint64 { return atomic.LoadUint64(&c.value) }

func (c *Counter) invoke(interface{}) (interface{}, error) {
	return atomic.AddUint64(&c.value, 1), nil
}

// NewHandler builds the demo registry and the Counter it shares with
// Counter::incr, so a test can register the handler, drive it over a
// real Dispatcher, and then read the counter back directly.
func NewHandler() (*dispatch.Registry, *Counter, error) {
	r := dispatch.NewRegistry()

	if err := r.Register("SimpleOps::say_hello", decodeString, invokeSayHello, encodeBool); err != nil {
		return nil, nil, err
	}
	if err := r.Register("SimpleOps::compute_fib", decodeUint64, invokeComputeFib, encodeUint64); err != nil {
		return nil, nil, err
	}
	if err := r.Register("SimpleOps::compute_primes", decodeUint64, invokeComputePrimes, encodeUint64Seq); err != nil {
		return nil, nil, err
	}

	counter := &Counter{}
	if err := r.Register("Counter::incr", decodeUnit, counter.invoke, encodeUint64); err != nil {
		return nil, nil, err
	}

	return r, counter, nil
}

func decodeString(data []byte) (interface{}, int, error) {
	s, n, err := codec.DecodeString(data)
	if err != nil {
		return nil, 0, err
	}
	return string(s), n, nil
}

func decodeUint64(data []byte) (interface{}, int, error) {
	v, n, err := codec.DecodeInt(data)
	if err != nil {
		return nil, 0, err
	}
	return v.AsUint(), n, nil
}

func decodeUnit(data []byte) (interface{}, int, error) {
	return nil, 0, nil
}

func invokeSayHello(arg interface{}) (interface{}, error) {
	content := arg.(string)
	return content != "", nil
}

func encodeBool(result interface{}) ([]byte, error) {
	return codec.NewBool(result.(bool)).MarshalBinary()
}

func invokeComputeFib(arg interface{}) (interface{}, error) {
	n := arg.(uint64)
	a, b := uint64(0), uint64(1)
	for i := uint64(0); i < n; i++ {
		a, b = b, a+b
	}
	return a, nil
}

func encodeUint64(result interface{}) ([]byte, error) {
	return codec.NewUint(result.(uint64)).MarshalBinary()
}

func invokeComputePrimes(arg interface{}) (interface{}, error) {
	n := arg.(uint64)
	var primes []uint64
	for candidate := uint64(2); candidate < n; candidate++ {
		isPrime := true
		for _, p := range primes {
			if p*p > candidate {
				break
			}
			if candidate%p == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			primes = append(primes, candidate)
		}
	}
	return primes, nil
}

func encodeUint64Seq(result interface{}) ([]byte, error) {
	primes := result.([]uint64)
	elems := make([]codec.Value, len(primes))
	for i, p := range primes {
		elems[i] = codec.NewUint(p)
	}
	return codec.NewSeq(elems...).MarshalBinary()
}
