package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oryx-udprpc/rfs/codec"
)

// ErrPrefixCollision is returned by Register when a new signature
// would make longest-prefix routing ambiguous: it is a strict prefix
// of an already-registered signature, or an already-registered
// signature is a strict prefix of it. This check runs at registration
// time (effectively server startup, since registries are built once
// and never mutated afterward) and is non-negotiable: spec §4.5/§8
// require it regardless of whether longest-match routing could have
// resolved the ambiguity at request time.
var ErrPrefixCollision = errors.New("dispatch: signature collision")

// ErrUnknownMethod names the failure where no registered signature is a
// prefix of the request's method-signature variant. Registry.Handle
// reports that case as a *HandlerError with Kind KindUnknownMethod and
// does not return this value.
var ErrUnknownMethod = errors.New("dispatch: unknown method")

// DecodeFunc decodes the bytes following the method-signature variant
// name into an application-level argument value, returning how many
// bytes it consumed.
type DecodeFunc func(data []byte) (arg interface{}, n int, err error)

// InvokeFunc calls the bound method with its decoded argument.
type InvokeFunc func(arg interface{}) (result interface{}, err error)

// EncodeFunc renders a method's result as the reply payload bytes.
type EncodeFunc func(result interface{}) ([]byte, error)

type registryEntry struct {
	signature string
	decode    DecodeFunc
	invoke    InvokeFunc
	encode    EncodeFunc
}

// Registry is an immutable-after-construction PayloadHandler that
// routes a request by the longest registered signature that is a
// prefix of the request's top-level enum variant name — never the
// first match. Register also rejects any signature that is a prefix of
// another registered one (such as "SomeInterface::method" next to
// "SomeInterface::method_b"), so a Registry built through Register never
// holds two signatures that can both match one name.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds signature to decode/invoke/encode. It fails with
// ErrPrefixCollision if signature is a strict prefix of an existing
// registration, or vice versa; signatures registered twice verbatim
// also collide.
func (r *Registry) Register(signature string, decode DecodeFunc, invoke InvokeFunc, encode EncodeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.signature == signature {
			return fmt.Errorf("%w: %q already registered", ErrPrefixCollision, signature)
		}
		if strings.HasPrefix(signature, e.signature) || strings.HasPrefix(e.signature, signature) {
			return fmt.Errorf("%w: %q and %q", ErrPrefixCollision, signature, e.signature)
		}
	}

	r.entries = append(r.entries, registryEntry{
		signature: signature,
		decode:    decode,
		invoke:    invoke,
		encode:    encode,
	})
	return nil
}

func (r *Registry) lookup(name string) (registryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best registryEntry
	found := false
	for _, e := range r.entries {
		if !strings.HasPrefix(name, e.signature) {
			continue
		}
		if !found || len(e.signature) > len(best.signature) {
			best = e
			found = true
		}
	}
	return best, found
}

// Handle implements PayloadHandler: it reads the request's top-level
// enum variant name (the method signature), routes it by longest
// registered prefix, decodes the argument, invokes the bound method,
// and encodes the result. Decode/routing failures are reported as
// *HandlerError so the Dispatcher can fold them into an
// envelope.ErrorResponse without special-casing this implementation.
func (r *Registry) Handle(payload []byte) ([]byte, error) {
	name, nameLen, err := codec.DecodeEnumName(payload)
	if err != nil {
		return nil, &HandlerError{Kind: KindMalformedRequest, Detail: err.Error()}
	}

	entry, ok := r.lookup(name)
	if !ok {
		return nil, &HandlerError{Kind: KindUnknownMethod, Detail: name}
	}

	arg, n, err := entry.decode(payload[nameLen:])
	if err != nil {
		return nil, &HandlerError{Kind: KindInvalidArgument, Detail: err.Error()}
	}
	if nameLen+n != len(payload) {
		return nil, &HandlerError{Kind: KindMalformedRequest, Detail: "trailing bytes after method arguments"}
	}

	result, err := entry.invoke(arg)
	if err != nil {
		var he *HandlerError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, &HandlerError{Kind: KindInternalError, Detail: err.Error()}
	}

	reply, err := entry.encode(result)
	if err != nil {
		return nil, &HandlerError{Kind: KindInternalError, Detail: err.Error()}
	}
	return reply, nil
}
