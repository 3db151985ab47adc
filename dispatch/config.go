// Package dispatch implements the server side of the middleware: a
// Registry that routes decoded method calls by longest signature-prefix
// match, and a Dispatcher that runs the receive/lookup/invoke/reply loop
// over a chosen transport.Protocol, enforcing semantics.Mode's
// deduplication and caching rules.
package dispatch

import "github.com/oryx-udprpc/rfs/semantics"

// Config is the server-side configuration: the shared invocation knobs
// plus the local bind address.
type Config struct {
	semantics.Config
	BindAddress string
}
