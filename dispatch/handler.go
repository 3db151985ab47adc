package dispatch

import "fmt"

// PayloadHandler is the external collaborator the Dispatcher invokes
// for every decoded request. handle(method_payload_bytes) ->
// reply_bytes from spec §6; Registry is the registry-based
// implementation every server in this repo uses, but nothing in
// Dispatcher depends on that concretely.
type PayloadHandler interface {
	Handle(payload []byte) ([]byte, error)
}

// Abstract handler-error kinds (spec §7's "Handler" and "Routing"
// categories). These are carried as strings on the wire inside
// envelope.ErrorResponse, never as Go type names, so client and server
// binaries built from different languages could in principle agree on
// them.
const (
	KindMalformedRequest = "MalformedRequest"
	KindUnknownMethod    = "UnknownMethod"
	KindInvalidArgument  = "InvalidArgument"
	KindNotFound         = "NotFound"
	KindPermissionDenied = "PermissionDenied"
	KindInternalError    = "InternalError"
	KindTooLarge         = "TooLarge"
)

// HandlerError carries an abstract kind plus free-form detail back to
// the dispatcher, which serializes it into an envelope.ErrorResponse.
// A PayloadHandler may return a plain error instead; the Dispatcher
// then reports it as KindInternalError.
type HandlerError struct {
	Kind   string
	Detail string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("dispatch: %s: %s", e.Kind, e.Detail)
}
