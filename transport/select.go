package transport

import (
	"time"

	"github.com/oryx-udprpc/rfs/semantics"
)

// ForMode returns the transmission protocol semantics.Mode backs per
// spec §4.3 (Maybe -> Default, AtLeastOnce -> RequestAck, AtMostOnce ->
// Handshake — chosen for its chunk-level selective retransmission,
// which doubles as the oversized-payload carrier regardless of mode),
// wrapped in Faulty when cfg.SimulateOmissions is set. Both
// client.Context and dispatch.Dispatcher call this so the two sides of
// an exchange never disagree about which protocol they're speaking.
func ForMode(cfg semantics.Config) Protocol {
	var p Protocol
	switch cfg.Mode {
	case semantics.AtLeastOnce:
		p = RequestAck{}
	case semantics.AtMostOnce:
		p = Handshake{}
	default:
		p = Default{}
	}
	if cfg.SimulateOmissions > 0 {
		p = NewFaulty(p, cfg.SimulateOmissions, time.Now().UnixNano())
	}
	return p
}
