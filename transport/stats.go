package transport

import "sync/atomic"

// retransmits counts every datagram resent by a RequestAck or Handshake
// retry loop, process-wide. It exists purely for dispatch-level
// observability (rpcmetrics' retransmits_total) and never influences
// protocol behavior.
var retransmits uint64

// RetransmitsTotal reports the process-wide retransmit count.
func RetransmitsTotal() uint64 { return atomic.LoadUint64(&retransmits) }

func countRetransmit() { atomic.AddUint64(&retransmits, 1) }
