package relay

import "sync/atomic"

// Stats - relay counters. Written by the loop, safe to read from any goroutine.
type Stats struct {
	live          atomic.Int64
	accepted      atomic.Int64
	rejected      atomic.Int64
	disconnected  atomic.Int64
	chunksIn      atomic.Int64
	bytesIn       atomic.Int64
	bytesOut      atomic.Int64
	writeFailures atomic.Int64
}

// Snapshot - point-in-time copy of Stats.
type Snapshot struct {
	Live          int64 `json:"live"`
	Accepted      int64 `json:"accepted"`
	Rejected      int64 `json:"rejected"`
	Disconnected  int64 `json:"disconnected"`
	ChunksIn      int64 `json:"chunks_in"`
	BytesIn       int64 `json:"bytes_in"`
	BytesOut      int64 `json:"bytes_out"`
	WriteFailures int64 `json:"write_failures"`
}

// Snapshot - reads all counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Live:          s.live.Load(),
		Accepted:      s.accepted.Load(),
		Rejected:      s.rejected.Load(),
		Disconnected:  s.disconnected.Load(),
		ChunksIn:      s.chunksIn.Load(),
		BytesIn:       s.bytesIn.Load(),
		BytesOut:      s.bytesOut.Load(),
		WriteFailures: s.writeFailures.Load(),
	}
}
