// Package transport declares the boundary between the relay core and the
// operating system: a listening socket, accepted peer handles and the
// readiness wait. The core only sees these interfaces, see package netpoll
// for the implementation over raw non-blocking sockets.
package transport

import "time"

// Handle - accepted peer endpoint.
// All methods are non-blocking: when no progress is possible they return ErrWouldBlock.
type Handle interface {
	// Fd - descriptor of the endpoint, unique while the handle is open.
	Fd() int
	// Read - returns io.EOF on orderly close by the peer.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// Close - releases descriptor. Repeated calls return ErrClosed.
	Close() error
	// RemoteAddr - peer address for logging purposes.
	RemoteAddr() string
}

// Listener - bound and listening non-blocking socket.
type Listener interface {
	Fd() int
	// Accept - accepts one pending connection.
	// Returns ErrWouldBlock when the backlog is drained
	// and an error wrapping ErrListenerBroken when the listener is unusable.
	Accept() (Handle, error)
	Addr() string
	Close() error
}

// Interest - descriptors the readiness wait should watch.
type Interest struct {
	// MaxFd - highest descriptor among Read and Write.
	MaxFd int
	// Read - descriptors watched for readability, ascending.
	Read []int
	// Write - descriptors watched for writability, ascending.
	Write []int
}

// Ready - subset of Interest able to make progress.
type Ready struct {
	Read  []int
	Write []int
}

// Empty - reports whether nothing is ready.
func (r Ready) Empty() bool {
	return len(r.Read) == 0 && len(r.Write) == 0
}

// Poller - timeout-bounded multiplexed readiness wait.
type Poller interface {
	// Wait - blocks until at least one descriptor of interest is ready,
	// the timeout expires (ErrTimeout) or Wake is called (empty Ready, nil error).
	Wait(interest Interest, timeout time.Duration) (Ready, error)
	// Wake - interrupts a blocked Wait. Safe to call from any goroutine.
	Wake() error
	Close() error
}
