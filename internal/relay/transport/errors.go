package transport

import "errors"

var (
	// ErrWouldBlock - the operation can not make progress right now, retry after next readiness.
	ErrWouldBlock = errors.New("transport: operation would block")

	// ErrTimeout - readiness wait expired without any ready descriptor.
	ErrTimeout = errors.New("transport: readiness wait timed out")

	// ErrClosed - the endpoint is closed already.
	ErrClosed = errors.New("transport: endpoint is closed")

	// ErrListenerBroken - the listening descriptor itself is unusable, no further accepts are possible.
	ErrListenerBroken = errors.New("transport: listener is broken")
)
