package relay

import "errors"

var (
	// ErrNilListener - loop can not be built without listening socket.
	ErrNilListener = errors.New("relay: listener is nil")

	// ErrNilPoller - loop can not be built without readiness wait.
	ErrNilPoller = errors.New("relay: poller is nil")

	// ErrAlreadyRunning - Run was called more than once. Loop is not reusable after stop.
	ErrAlreadyRunning = errors.New("relay: loop already started")
)
