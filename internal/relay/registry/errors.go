package registry

import "errors"

// ErrNotFound - descriptor is not registered.
// Means descriptor bookkeeping has diverged from the sockets reported by the readiness wait.
var ErrNotFound = errors.New("registry: connection not found")
