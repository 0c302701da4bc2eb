//go:build linux

package netpoll

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/wtask/chatrelay/internal/relay/transport"
)

// ErrDescriptorLimit - accepted descriptor does not fit into select(2) set.
var ErrDescriptorLimit = errors.New("netpoll: descriptor exceeds select limit")

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// acceptError - classifies accept(2) failure.
// Errors which mean the listening descriptor itself is unusable wrap transport.ErrListenerBroken,
// everything else (aborted handshakes, descriptor exhaustion) is transient.
func acceptError(err error) error {
	switch {
	case wouldBlock(err):
		return transport.ErrWouldBlock
	case errors.Is(err, unix.EBADF),
		errors.Is(err, unix.EINVAL),
		errors.Is(err, unix.ENOTSOCK),
		errors.Is(err, unix.EOPNOTSUPP),
		errors.Is(err, unix.EFAULT):
		return fmt.Errorf("netpoll: accept: %w: %w", transport.ErrListenerBroken, err)
	default:
		return fmt.Errorf("netpoll: accept: %w", err)
	}
}
