//go:build linux

package netpoll

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/wtask/chatrelay/internal/relay/transport"
)

// selectLimit - number of descriptors unix.FdSet can hold (FD_SETSIZE).
var selectLimit = int(unsafe.Sizeof(unix.FdSet{})) * 8

// Poller - select(2) based readiness wait with a self-pipe for wakeups.
type Poller struct {
	wakeR, wakeW int
	closed       atomic.Bool
	closeOnce    sync.Once
}

// NewPoller - creates poller and its wakeup pipe.
func NewPoller() (*Poller, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("netpoll: pipe: %w", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, fmt.Errorf("netpoll: pipe set non-blocking: %w", err)
		}
	}
	if fds[0] >= selectLimit {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, fmt.Errorf("netpoll: pipe: %w", ErrDescriptorLimit)
	}
	return &Poller{wakeR: fds[0], wakeW: fds[1]}, nil
}

// Wait - blocks in select(2) on interest plus the wakeup pipe.
// Non-positive timeout blocks without limit.
// Returns transport.ErrTimeout when nothing became ready in time,
// and empty Ready with nil error after Wake or an interrupted call.
func (p *Poller) Wait(interest transport.Interest, timeout time.Duration) (transport.Ready, error) {
	if p.closed.Load() {
		return transport.Ready{}, fmt.Errorf("netpoll: wait: %w", transport.ErrClosed)
	}

	var rset, wset unix.FdSet
	nfd := max(interest.MaxFd, p.wakeR)
	for _, fd := range interest.Read {
		if fd < 0 || fd >= selectLimit {
			return transport.Ready{}, fmt.Errorf("netpoll: wait: %w (fd %d)", ErrDescriptorLimit, fd)
		}
		rset.Set(fd)
		nfd = max(nfd, fd)
	}
	for _, fd := range interest.Write {
		if fd < 0 || fd >= selectLimit {
			return transport.Ready{}, fmt.Errorf("netpoll: wait: %w (fd %d)", ErrDescriptorLimit, fd)
		}
		wset.Set(fd)
		nfd = max(nfd, fd)
	}
	rset.Set(p.wakeR)

	var tv *unix.Timeval
	if timeout > 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(nfd+1, &rset, &wset, nil, tv)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return transport.Ready{}, nil
		}
		return transport.Ready{}, fmt.Errorf("netpoll: select: %w", err)
	}
	if n == 0 {
		return transport.Ready{}, transport.ErrTimeout
	}

	if rset.IsSet(p.wakeR) {
		p.drain()
	}
	ready := transport.Ready{}
	for _, fd := range interest.Read {
		if rset.IsSet(fd) {
			ready.Read = append(ready.Read, fd)
		}
	}
	for _, fd := range interest.Write {
		if wset.IsSet(fd) {
			ready.Write = append(ready.Write, fd)
		}
	}
	return ready, nil
}

func (p *Poller) drain() {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(p.wakeR, buf)
		if err != nil || n <= 0 {
			return
		}
	}
}

// Wake - interrupts blocked Wait. Safe for concurrent use.
func (p *Poller) Wake() error {
	if p.closed.Load() {
		return transport.ErrClosed
	}
	_, err := unix.Write(p.wakeW, []byte{1})
	if err != nil && !wouldBlock(err) {
		return fmt.Errorf("netpoll: wake: %w", err)
	}
	return nil
}

// Close - releases wakeup pipe.
func (p *Poller) Close() error {
	err := transport.ErrClosed
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		err = errors.Join(unix.Close(p.wakeR), unix.Close(p.wakeW))
	})
	return err
}
