//go:build linux

package netpoll

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wtask/chatrelay/internal/relay/transport"
)

// Conn - accepted non-blocking peer socket.
type Conn struct {
	fd        int
	remote    string
	closeOnce sync.Once
}

func newConn(fd int, remote string) *Conn {
	return &Conn{fd: fd, remote: remote}
}

// Fd - peer descriptor.
func (c *Conn) Fd() int {
	return c.fd
}

// RemoteAddr - peer address.
func (c *Conn) RemoteAddr() string {
	return c.remote
}

// Read - single read(2). Zero bytes without error means the peer closed
// the connection and is reported as io.EOF.
func (c *Conn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	switch {
	case err != nil && wouldBlock(err):
		return 0, transport.ErrWouldBlock
	case err != nil:
		return 0, fmt.Errorf("netpoll: read fd %d: %w", c.fd, err)
	case n == 0 && len(p) > 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write - single write(2), may accept only a part of p.
func (c *Conn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	switch {
	case err != nil && wouldBlock(err):
		return 0, transport.ErrWouldBlock
	case err != nil:
		return 0, fmt.Errorf("netpoll: write fd %d: %w", c.fd, err)
	}
	return n, nil
}

// Close - closes descriptor once, repeated calls return transport.ErrClosed.
func (c *Conn) Close() error {
	err := transport.ErrClosed
	c.closeOnce.Do(func() {
		err = unix.Close(c.fd)
	})
	return err
}
