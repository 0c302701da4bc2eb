//go:build linux

package netpoll

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wtask/chatrelay/internal/relay/transport"
)

// DefaultBacklog - listen(2) backlog used when none is given.
const DefaultBacklog = 10

// Listener - non-blocking IPv4 TCP listening socket.
type Listener struct {
	fd        int
	addr      string
	closeOnce sync.Once
	closed    bool
}

// Listen - creates socket, binds it to ip:port and starts listening.
// Empty ip means all interfaces, zero port lets the kernel choose one.
// Backlog below one is replaced with DefaultBacklog.
func Listen(ip string, port, backlog int) (*Listener, error) {
	sa := &unix.SockaddrInet4{Port: port}
	if ip != "" {
		parsed := net.ParseIP(ip).To4()
		if parsed == nil {
			return nil, fmt.Errorf("netpoll: listen: invalid IPv4 address %q", ip)
		}
		copy(sa.Addr[:], parsed)
	}
	if backlog < 1 {
		backlog = DefaultBacklog
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("netpoll: socket: %w", err)
	}
	unix.CloseOnExec(fd)
	fail := func(op string, err error) (*Listener, error) {
		unix.Close(fd)
		return nil, fmt.Errorf("netpoll: %s: %w", op, err)
	}
	if fd >= selectLimit {
		return fail("socket", ErrDescriptorLimit)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("set non-blocking", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}

	l := &Listener{fd: fd}
	if bound, err := unix.Getsockname(fd); err == nil {
		l.addr = formatSockaddr(bound)
	} else {
		l.addr = net.JoinHostPort(ip, strconv.Itoa(port))
	}
	return l, nil
}

// Fd - listening descriptor.
func (l *Listener) Fd() int {
	return l.fd
}

// Addr - bound local address.
func (l *Listener) Addr() string {
	return l.addr
}

// Port - bound local port, useful when listening on port zero.
func (l *Listener) Port() int {
	_, port, err := net.SplitHostPort(l.addr)
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}

// Accept - accepts one pending connection and makes it non-blocking.
func (l *Listener) Accept() (transport.Handle, error) {
	if l.closed {
		return nil, fmt.Errorf("netpoll: accept: %w: %w", transport.ErrListenerBroken, transport.ErrClosed)
	}
	nfd, sa, err := unix.Accept(l.fd)
	if err != nil {
		return nil, acceptError(err)
	}
	unix.CloseOnExec(nfd)
	if nfd >= selectLimit {
		unix.Close(nfd)
		return nil, fmt.Errorf("netpoll: accept: %w (fd %d)", ErrDescriptorLimit, nfd)
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return nil, fmt.Errorf("netpoll: accept: set non-blocking: %w", err)
	}
	return newConn(nfd, formatSockaddr(sa)), nil
}

// Close - closes listening descriptor once, repeated calls return transport.ErrClosed.
func (l *Listener) Close() error {
	err := transport.ErrClosed
	l.closeOnce.Do(func() {
		l.closed = true
		err = unix.Close(l.fd)
	})
	return err
}

func formatSockaddr(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return ""
	}
}
