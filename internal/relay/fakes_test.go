package relay_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wtask/chatrelay/internal/relay/transport"
)

var errScriptDone = errors.New("poller script is over")

type fakeHandle struct {
	fd      int
	chunks  [][]byte
	eof     bool
	readErr error

	out      bytes.Buffer
	limit    int
	blocked  bool
	writeErr error
	writes   int

	closes int
}

func newHandle(fd int) *fakeHandle {
	return &fakeHandle{fd: fd}
}

func (h *fakeHandle) Fd() int            { return h.fd }
func (h *fakeHandle) RemoteAddr() string { return fmt.Sprintf("fake:%d", h.fd) }

func (h *fakeHandle) send(chunk string) {
	h.chunks = append(h.chunks, []byte(chunk))
}

func (h *fakeHandle) Read(p []byte) (int, error) {
	switch {
	case len(h.chunks) > 0:
		chunk := h.chunks[0]
		h.chunks = h.chunks[1:]
		return copy(p, chunk), nil
	case h.eof:
		return 0, io.EOF
	case h.readErr != nil:
		return 0, h.readErr
	}
	return 0, transport.ErrWouldBlock
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	h.writes++
	if h.writeErr != nil {
		return 0, h.writeErr
	}
	if h.blocked {
		return 0, transport.ErrWouldBlock
	}
	n := len(p)
	if h.limit > 0 && n > h.limit {
		n = h.limit
	}
	h.out.Write(p[:n])
	return n, nil
}

func (h *fakeHandle) Close() error {
	h.closes++
	if h.closes > 1 {
		return transport.ErrClosed
	}
	return nil
}

type fakeListener struct {
	fd        int
	pending   []*fakeHandle
	acceptErr error
	closes    int
}

func (l *fakeListener) Fd() int      { return l.fd }
func (l *fakeListener) Addr() string { return "fake:listener" }

func (l *fakeListener) Accept() (transport.Handle, error) {
	if l.acceptErr != nil {
		err := l.acceptErr
		l.acceptErr = nil
		return nil, err
	}
	if len(l.pending) == 0 {
		return nil, transport.ErrWouldBlock
	}
	h := l.pending[0]
	l.pending = l.pending[1:]
	return h, nil
}

func (l *fakeListener) Close() error {
	l.closes++
	if l.closes > 1 {
		return transport.ErrClosed
	}
	return nil
}

// step - one scripted readiness wait result.
type step func(interest transport.Interest) (transport.Ready, error)

type fakePoller struct {
	steps     []step
	interests []transport.Interest
	timeouts  []time.Duration
}

func (p *fakePoller) Wait(interest transport.Interest, timeout time.Duration) (transport.Ready, error) {
	p.interests = append(p.interests, interest)
	p.timeouts = append(p.timeouts, timeout)
	if len(p.steps) == 0 {
		return transport.Ready{}, errScriptDone
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s(interest)
}

func (p *fakePoller) Wake() error  { return nil }
func (p *fakePoller) Close() error { return nil }

func readable(fds ...int) step {
	return func(transport.Interest) (transport.Ready, error) {
		return transport.Ready{Read: fds}, nil
	}
}

func writable(fds ...int) step {
	return func(transport.Interest) (transport.Ready, error) {
		return transport.Ready{Write: fds}, nil
	}
}

// then - runs action before the readiness is reported.
func then(action func(), s step) step {
	return func(interest transport.Interest) (transport.Ready, error) {
		action()
		return s(interest)
	}
}

func failing(err error) step {
	return func(transport.Interest) (transport.Ready, error) {
		return transport.Ready{}, err
	}
}
