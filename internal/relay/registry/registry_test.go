package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtask/chatrelay/internal/relay/message"
)

type stubHandle struct{ fd int }

func (h stubHandle) Fd() int                     { return h.fd }
func (h stubHandle) Read(p []byte) (int, error)  { return 0, nil }
func (h stubHandle) Write(p []byte) (int, error) { return len(p), nil }
func (h stubHandle) Close() error                { return nil }
func (h stubHandle) RemoteAddr() string          { return fmt.Sprintf("stub:%d", h.fd) }

const listenFd = 3

func TestRegistry_RegisterTracksMaxFd(test *testing.T) {
	r := New(listenFd)
	assert.True(test, r.Empty())
	assert.Equal(test, listenFd, r.MaxFd())

	a := r.Register(stubHandle{5})
	r.Register(stubHandle{4})
	assert.Equal(test, 2, r.Len())
	assert.Equal(test, 5, r.MaxFd())
	assert.Equal(test, 5, a.Fd())
	assert.NotEqual(test, a.ID().String(), "")

	c, ok := r.Lookup(4)
	require.True(test, ok)
	assert.Equal(test, 4, c.Fd())
	_, ok = r.Lookup(42)
	assert.False(test, ok)
}

func TestRegistry_UnregisterNotFound(test *testing.T) {
	r := New(listenFd)
	_, err := r.Unregister(7)
	assert.ErrorIs(test, err, ErrNotFound)

	r.Register(stubHandle{7})
	_, err = r.Unregister(7)
	require.NoError(test, err)
	_, err = r.Unregister(7)
	assert.True(test, errors.Is(err, ErrNotFound), "second unregister must fail")
	assert.Equal(test, 0, r.Len())
}

func TestRegistry_UnregisterMaxFd(test *testing.T) {
	cases := []struct {
		name     string
		register []int
		remove   []int
		expMax   int
	}{
		{"non-holder keeps bound", []int{4, 9, 6}, []int{6}, 9},
		{"holder recomputes to next highest", []int{4, 9, 6}, []int{9}, 6},
		{"holder in the middle of order", []int{9, 4, 6}, []int{9}, 6},
		{"last one falls back to listener", []int{8}, []int{8}, listenFd},
		{"all removed falls back to listener", []int{4, 9, 6}, []int{9, 4, 6}, listenFd},
	}
	for _, c := range cases {
		test.Run(c.name, func(test *testing.T) {
			r := New(listenFd)
			for _, fd := range c.register {
				r.Register(stubHandle{fd})
			}
			for _, fd := range c.remove {
				_, err := r.Unregister(fd)
				require.NoError(test, err)
			}
			assert.Equal(test, c.expMax, r.MaxFd())
			assert.Equal(test, len(c.register)-len(c.remove), r.Len())
		})
	}
}

func TestRegistry_UnregisterPreservesOrder(test *testing.T) {
	r := New(listenFd)
	for _, fd := range []int{4, 5, 6, 7} {
		r.Register(stubHandle{fd})
	}
	_, err := r.Unregister(5)
	require.NoError(test, err)

	order := []int{}
	r.Scan(func(c *Connection) { order = append(order, c.Fd()) })
	assert.Equal(test, []int{4, 6, 7}, order)
}

func TestRegistry_BroadcastExcept(test *testing.T) {
	for n := 1; n <= 5; n++ {
		for sender := 0; sender < n; sender++ {
			r := New(listenFd)
			conns := make([]*Connection, n)
			for i := 0; i < n; i++ {
				conns[i] = r.Register(stubHandle{listenFd + 1 + i})
			}
			buf := message.New([]byte("chunk"))
			recipients := r.BroadcastExcept(conns[sender].Fd(), buf)
			assert.Equal(test, n-1, recipients)
			for i, c := range conns {
				if i == sender {
					assert.True(test, c.Outbox().Empty(), "sender must not receive own chunk")
					continue
				}
				require.Equal(test, 1, c.Outbox().Len())
				assert.Same(test, buf, c.Outbox().Pending()[0])
			}
		}
	}
}

func TestRegistry_HelloScenario(test *testing.T) {
	r := New(listenFd)
	a := r.Register(stubHandle{4})
	b := r.Register(stubHandle{5})

	r.BroadcastExcept(a.Fd(), message.New([]byte("hello")))

	assert.True(test, a.Outbox().Empty())
	require.Equal(test, 1, b.Outbox().Len())
	assert.Equal(test, 5, b.Outbox().PendingBytes())
	assert.Equal(test, "hello", b.Outbox().Pending()[0].String())
}

func TestRegistry_FIFOWithinConnection(test *testing.T) {
	r := New(listenFd)
	a := r.Register(stubHandle{4})
	b := r.Register(stubHandle{5})
	first, second := message.New([]byte("A")), message.New([]byte("B"))
	r.BroadcastExcept(a.Fd(), first)
	r.BroadcastExcept(a.Fd(), second)
	assert.Equal(test, []*message.Buffer{first, second}, b.Outbox().Pending())
}

func TestRegistry_UnregisterDiscardsPending(test *testing.T) {
	r := New(listenFd)
	a := r.Register(stubHandle{4})
	b := r.Register(stubHandle{5})
	r.BroadcastExcept(a.Fd(), message.New([]byte("lost")))
	require.Equal(test, 1, b.Outbox().Len())

	removed, err := r.Unregister(b.Fd())
	require.NoError(test, err)
	assert.Same(test, b, removed)
	assert.True(test, removed.Outbox().Empty())
	assert.Equal(test, 1, r.Len())
}

func TestRegistry_FailedConnectionSkipped(test *testing.T) {
	r := New(listenFd)
	a := r.Register(stubHandle{4})
	b := r.Register(stubHandle{5})
	c := r.Register(stubHandle{6})
	r.BroadcastExcept(a.Fd(), message.New([]byte("1")))

	assert.Equal(test, 1, b.Fail(errors.New("broken pipe")))
	assert.Error(test, b.Failure())
	assert.False(test, b.Pending())

	assert.Equal(test, 1, r.BroadcastExcept(a.Fd(), message.New([]byte("2"))))
	assert.True(test, b.Outbox().Empty())
	assert.Equal(test, 2, c.Outbox().Len())
	assert.Equal(test, 3, r.Len(), "failed connection stays registered")
}

func TestRegistry_Interest(test *testing.T) {
	r := New(listenFd)
	a := r.Register(stubHandle{9})
	r.Register(stubHandle{4})
	r.Register(stubHandle{6})
	r.BroadcastExcept(a.Fd(), message.New([]byte("x")))

	interest := r.Interest()
	assert.Equal(test, 9, interest.MaxFd)
	assert.Equal(test, []int{listenFd, 4, 6, 9}, interest.Read)
	assert.Equal(test, []int{4, 6}, interest.Write)

	_, err := r.Unregister(6)
	require.NoError(test, err)
	interest = r.Interest()
	assert.Equal(test, []int{listenFd, 4, 9}, interest.Read)
	assert.Equal(test, []int{4}, interest.Write)
}

func TestRegistry_Drain(test *testing.T) {
	r := New(listenFd)
	a := r.Register(stubHandle{4})
	r.Register(stubHandle{5})
	r.BroadcastExcept(a.Fd(), message.New([]byte("x")))

	list := r.Drain()
	require.Len(test, list, 2)
	assert.Equal(test, 4, list[0].Fd())
	assert.True(test, list[1].Outbox().Empty())
	assert.True(test, r.Empty())
	assert.Equal(test, listenFd, r.MaxFd())
	assert.Empty(test, r.Drain())
}
