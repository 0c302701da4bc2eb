// Package registry keeps the set of live relay connections.
//
// Registry is owned by the event loop and is not safe for concurrent use.
// It tracks the highest descriptor in use, so the readiness wait
// never has to scan more descriptors than needed.
package registry

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/wtask/chatrelay/internal/relay/message"
	"github.com/wtask/chatrelay/internal/relay/queue"
	"github.com/wtask/chatrelay/internal/relay/transport"
)

// Connection - one accepted client.
type Connection struct {
	handle   transport.Handle
	fd       int
	id       uuid.UUID
	joinedAt time.Time
	outbox   *queue.Queue
	failure  error
}

// Fd - connection identity.
func (c *Connection) Fd() int {
	return c.fd
}

// ID - session identifier for logs, unlike Fd it is never reused.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Handle - underlying transport endpoint.
func (c *Connection) Handle() transport.Handle {
	return c.handle
}

// JoinedAt - registration time.
func (c *Connection) JoinedAt() time.Time {
	return c.joinedAt
}

// Outbox - pending outbound entries.
func (c *Connection) Outbox() *queue.Queue {
	return c.outbox
}

// Fail - records write failure against the connection and drops its pending entries.
// Failed connection receives no more broadcasts but stays registered
// until its read side reports close.
func (c *Connection) Fail(err error) int {
	if c.failure == nil {
		c.failure = err
	}
	return c.outbox.Reset()
}

// Failure - returns recorded write failure, if any.
func (c *Connection) Failure() error {
	return c.failure
}

// Pending - reports whether the connection has something to write.
func (c *Connection) Pending() bool {
	return c.failure == nil && !c.outbox.Empty()
}

// Registry - ordered collection of live connections.
type Registry struct {
	listenFd int
	maxFd    int
	list     []*Connection
}

// New - builds empty registry bound to the listening descriptor.
func New(listenFd int) *Registry {
	return &Registry{
		listenFd: listenFd,
		maxFd:    listenFd,
	}
}

// ListenFd - returns listening descriptor.
func (r *Registry) ListenFd() int {
	return r.listenFd
}

// MaxFd - returns the highest descriptor among listener and live connections.
func (r *Registry) MaxFd() int {
	return r.maxFd
}

// Len - returns number of live connections.
func (r *Registry) Len() int {
	return len(r.list)
}

// Empty - reports whether there is no live connection.
func (r *Registry) Empty() bool {
	return len(r.list) == 0
}

// Register - appends connection for newly accepted handle.
func (r *Registry) Register(h transport.Handle) *Connection {
	c := &Connection{
		handle:   h,
		fd:       h.Fd(),
		id:       uuid.New(),
		joinedAt: time.Now().UTC(),
		outbox:   queue.New(),
	}
	r.list = append(r.list, c)
	if c.fd > r.maxFd {
		r.maxFd = c.fd
	}
	return c
}

// Lookup - finds live connection by descriptor.
func (r *Registry) Lookup(fd int) (*Connection, bool) {
	i := r.index(fd)
	if i < 0 {
		return nil, false
	}
	return r.list[i], true
}

func (r *Registry) index(fd int) int {
	for i, c := range r.list {
		if c.fd == fd {
			return i
		}
	}
	return -1
}

// Unregister - removes connection by descriptor and discards its pending entries.
// Returns removed connection, the caller is responsible to close its handle.
// Returns ErrNotFound if there is no such live connection.
func (r *Registry) Unregister(fd int) (*Connection, error) {
	i := r.index(fd)
	if i < 0 {
		return nil, ErrNotFound
	}
	c := r.list[i]
	copy(r.list[i:], r.list[i+1:])
	r.list[len(r.list)-1] = nil
	r.list = r.list[:len(r.list)-1]
	c.outbox.Reset()

	if fd == r.maxFd {
		r.maxFd = r.listenFd
		for _, other := range r.list {
			if other.fd > r.maxFd {
				r.maxFd = other.fd
			}
		}
	}
	return c, nil
}

// BroadcastExcept - queues buf for every live connection except the sender
// and connections with recorded write failure.
// Returns number of recipients.
func (r *Registry) BroadcastExcept(sender int, buf *message.Buffer) int {
	n := 0
	for _, c := range r.list {
		if c.fd == sender || c.failure != nil {
			continue
		}
		c.outbox.Push(buf)
		n++
	}
	return n
}

// Scan - calls f for every live connection in registration order.
// f must not register or unregister connections.
func (r *Registry) Scan(f func(*Connection)) {
	for _, c := range r.list {
		f(c)
	}
}

// Interest - builds readiness interest: the listener and every connection for reading,
// connections with pending entries for writing.
func (r *Registry) Interest() transport.Interest {
	interest := transport.Interest{
		MaxFd: r.maxFd,
		Read:  make([]int, 0, len(r.list)+1),
	}
	interest.Read = append(interest.Read, r.listenFd)
	for _, c := range r.list {
		interest.Read = append(interest.Read, c.fd)
		if c.Pending() {
			interest.Write = append(interest.Write, c.fd)
		}
	}
	slices.Sort(interest.Read)
	slices.Sort(interest.Write)
	return interest
}

// Drain - unregisters all connections and returns them in registration order.
func (r *Registry) Drain() []*Connection {
	list := r.list
	r.list = nil
	r.maxFd = r.listenFd
	for _, c := range list {
		c.outbox.Reset()
	}
	return list
}
