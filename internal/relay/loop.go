// Package relay implements the relay core: a single goroutine event loop
// which accepts TCP clients and forwards every chunk read from one client
// to all other clients, never back to its sender.
//
// The loop owns the connection registry and every outbound queue, so none of
// them needs locking. The only blocking point is the readiness wait;
// cancellation of the context passed to Run is observed between waits.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/wtask/chatrelay/internal/logger"
	"github.com/wtask/chatrelay/internal/relay/history"
	"github.com/wtask/chatrelay/internal/relay/message"
	"github.com/wtask/chatrelay/internal/relay/registry"
	"github.com/wtask/chatrelay/internal/relay/transport"
)

// State - event loop state.
type State int32

const (
	// StateIdle - loop is built but not started.
	StateIdle State = iota
	// StateRunning - loop is serving clients.
	StateRunning
	// StateStopped - terminal state, all descriptors are closed.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason - explains why the loop went to StateStopped.
type StopReason int

const (
	_ StopReason = iota
	// ReasonShutdown - the context passed to Run was cancelled.
	ReasonShutdown
	// ReasonWaitFailed - readiness wait failed.
	ReasonWaitFailed
	// ReasonEmpty - the last client disconnected.
	ReasonEmpty
	// ReasonIdle - readiness wait timed out with nothing ready.
	ReasonIdle
	// ReasonListenerBroken - the listening socket became unusable.
	ReasonListenerBroken
)

func (r StopReason) String() string {
	switch r {
	case ReasonShutdown:
		return "shutdown"
	case ReasonWaitFailed:
		return "wait failed"
	case ReasonEmpty:
		return "no clients left"
	case ReasonIdle:
		return "idle timeout"
	case ReasonListenerBroken:
		return "listener broken"
	default:
		return ""
	}
}

// Loop - relay event loop.
type Loop struct {
	listener transport.Listener
	poller   transport.Poller
	registry *registry.Registry
	log      *slog.Logger
	stats    *Stats
	history  *history.Stack[*message.Buffer]

	buf            []byte
	readBufferSize int
	waitTimeout    time.Duration
	stopOnIdle     bool
	stopWhenEmpty  bool

	state   atomic.Int32
	started bool
}

// New - builds loop over bound listener and poller.
func New(listener transport.Listener, poller transport.Poller, options ...Option) (*Loop, error) {
	if listener == nil {
		return nil, ErrNilListener
	}
	if poller == nil {
		return nil, ErrNilPoller
	}
	l := &Loop{
		listener:       listener,
		poller:         poller,
		log:            logger.Discard(),
		stats:          &Stats{},
		readBufferSize: DefaultReadBufferSize,
		waitTimeout:    DefaultWaitTimeout,
		stopWhenEmpty:  true,
	}
	if err := setup(l, options...); err != nil {
		return nil, err
	}
	l.buf = make([]byte, l.readBufferSize)
	l.registry = registry.New(listener.Fd())
	return l, nil
}

// State - returns current state. Safe for concurrent use.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stats - returns counters snapshot. Safe for concurrent use.
func (l *Loop) Stats() Snapshot {
	return l.stats.Snapshot()
}

// Run - serves clients until one of stop conditions, then closes the listener
// and every client connection. Error is returned only for failures
// of the listener or the readiness wait.
func (l *Loop) Run(ctx context.Context) (StopReason, error) {
	if l.started {
		return 0, ErrAlreadyRunning
	}
	l.started = true
	l.state.Store(int32(StateRunning))
	from := time.Now()
	l.log.Info("relay loop started",
		logger.Addr(l.listener.Addr()),
		logger.Fd(l.listener.Fd()),
		slog.Duration("wait_timeout", l.waitTimeout),
	)

	reason, err := l.serve(ctx)
	closed := l.teardown()
	l.state.Store(int32(StateStopped))

	l.log.Info("relay loop stopped",
		logger.Reason(reason.String()),
		logger.Count("closed", closed),
		logger.Error(err),
		logger.Elapsed(from),
	)
	return reason, err
}

func (l *Loop) serve(ctx context.Context) (StopReason, error) {
	for {
		if ctx.Err() != nil {
			return ReasonShutdown, nil
		}
		interest := l.registry.Interest()
		l.log.Debug("waiting for readiness",
			logger.Count("max_fd", interest.MaxFd),
			logger.Count("read", len(interest.Read)),
			logger.Count("write", len(interest.Write)),
		)
		ready, err := l.poller.Wait(interest, l.waitTimeout)
		switch {
		case errors.Is(err, transport.ErrTimeout):
			if l.stopOnIdle {
				return ReasonIdle, nil
			}
			l.log.Debug("readiness wait timed out")
			continue
		case err != nil:
			return ReasonWaitFailed, fmt.Errorf("relay: readiness wait: %w", err)
		}
		if reason, err := l.dispatch(ready); reason != 0 {
			return reason, err
		}
	}
}

type readiness struct {
	fd          int
	read, write bool
}

// events - merges ready sets into one list ordered by descriptor.
func events(ready transport.Ready) []readiness {
	r, w := slices.Clone(ready.Read), slices.Clone(ready.Write)
	slices.Sort(r)
	slices.Sort(w)
	list := make([]readiness, 0, len(r)+len(w))
	i, j := 0, 0
	for i < len(r) || j < len(w) {
		switch {
		case j == len(w) || (i < len(r) && r[i] < w[j]):
			list = append(list, readiness{fd: r[i], read: true})
			i++
		case i == len(r) || w[j] < r[i]:
			list = append(list, readiness{fd: w[j], write: true})
			j++
		default:
			list = append(list, readiness{fd: r[i], read: true, write: true})
			i++
			j++
		}
	}
	return list
}

// dispatch - handles ready descriptors in ascending order.
// Returns non-zero reason when the loop has to stop.
func (l *Loop) dispatch(ready transport.Ready) (StopReason, error) {
	for _, ev := range events(ready) {
		if ev.fd == l.registry.ListenFd() {
			if !ev.read {
				continue
			}
			if reason, err := l.accept(); reason != 0 {
				return reason, err
			}
			continue
		}

		c, ok := l.registry.Lookup(ev.fd)
		if !ok {
			l.log.Error("ready descriptor is not registered", logger.Fd(ev.fd))
			continue
		}
		if ev.read && l.receive(c) {
			if l.registry.Empty() && l.stopWhenEmpty {
				return ReasonEmpty, nil
			}
			continue
		}
		if ev.write {
			l.flush(c)
		}
	}
	return 0, nil
}

// accept - takes one pending connection from the listener.
func (l *Loop) accept() (StopReason, error) {
	h, err := l.listener.Accept()
	switch {
	case errors.Is(err, transport.ErrWouldBlock):
		return 0, nil
	case errors.Is(err, transport.ErrListenerBroken):
		return ReasonListenerBroken, fmt.Errorf("relay: accept: %w", err)
	case err != nil:
		l.stats.rejected.Add(1)
		l.log.Warn("accept failed", logger.Error(err))
		return 0, nil
	}

	c := l.registry.Register(h)
	l.stats.accepted.Add(1)
	l.stats.live.Store(int64(l.registry.Len()))
	l.log.Info("peer joined",
		logger.Fd(c.Fd()),
		logger.ConnID(c.ID()),
		logger.Remote(h.RemoteAddr()),
		logger.Count("live", l.registry.Len()),
	)

	if l.history != nil && l.history.Len() > 0 {
		greets := l.history.Tail(l.history.Len())
		for _, buf := range greets {
			c.Outbox().Push(buf)
		}
		l.log.Debug("history queued", logger.ConnID(c.ID()), logger.Count("chunks", len(greets)))
		l.flush(c)
	}
	return 0, nil
}

// receive - reads one chunk from c and broadcasts it.
// Returns true when c was removed.
func (l *Loop) receive(c *registry.Connection) bool {
	n, err := c.Handle().Read(l.buf)
	switch {
	case errors.Is(err, transport.ErrWouldBlock):
		return false
	case err != nil || n <= 0:
		l.disconnect(c, err)
		return true
	}

	l.stats.chunksIn.Add(1)
	l.stats.bytesIn.Add(int64(n))
	buf := message.New(l.buf[:n])
	if l.history != nil {
		l.history.Push(buf)
	}
	recipients := l.registry.BroadcastExcept(c.Fd(), buf)
	l.log.Debug("chunk received",
		logger.Fd(c.Fd()),
		logger.ConnID(c.ID()),
		logger.Bytes(n),
		logger.Count("recipients", recipients),
	)
	l.flushPending()
	return false
}

// disconnect - removes c from registry and closes its handle.
func (l *Loop) disconnect(c *registry.Connection, cause error) {
	pending := c.Outbox().Len()
	removed, err := l.registry.Unregister(c.Fd())
	if err != nil {
		l.log.Error("descriptor bookkeeping diverged", logger.Fd(c.Fd()), logger.Error(err))
		return
	}
	if err := removed.Handle().Close(); err != nil {
		l.log.Warn("close failed", logger.Fd(removed.Fd()), logger.Error(err))
	}
	l.stats.disconnected.Add(1)
	l.stats.live.Store(int64(l.registry.Len()))

	reason := "closed"
	if cause != nil && !errors.Is(cause, io.EOF) {
		reason = "read failed"
	} else {
		cause = nil
	}
	l.log.Info("peer left",
		logger.Fd(removed.Fd()),
		logger.ConnID(removed.ID()),
		logger.Reason(reason),
		logger.Error(cause),
		logger.Count("discarded", pending),
		logger.Count("live", l.registry.Len()),
	)
}

// flushPending - tries to deliver queued entries of every connection.
func (l *Loop) flushPending() {
	l.registry.Scan(func(c *registry.Connection) {
		if c.Pending() {
			l.flush(c)
		}
	})
}

// flush - writes queued entries of c until the socket stops accepting data.
// Write failure is recorded against c only.
func (l *Loop) flush(c *registry.Connection) {
	if !c.Pending() {
		return
	}
	n, err := c.Outbox().Flush(c.Handle())
	l.stats.bytesOut.Add(int64(n))
	if err == nil || errors.Is(err, transport.ErrWouldBlock) {
		return
	}
	dropped := c.Fail(err)
	l.stats.writeFailures.Add(1)
	l.log.Warn("write failed, peer receives nothing until it leaves",
		logger.Fd(c.Fd()),
		logger.ConnID(c.ID()),
		logger.Error(err),
		logger.Count("dropped", dropped),
	)
}

// teardown - closes every registered connection and the listener exactly once.
// Returns number of closed descriptors.
func (l *Loop) teardown() int {
	closed := 0
	for _, c := range l.registry.Drain() {
		if err := c.Handle().Close(); err != nil {
			l.log.Warn("close failed", logger.Fd(c.Fd()), logger.Error(err))
		}
		closed++
	}
	if err := l.listener.Close(); err != nil {
		l.log.Warn("listener close failed", logger.Error(err))
	}
	closed++
	l.stats.live.Store(0)
	return closed
}
