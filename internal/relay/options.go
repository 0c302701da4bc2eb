package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wtask/chatrelay/internal/relay/history"
	"github.com/wtask/chatrelay/internal/relay/message"
)

// Option - configures Loop.
type Option func(l *Loop) error

func setup(l *Loop, options ...Option) error {
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(l); err != nil {
			return err
		}
	}
	return nil
}

// WithLogger - attaches logger, by default loop logs nothing.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) error {
		if log == nil {
			return errors.New("relay.WithLogger: logger is nil")
		}
		l.log = log
		return nil
	}
}

// WithReadBufferSize - overwrites maximum size of one read, which is also
// the maximum size of one broadcast chunk.
func WithReadBufferSize(size int) Option {
	return func(l *Loop) error {
		if size <= 0 {
			return fmt.Errorf("relay.WithReadBufferSize: invalid size (%d)", size)
		}
		l.readBufferSize = size
		return nil
	}
}

// WithWaitTimeout - overwrites readiness wait timeout. Zero means wait without limit.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(l *Loop) error {
		if timeout < 0 {
			return fmt.Errorf("relay.WithWaitTimeout: invalid timeout (%v)", timeout)
		}
		l.waitTimeout = timeout
		return nil
	}
}

// WithStopOnIdle - when enabled, loop stops after the readiness wait times out,
// otherwise it just waits again.
func WithStopOnIdle(stop bool) Option {
	return func(l *Loop) error {
		l.stopOnIdle = stop
		return nil
	}
}

// WithStopWhenEmpty - when enabled (default), loop stops as soon as the last client disconnects.
func WithStopWhenEmpty(stop bool) Option {
	return func(l *Loop) error {
		l.stopWhenEmpty = stop
		return nil
	}
}

// WithHistoryGreets - keeps n latest chunks and queues them to every newly joined client.
// Zero disables history.
func WithHistoryGreets(n int) Option {
	return func(l *Loop) error {
		if n < 0 {
			return fmt.Errorf("relay.WithHistoryGreets: invalid value (%d)", n)
		}
		if n == 0 {
			l.history = nil
			return nil
		}
		h, err := history.NewStack[*message.Buffer](n)
		if err != nil {
			return fmt.Errorf("relay.WithHistoryGreets: %w", err)
		}
		l.history = h
		return nil
	}
}

// WithStats - shares counters with the caller, for example with admin server.
func WithStats(stats *Stats) Option {
	return func(l *Loop) error {
		if stats == nil {
			return errors.New("relay.WithStats: stats is nil")
		}
		l.stats = stats
		return nil
	}
}
