package relay

import (
	"time"

	"github.com/wtask/chatrelay/internal/relay/transport"
)

const (
	// DefaultReadBufferSize - maximum bytes taken by one read and relayed as one chunk.
	DefaultReadBufferSize = 4096
	// DefaultWaitTimeout - readiness wait timeout.
	DefaultWaitTimeout = 120 * time.Second
	// DefaultBacklog - pending connections queue of the listener.
	DefaultBacklog = 10
)

// Config - relay settings loaded from environment.
type Config struct {
	// ListenAddr - IPv4 address to bind, empty means all interfaces.
	ListenAddr string `env:"RELAY_LISTEN_ADDR" envDefault:""`
	Backlog    int    `env:"RELAY_BACKLOG" envDefault:"10"`

	ReadBufferSize int           `env:"RELAY_READ_BUFFER" envDefault:"4096"`
	WaitTimeout    time.Duration `env:"RELAY_WAIT_TIMEOUT" envDefault:"120s"`

	// Termination policy
	StopOnIdle    bool `env:"RELAY_STOP_ON_IDLE" envDefault:"false"`
	StopWhenEmpty bool `env:"RELAY_STOP_WHEN_EMPTY" envDefault:"true"`

	HistoryGreets int `env:"RELAY_HISTORY_GREETS" envDefault:"0"`
}

// DefaultConfig returns a Config with the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		Backlog:        DefaultBacklog,
		ReadBufferSize: DefaultReadBufferSize,
		WaitTimeout:    DefaultWaitTimeout,
		StopWhenEmpty:  true,
	}
}

// NewFromConfig creates Loop from configuration.
// Additional options can override config values.
func NewFromConfig(cfg Config, listener transport.Listener, poller transport.Poller, opts ...Option) (*Loop, error) {
	configOpts := []Option{
		WithWaitTimeout(cfg.WaitTimeout),
		WithStopOnIdle(cfg.StopOnIdle),
		WithStopWhenEmpty(cfg.StopWhenEmpty),
		WithHistoryGreets(cfg.HistoryGreets),
	}
	if cfg.ReadBufferSize > 0 {
		configOpts = append(configOpts, WithReadBufferSize(cfg.ReadBufferSize))
	}
	return New(listener, poller, append(configOpts, opts...)...)
}
