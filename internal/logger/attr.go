package logger

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Fd creates an attribute for socket descriptors.
func Fd(fd int) slog.Attr {
	return slog.Int("fd", fd)
}

// ConnID creates an attribute for connection session IDs.
func ConnID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return slog.Attr{}
	}
	return slog.String("conn_id", id.String())
}

// Remote creates an attribute for peer addresses.
func Remote(addr string) slog.Attr {
	if addr == "" {
		return slog.Attr{}
	}
	return slog.String("remote", addr)
}

// Addr creates an attribute for local listen addresses.
func Addr(addr string) slog.Attr {
	if addr == "" {
		return slog.Attr{}
	}
	return slog.String("addr", addr)
}

// Bytes creates an attribute for payload sizes.
func Bytes(n int) slog.Attr {
	return slog.Int("bytes", n)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Reason creates an attribute for stop or disconnect reasons.
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// Version creates an attribute for version information.
func Version(v string) slog.Attr {
	return slog.String("version", v)
}

// Elapsed calculates the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
