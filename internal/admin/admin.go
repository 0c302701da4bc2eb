// Package admin serves read-only HTTP endpoints reporting relay state.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wtask/chatrelay/internal/logger"
	"github.com/wtask/chatrelay/internal/relay"
)

// Config - admin server settings. Empty Addr disables the server.
type Config struct {
	Addr            string        `env:"RELAY_ADMIN_ADDR" envDefault:""`
	ShutdownTimeout time.Duration `env:"RELAY_ADMIN_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Enabled - reports whether admin server has to be started.
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// Source - provides relay state, implemented by *relay.Loop.
type Source interface {
	State() relay.State
	Stats() relay.Snapshot
}

type health struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// Router - builds admin routes:
//
//	GET /healthz - 200 while the loop is running, 503 otherwise
//	GET /stats   - relay counters
func Router(src Source) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := src.State()
		status, code := "ok", http.StatusOK
		if state != relay.StateRunning {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		respond(w, code, health{Status: status, State: state.String()})
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, src.Stats())
	})
	return r
}

func respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Serve - serves Router(src) on l until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, l net.Listener, cfg Config, src Source, log *slog.Logger) error {
	srv := &http.Server{
		Handler:           Router(src),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("admin server started", logger.Addr(l.Addr().String()))
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	log.Info("admin server stopped", logger.Error(err))
	return err
}

// Run - listens on cfg.Addr and calls Serve.
func Run(ctx context.Context, cfg Config, src Source, log *slog.Logger) error {
	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, l, cfg, src, log)
}
