package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wtask/chatrelay/internal/admin"
	"github.com/wtask/chatrelay/internal/logger"
	"github.com/wtask/chatrelay/internal/netpoll"
	"github.com/wtask/chatrelay/internal/relay"
)

func main() {
	cfg, err := configure(os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, errHelp):
		os.Exit(0)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.NewFromConfig(cfg.Log, logger.WithAttr(logger.Version(Version)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error("relay failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg Configuration, log *slog.Logger) error {
	listener, err := netpoll.Listen(cfg.Relay.ListenAddr, cfg.Port, cfg.Relay.Backlog)
	if err != nil {
		return fmt.Errorf("unable to listen TCP: %w", err)
	}
	poller, err := netpoll.NewPoller()
	if err != nil {
		listener.Close()
		return fmt.Errorf("unable to create poller: %w", err)
	}
	defer poller.Close()

	loop, err := relay.NewFromConfig(cfg.Relay, listener, poller,
		relay.WithLogger(log.With(logger.Component("relay"))),
	)
	if err != nil {
		listener.Close()
		return fmt.Errorf("invalid relay config: %w", err)
	}
	log.Info("relay is launching, press Ctrl-C to stop", logger.Addr(listener.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// loop stops by itself too (no clients left, idle), it has to release the rest
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		from := time.Now()
		reason, err := loop.Run(gctx)
		log.Info("relay stopped", logger.Reason(reason.String()), logger.Elapsed(from))
		return err
	})
	g.Go(func() error {
		// the loop observes cancellation between waits only
		<-gctx.Done()
		if err := poller.Wake(); err != nil {
			log.Debug("wake failed", logger.Error(err))
		}
		return nil
	})
	if cfg.Admin.Enabled() {
		g.Go(func() error {
			return admin.Run(gctx, cfg.Admin, loop, log.With(logger.Component("admin")))
		})
	}
	return g.Wait()
}
