package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/internal/server"
	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until interrupted
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	var p server.Player
	if !cmd.Bool("no-player") {
		controller := r.newController(ctx, cfg)
		defer controller.Close()
		p = controller
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	srv := server.New(addr, server.NewAPI(st, p, logger), logger)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()
	r.logger.Info("listening", "addr", addr, "player", p != nil)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errc
}
