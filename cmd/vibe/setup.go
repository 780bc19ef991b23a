package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/internal/store"
)

// Setup creates the config file when missing and brings the database schema
// up to date, or reverts the newest migration with --rollback.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	r.logger.Info("using config", "path", r.configPath)

	r.logger.Info("initializing database", "driver", cfg.Database.Driver)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if cmd.Bool("rollback") {
		if err := st.Rollback(); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.logger.Info("rolled back latest migration")
		return nil
	}

	r.logger.Info("setup complete", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	return nil
}
