package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/internal/audio"
	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/player"
	"github.com/jscyril/vibestream/internal/playlist"
	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/internal/store"
	"github.com/jscyril/vibestream/internal/ui"
)

// newController starts an audio engine and a controller attached to it.
// The queue is mirrored to <data_dir>/queue.json and restored from there
// when player.restore_queue is set.
func (r *Runner) newController(ctx context.Context, cfg *config.Config) *player.Controller {
	engine := audio.NewEngine(
		audio.WithHTTPClient(r.httpClient),
		audio.WithEngineLogger(shared.WithLogger(r.logger, "component", "audio")),
	)
	engine.Start(ctx)

	snapshot := playlist.NewSnapshotFile(filepath.Join(cfg.DataDir, "queue.json"))
	c := player.New(engine,
		player.WithLogger(shared.WithLogger(r.logger, "component", "player")),
		player.WithVolume(cfg.Player.DefaultVolume),
		player.WithQueueStore(snapshot),
	)
	c.Attach(ctx)

	if cfg.Player.RestoreQueue {
		tracks, err := snapshot.LoadQueue()
		if err != nil {
			r.logger.Warn("failed to restore queue", "err", err)
		} else if len(tracks) > 0 {
			c.Restore(tracks)
			r.logger.Info("restored queue", "tracks", len(tracks))
		}
	}
	return c
}

// Play runs the terminal player until the user quits
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = filepath.Join(cfg.DataDir, "vibe.log")
	}
	fileLogger, closer, err := shared.NewFileLogger(logPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	shared.SetLogLevel(fileLogger, cfg.Log.Level)
	r.SetLogger(fileLogger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lib, libPath, err := r.loadLibrary(cfg)
	if err != nil {
		return err
	}
	if cmd.Bool("scan") || (lib.TotalTracks == 0 && len(cfg.MusicDirectories) > 0) {
		r.logger.Info("scanning music directories", "dirs", cfg.MusicDirectories)
		if err := lib.Scan(ctx, cfg.MusicDirectories); err != nil {
			r.logger.Warn("scan finished with errors", "err", err)
		}
	}
	defer func() {
		if err := lib.Save(libPath); err != nil {
			r.logger.Error("failed to save library", "err", err)
		}
	}()

	playlists := playlist.NewManager(filepath.Join(cfg.DataDir, "playlists"))
	if err := playlists.LoadAll(); err != nil {
		r.logger.Warn("failed to load playlists", "err", err)
	}

	// Favorites and history are optional for the terminal player
	var st store.Store
	if sqlStore, err := store.Open(cfg.Database); err != nil {
		r.logger.Warn("database unavailable, favorites and history disabled", "err", err)
	} else {
		defer sqlStore.Close()
		st = sqlStore
	}

	controller := r.newController(ctx, cfg)
	defer controller.Close()

	err = ui.Run(ui.Deps{
		Controller:    controller,
		Catalog:       r.registry(cfg, lib),
		Library:       lib,
		Store:         st,
		Playlists:     playlists,
		UserID:        cfg.UserID,
		DefaultSource: cfg.Catalog.DefaultSource,
		SearchLimit:   cfg.Catalog.SearchLimit,
		Keys:          cfg.Keys,
		Logger:        shared.WithLogger(r.logger, "component", "ui"),
	})
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
