package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/store"
	"github.com/jscyril/vibestream/internal/ui/components"
	"github.com/jscyril/vibestream/internal/ui/views"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// Search queries one catalog, or every catalog with --source all, and
// prints the results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query is required", playerrors.ErrInvalidInput)
	}

	source := cmd.String("source")
	if source == "" {
		source = cfg.Catalog.DefaultSource
	}
	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = cfg.Catalog.SearchLimit
	}

	lib, _, err := r.loadLibrary(cfg)
	if err != nil {
		r.logger.Warn("local library unavailable", "err", err)
		lib = nil
	}
	reg := r.registry(cfg, lib)

	r.logger.Debug("searching", "source", source, "query", query, "limit", limit)

	var tracks []*api.Track
	if source == views.AllSources {
		tracks, err = reg.SearchAll(ctx, query, limit)
	} else {
		tracks, err = reg.Search(ctx, source, query, limit)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("record") {
		r.recordSearch(ctx, query, source, len(tracks))
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	return r.writeTracks(tracks)
}

// recordSearch adds the query to the configured user's history. Failures
// are logged; the search itself already succeeded.
func (r *Runner) recordSearch(ctx context.Context, query, source string, results int) {
	if r.config.UserID == "" {
		r.logger.Warn("user_id is not set, search not recorded")
		return
	}
	st, err := store.Open(r.config.Database)
	if err != nil {
		r.logger.Warn("failed to open database", "err", err)
		return
	}
	defer st.Close()

	err = st.AddSearch(ctx, store.SearchEntry{
		UserID:        r.config.UserID,
		OriginalQuery: query,
		Type:          source,
		ResultsCount:  results,
	})
	if err != nil {
		r.logger.Warn("failed to record search", "err", err)
	}
}

func (r *Runner) writeTracks(tracks []*api.Track) error {
	if len(tracks) == 0 {
		return r.writePlain("No results\n")
	}
	for i, t := range tracks {
		line := fmt.Sprintf("%2d. %s - %s", i+1, t.Artist, t.Title)
		if t.Duration > 0 {
			line += " (" + components.FormatDuration(t.Duration) + ")"
		}
		if err := r.writePlain("%s  [%s] %s\n", line, t.Source, t.ID); err != nil {
			return err
		}
	}
	return nil
}
