// Package catalog searches upstream music catalogs (Jamendo, YouTube,
// Spotify and the local library) and normalizes results into api.Track.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/config"
	"github.com/jscyril/vibestream/internal/shared"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// Source is a searchable catalog
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]*api.Track, error)
}

// DefaultLimit is used when a search asks for zero results
const DefaultLimit = 20

// Registry holds the configured sources and throttles calls to them with a
// shared limiter.
type Registry struct {
	sources map[string]Source
	order   []string
	limiter *rate.Limiter
	logger  *log.Logger
	mu      sync.RWMutex
}

// NewRegistry creates a registry allowing perSecond upstream calls per second.
// A non-positive rate disables throttling.
func NewRegistry(perSecond float64, logger *log.Logger) *Registry {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if logger == nil {
		logger = shared.Discard()
	}
	return &Registry{
		sources: make(map[string]Source),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// NewFromConfig registers every source whose credentials are present. Local
// sources (the library) are registered by the caller.
func NewFromConfig(cfg config.CatalogConfig, client *http.Client, logger *log.Logger) *Registry {
	r := NewRegistry(cfg.RateLimit, logger)

	if jamendo, err := NewJamendo(cfg.Jamendo, client); err == nil {
		r.Register(jamendo)
	} else {
		r.logger.Debug("jamendo disabled", "err", err)
	}
	if youtube, err := NewYouTube(cfg.YouTube, client); err == nil {
		r.Register(youtube)
	} else {
		r.logger.Debug("youtube disabled", "err", err)
	}
	if spotify, err := NewSpotify(context.Background(), cfg.Spotify, client); err == nil {
		r.Register(spotify)
	} else {
		r.logger.Debug("spotify disabled", "err", err)
	}
	return r
}

// Register adds or replaces a source under its name
func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := src.Name()
	if _, exists := r.sources[name]; !exists {
		r.order = append(r.order, name)
	}
	r.sources[name] = src
}

// Get returns the source registered under name
func (r *Registry) Get(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", playerrors.ErrSourceUnknown, name)
	}
	return src, nil
}

// Names lists registered sources in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Search queries a single source
func (r *Registry) Search(ctx context.Context, source, query string, limit int) ([]*api.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", playerrors.ErrInvalidInput)
	}
	src, err := r.Get(source)
	if err != nil {
		return nil, err
	}
	return r.search(ctx, src, query, limit)
}

// SearchAll queries every source concurrently and concatenates the results in
// registration order. Failing sources are logged and skipped; an error is
// returned only when every source fails.
func (r *Registry) SearchAll(ctx context.Context, query string, limit int) ([]*api.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", playerrors.ErrInvalidInput)
	}

	r.mu.RLock()
	sources := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		sources = append(sources, r.sources[name])
	}
	r.mu.RUnlock()

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", playerrors.ErrSourceUnknown)
	}

	results := make([][]*api.Track, len(sources))
	errs := make([]error, len(sources))

	// errors stay per source so one failure does not cancel the others
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			results[i], errs[i] = r.search(ctx, src, query, limit)
			return nil
		})
	}
	_ = g.Wait()

	var merged []*api.Track
	failed := 0
	for i, tracks := range results {
		if errs[i] != nil {
			failed++
			r.logger.Warn("search failed", "source", sources[i].Name(), "query", query, "err", errs[i])
			continue
		}
		merged = append(merged, tracks...)
	}

	if failed == len(sources) {
		return nil, errors.Join(errs...)
	}
	return merged, nil
}

func (r *Registry) search(ctx context.Context, src Source, query string, limit int) ([]*api.Track, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return src.Search(ctx, query, limit)
}

// getJSON performs a GET and decodes a JSON body into out. Non-2xx responses
// become *errors.UpstreamError.
func getJSON(ctx context.Context, client *http.Client, source, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &playerrors.UpstreamError{Source: source, Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", source, err)
	}
	return nil
}

func clampLimit(limit, ceiling int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
