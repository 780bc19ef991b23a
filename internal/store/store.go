// Package store persists per-user favorites, search history and profiles.
//
// A single database/sql implementation serves both SQLite (the default, also
// used by tests with ":memory:") and PostgreSQL through the pgx stdlib driver.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/config"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

const (
	// DefaultHistoryLimit is used when ListSearches is asked for zero entries
	DefaultHistoryLimit = 20
	// MaxHistoryPerUser bounds the stored search history of a user
	MaxHistoryPerUser = 100
	// DedupWindow is how long a repeated query refreshes its entry instead of
	// adding a new one
	DedupWindow = time.Hour

	// DefaultSearchType is recorded when a search entry names no catalog
	DefaultSearchType = "jamendo"
	// DefaultProvider is recorded when a user names no sign-in provider
	DefaultProvider = "email"
)

// Favorite is a track a user starred
type Favorite struct {
	UserID  string    `json:"userId"`
	Track   api.Track `json:"track"`
	AddedAt time.Time `json:"addedAt"`
}

// SearchEntry is one line of a user's search history. Query is the
// normalized (trimmed, lower-cased) form used for deduplication.
type SearchEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Query         string    `json:"query"`
	OriginalQuery string    `json:"originalQuery"`
	Type          string    `json:"type"`
	ResultsCount  int       `json:"resultsCount"`
	Timestamp     time.Time `json:"timestamp"`
}

// User is a signed-in account profile
type User struct {
	UserID               string     `json:"userId"`
	Email                string     `json:"email"`
	DisplayName          string     `json:"displayName"`
	PhotoURL             string     `json:"photoURL"`
	Provider             string     `json:"provider"`
	GoogleAccessToken    string     `json:"googleAccessToken,omitempty"`
	GoogleRefreshToken   string     `json:"googleRefreshToken,omitempty"`
	GoogleTokenUpdatedAt *time.Time `json:"googleTokenUpdatedAt,omitempty"`
	LastLogin            time.Time  `json:"lastLogin"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Store is the persistence surface used by the HTTP API and the TUI
type Store interface {
	ListFavorites(ctx context.Context, userID string) ([]Favorite, error)
	AddFavorite(ctx context.Context, userID string, track api.Track) (alreadyExists bool, err error)
	RemoveFavorite(ctx context.Context, userID, trackID string) error

	ListSearches(ctx context.Context, userID, searchType string, limit int) ([]SearchEntry, error)
	AddSearch(ctx context.Context, entry SearchEntry) error
	ClearSearches(ctx context.Context, userID, searchType string) error

	GetUser(ctx context.Context, userID string) (*User, error)
	UpsertUser(ctx context.Context, user User) (created bool, err error)
	UpdateProfile(ctx context.Context, userID, displayName, photoURL string) error

	Close() error
}

// Open connects to the database selected by cfg and applies pending
// migrations.
func Open(cfg config.DatabaseConfig) (*SQLStore, error) {
	var (
		d   dialect
		dsn string
	)
	switch cfg.Driver {
	case "", "sqlite":
		d, dsn = sqliteDialect, cfg.Path
		if dsn == "" {
			return nil, fmt.Errorf("%w: database.path", playerrors.ErrMissingConfig)
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case "postgres":
		d, dsn = postgresDialect, cfg.URL
		if dsn == "" {
			return nil, fmt.Errorf("%w: database.url", playerrors.ErrMissingConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", playerrors.ErrInvalidInput, cfg.Driver)
	}

	db, err := NewDatabase(d, dsn)
	if err != nil {
		return nil, err
	}

	if dsn == ":memory:" {
		// Every sqlite connection to :memory: is a separate database
		ConfigureDatabase(db, 1, 1)
	} else if cfg.MaxOpenConns > 0 {
		ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := RunMigrations(db, d); err != nil {
		db.Close()
		return nil, err
	}
	return newSQLStore(db, d), nil
}
