package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/config"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// clock is a controllable time source for the store
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestStore(t *testing.T) (*SQLStore, *clock) {
	t.Helper()
	s, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, c
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr error
	}{
		{"sqlite without path", config.DatabaseConfig{Driver: "sqlite"}, playerrors.ErrMissingConfig},
		{"postgres without url", config.DatabaseConfig{Driver: "postgres"}, playerrors.ErrMissingConfig},
		{"unknown driver", config.DatabaseConfig{Driver: "mongo", Path: "x"}, playerrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("file database survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "vibe.db")
		cfg := config.DatabaseConfig{Driver: "sqlite", Path: path}

		s, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if _, err := s.AddFavorite(context.Background(), "u1", api.Track{ID: "t1", Title: "One"}); err != nil {
			t.Fatal(err)
		}
		s.Close()

		s, err = Open(cfg)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer s.Close()
		favs, err := s.ListFavorites(context.Background(), "u1")
		if err != nil || len(favs) != 1 {
			t.Fatalf("expected 1 favorite after reopen, got %d (%v)", len(favs), err)
		}
	})
}

func TestMigrations(t *testing.T) {
	s, _ := openTestStore(t)

	for _, d := range []dialect{sqliteDialect, postgresDialect} {
		migrations, err := loadMigrations(d)
		if err != nil {
			t.Fatalf("%s: loadMigrations failed: %v", d.name, err)
		}
		if len(migrations) == 0 || migrations[0].Version != 1 {
			t.Errorf("%s: unexpected migrations %+v", d.name, migrations)
		}
	}

	if err := RunMigrations(s.DB(), sqliteDialect); err != nil {
		t.Fatalf("re-running migrations failed: %v", err)
	}

	if err := RollbackMigration(s.DB(), sqliteDialect); err != nil {
		t.Fatalf("RollbackMigration failed: %v", err)
	}
	if _, err := s.ListFavorites(context.Background(), "u1"); err == nil {
		t.Error("expected favorites table to be gone after rollback")
	}
	if err := RollbackMigration(s.DB(), sqliteDialect); err == nil {
		t.Error("expected error with nothing to roll back")
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ? LIMIT ?"
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT a FROM t WHERE b = $1 AND c = $2 LIMIT $3"
	if got := postgresDialect.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestFavorites(t *testing.T) {
	s, c := openTestStore(t)
	ctx := context.Background()

	first := api.Track{ID: "abc", Title: "First", Artist: "A", Source: api.SourceYouTube, EmbedID: "abc"}
	second := api.Track{ID: "def", Title: "Second", Source: api.SourceJamendo, Duration: 3 * time.Minute}

	exists, err := s.AddFavorite(ctx, "u1", first)
	if err != nil || exists {
		t.Fatalf("AddFavorite = %v, %v", exists, err)
	}
	c.advance(time.Minute)
	if _, err := s.AddFavorite(ctx, "u1", second); err != nil {
		t.Fatal(err)
	}

	t.Run("duplicate is reported, not stored", func(t *testing.T) {
		exists, err := s.AddFavorite(ctx, "u1", first)
		if err != nil || !exists {
			t.Fatalf("expected alreadyExists, got %v, %v", exists, err)
		}
	})

	t.Run("listed oldest first", func(t *testing.T) {
		favs, err := s.ListFavorites(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if len(favs) != 2 || favs[0].Track.ID != "abc" || favs[1].Track.ID != "def" {
			t.Fatalf("unexpected favorites %+v", favs)
		}
		if favs[1].Track.Duration != 3*time.Minute || favs[0].Track.EmbedID != "abc" {
			t.Errorf("track fields not preserved: %+v", favs)
		}
		if !favs[0].AddedAt.Equal(c.t.Add(-time.Minute)) {
			t.Errorf("AddedAt = %v", favs[0].AddedAt)
		}
	})

	t.Run("per user", func(t *testing.T) {
		favs, err := s.ListFavorites(ctx, "u2")
		if err != nil || len(favs) != 0 {
			t.Errorf("expected no favorites for u2, got %d (%v)", len(favs), err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := s.RemoveFavorite(ctx, "u1", "abc"); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveFavorite(ctx, "u1", "missing"); err != nil {
			t.Errorf("removing absent favorite should succeed, got %v", err)
		}
		favs, _ := s.ListFavorites(ctx, "u1")
		if len(favs) != 1 || favs[0].Track.ID != "def" {
			t.Errorf("unexpected favorites after remove %+v", favs)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := s.AddFavorite(ctx, "", first); !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing user, got %v", err)
		}
		if _, err := s.AddFavorite(ctx, "u1", api.Track{}); !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing track id, got %v", err)
		}
		if err := s.RemoveFavorite(ctx, "u1", ""); !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestSearchHistory(t *testing.T) {
	s, c := openTestStore(t)
	ctx := context.Background()

	add := func(query, typ string, results int) {
		t.Helper()
		err := s.AddSearch(ctx, SearchEntry{UserID: "u1", OriginalQuery: query, Type: typ, ResultsCount: results})
		if err != nil {
			t.Fatalf("AddSearch(%q) failed: %v", query, err)
		}
	}

	add("  Lo-Fi Beats ", "", 5)
	c.advance(10 * time.Minute)
	add("jazz", "youtube", 3)

	t.Run("normalized and typed", func(t *testing.T) {
		entries, err := s.ListSearches(ctx, "u1", "jamendo", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 jamendo entry, got %d", len(entries))
		}
		e := entries[0]
		if e.Query != "lo-fi beats" || e.OriginalQuery != "  Lo-Fi Beats " || e.Type != DefaultSearchType || e.ID == "" {
			t.Errorf("unexpected entry %+v", e)
		}
	})

	t.Run("repeat within window refreshes", func(t *testing.T) {
		c.advance(10 * time.Minute)
		add("LO-FI BEATS", "jamendo", 9)

		entries, _ := s.ListSearches(ctx, "u1", "", 0)
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Query != "lo-fi beats" || entries[0].ResultsCount != 9 || !entries[0].Timestamp.Equal(c.t) {
			t.Errorf("expected refreshed entry first, got %+v", entries[0])
		}
	})

	t.Run("repeat after window inserts", func(t *testing.T) {
		c.advance(DedupWindow + time.Minute)
		add("lo-fi beats", "jamendo", 1)

		entries, _ := s.ListSearches(ctx, "u1", "jamendo", 0)
		if len(entries) != 2 {
			t.Errorf("expected a second jamendo entry, got %d", len(entries))
		}
	})

	t.Run("limit and newest first", func(t *testing.T) {
		entries, _ := s.ListSearches(ctx, "u1", "", 1)
		if len(entries) != 1 || !entries[0].Timestamp.Equal(c.t) {
			t.Errorf("unexpected entries %+v", entries)
		}
	})

	t.Run("pruned to newest per user", func(t *testing.T) {
		for i := 0; i < MaxHistoryPerUser+5; i++ {
			c.advance(time.Second)
			add(fmt.Sprintf("query %d", i), "spotify", i)
		}
		entries, err := s.ListSearches(ctx, "u1", "", MaxHistoryPerUser*2)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != MaxHistoryPerUser {
			t.Fatalf("expected %d entries, got %d", MaxHistoryPerUser, len(entries))
		}
		if entries[0].Query != fmt.Sprintf("query %d", MaxHistoryPerUser+4) {
			t.Errorf("newest entry = %q", entries[0].Query)
		}
	})

	t.Run("clear by type then all", func(t *testing.T) {
		if err := s.ClearSearches(ctx, "u1", "spotify"); err != nil {
			t.Fatal(err)
		}
		if entries, _ := s.ListSearches(ctx, "u1", "spotify", 0); len(entries) != 0 {
			t.Errorf("expected spotify history cleared, got %d", len(entries))
		}
		if err := s.ClearSearches(ctx, "u1", ""); err != nil {
			t.Fatal(err)
		}
		if entries, _ := s.ListSearches(ctx, "u1", "", 0); len(entries) != 0 {
			t.Errorf("expected history cleared, got %d", len(entries))
		}
	})

	t.Run("validation", func(t *testing.T) {
		if err := s.AddSearch(ctx, SearchEntry{UserID: "u1", OriginalQuery: "   "}); !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := s.ListSearches(ctx, "", "", 0); !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestUsers(t *testing.T) {
	s, c := openTestStore(t)
	ctx := context.Background()

	if u, err := s.GetUser(ctx, "u1"); err != nil || u != nil {
		t.Fatalf("expected nil user, got %+v, %v", u, err)
	}

	created, err := s.UpsertUser(ctx, User{
		UserID:            "u1",
		Email:             "a@example.com",
		DisplayName:       "Ada",
		GoogleAccessToken: "token-1",
	})
	if err != nil || !created {
		t.Fatalf("UpsertUser = %v, %v", created, err)
	}
	createdAt := c.t

	u, err := s.GetUser(ctx, "u1")
	if err != nil || u == nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.Provider != DefaultProvider || u.GoogleAccessToken != "token-1" || u.GoogleTokenUpdatedAt == nil {
		t.Errorf("unexpected user %+v", u)
	}

	t.Run("update keeps created_at and tokens", func(t *testing.T) {
		c.advance(time.Hour)
		created, err := s.UpsertUser(ctx, User{
			UserID:             "u1",
			Email:              "b@example.com",
			Provider:           "google",
			GoogleRefreshToken: "refresh-1",
		})
		if err != nil || created {
			t.Fatalf("UpsertUser = %v, %v", created, err)
		}

		u, _ := s.GetUser(ctx, "u1")
		if u.Email != "b@example.com" || u.Provider != "google" || u.DisplayName != "" {
			t.Errorf("profile fields not updated: %+v", u)
		}
		if u.GoogleAccessToken != "token-1" || u.GoogleRefreshToken != "refresh-1" {
			t.Errorf("tokens = %q / %q", u.GoogleAccessToken, u.GoogleRefreshToken)
		}
		if !u.CreatedAt.Equal(createdAt) || !u.LastLogin.Equal(c.t) || !u.UpdatedAt.Equal(c.t) {
			t.Errorf("timestamps created=%v last=%v updated=%v", u.CreatedAt, u.LastLogin, u.UpdatedAt)
		}
		if !u.GoogleTokenUpdatedAt.Equal(createdAt) {
			t.Errorf("token timestamp moved without a new token: %v", u.GoogleTokenUpdatedAt)
		}
	})

	t.Run("update profile", func(t *testing.T) {
		if err := s.UpdateProfile(ctx, "u1", "Ada L", "https://example.com/a.png"); err != nil {
			t.Fatal(err)
		}
		u, _ := s.GetUser(ctx, "u1")
		if u.DisplayName != "Ada L" || u.PhotoURL != "https://example.com/a.png" {
			t.Errorf("profile not updated: %+v", u)
		}
		if err := s.UpdateProfile(ctx, "ghost", "x", ""); err != nil {
			t.Errorf("unknown user should not fail, got %v", err)
		}
		if u, err := s.GetUser(ctx, "ghost"); err != nil || u != nil {
			t.Errorf("profile update must not create a user, got %+v, %v", u, err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := s.UpsertUser(ctx, User{UserID: "u2"}); !errors.Is(err, playerrors.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing email, got %v", err)
		}
	})
}

// TestPostgres runs the favorites round trip against a real server when
// VIBE_TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	url := os.Getenv("VIBE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("VIBE_TEST_DATABASE_URL not set")
	}

	s, err := Open(config.DatabaseConfig{Driver: "postgres", URL: url})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	user := "pg-" + time.Now().Format("150405.000000")
	defer s.ClearSearches(ctx, user, "")

	if _, err := s.AddFavorite(ctx, user, api.Track{ID: "t1"}); err != nil {
		t.Fatal(err)
	}
	exists, err := s.AddFavorite(ctx, user, api.Track{ID: "t1"})
	if err != nil || !exists {
		t.Errorf("expected alreadyExists, got %v, %v", exists, err)
	}
	if err := s.AddSearch(ctx, SearchEntry{UserID: user, OriginalQuery: "Jazz"}); err != nil {
		t.Fatal(err)
	}
	entries, err := s.ListSearches(ctx, user, "", 0)
	if err != nil || len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d (%v)", len(entries), err)
	}
	if err := s.RemoveFavorite(ctx, user, "t1"); err != nil {
		t.Fatal(err)
	}
}
