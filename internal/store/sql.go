package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/shared"
	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on database/sql
type SQLStore struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:  db,
		d:   d,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying connection pool
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Rollback reverts the most recently applied migration
func (s *SQLStore) Rollback() error {
	return RollbackMigration(s.db, s.d)
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.d.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.d.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.d.rebind(query), args...)
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", playerrors.ErrInvalidInput)
	}
	return nil
}

// ListFavorites returns a user's favorites, oldest first
func (s *SQLStore) ListFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx,
		"SELECT track, added_at FROM favorites WHERE user_id = ? ORDER BY added_at ASC, track_id ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []Favorite{}
	for rows.Next() {
		var (
			raw string
			fav = Favorite{UserID: userID}
		)
		if err := rows.Scan(&raw, &fav.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &fav.Track); err != nil {
			return nil, fmt.Errorf("failed to decode favorite track: %w", err)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

// AddFavorite stores track for userID. Adding a track id that is already a
// favorite is a no-op reported through alreadyExists.
func (s *SQLStore) AddFavorite(ctx context.Context, userID string, track api.Track) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	if track.ID == "" {
		return false, fmt.Errorf("%w: track id is required", playerrors.ErrInvalidInput)
	}

	raw, err := json.Marshal(track)
	if err != nil {
		return false, fmt.Errorf("failed to encode track: %w", err)
	}

	res, err := s.exec(ctx, `
		INSERT INTO favorites (user_id, track_id, source, track, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, track_id) DO NOTHING`,
		userID, track.ID, string(track.Source), string(raw), s.now())
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// RemoveFavorite deletes a favorite. Removing an absent track is not an error.
func (s *SQLStore) RemoveFavorite(ctx context.Context, userID, trackID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if trackID == "" {
		return fmt.Errorf("%w: track id is required", playerrors.ErrInvalidInput)
	}

	if _, err := s.exec(ctx, "DELETE FROM favorites WHERE user_id = ? AND track_id = ?", userID, trackID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListSearches returns the newest entries first. An empty searchType lists
// every catalog.
func (s *SQLStore) ListSearches(ctx context.Context, userID, searchType string, limit int) ([]SearchEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	q := "SELECT id, user_id, query, original_query, type, results_count, timestamp FROM search_history WHERE user_id = ?"
	args := []any{userID}
	if searchType != "" {
		q += " AND type = ?"
		args = append(args, searchType)
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer rows.Close()

	entries := []SearchEntry{}
	for rows.Next() {
		var e SearchEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Query, &e.OriginalQuery, &e.Type, &e.ResultsCount, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan search entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddSearch records a query. Repeating the same normalized query and type
// within DedupWindow refreshes the existing entry. Only the newest
// MaxHistoryPerUser entries are kept.
func (s *SQLStore) AddSearch(ctx context.Context, entry SearchEntry) error {
	if err := requireUser(entry.UserID); err != nil {
		return err
	}
	normalized := strings.ToLower(strings.TrimSpace(entry.OriginalQuery))
	if normalized == "" {
		return fmt.Errorf("%w: query is required", playerrors.ErrInvalidInput)
	}
	if entry.Type == "" {
		entry.Type = DefaultSearchType
	}
	now := s.now()

	var (
		lastID string
		lastAt time.Time
	)
	err := s.queryRow(ctx, `
		SELECT id, timestamp FROM search_history
		WHERE user_id = ? AND query = ? AND type = ?
		ORDER BY timestamp DESC LIMIT 1`,
		entry.UserID, normalized, entry.Type).Scan(&lastID, &lastAt)
	switch {
	case err == nil && now.Sub(lastAt) <= DedupWindow:
		_, err = s.exec(ctx,
			"UPDATE search_history SET timestamp = ?, results_count = ? WHERE id = ?",
			now, entry.ResultsCount, lastID)
		if err != nil {
			return fmt.Errorf("failed to refresh search entry: %w", err)
		}
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to look up search entry: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO search_history (id, user_id, query, original_query, type, results_count, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		shared.GenerateID(), entry.UserID, normalized, entry.OriginalQuery, entry.Type, entry.ResultsCount, now)
	if err != nil {
		return fmt.Errorf("failed to add search entry: %w", err)
	}

	_, err = s.exec(ctx, `
		DELETE FROM search_history
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM search_history WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?
		)`,
		entry.UserID, entry.UserID, MaxHistoryPerUser)
	if err != nil {
		return fmt.Errorf("failed to prune search history: %w", err)
	}
	return nil
}

// ClearSearches deletes a user's history, optionally only for one catalog
func (s *SQLStore) ClearSearches(ctx context.Context, userID, searchType string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	q := "DELETE FROM search_history WHERE user_id = ?"
	args := []any{userID}
	if searchType != "" {
		q += " AND type = ?"
		args = append(args, searchType)
	}
	if _, err := s.exec(ctx, q, args...); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}

// GetUser returns nil, nil when the user does not exist
func (s *SQLStore) GetUser(ctx context.Context, userID string) (*User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var (
		u         User
		updatedAt sql.NullTime
	)
	err := s.queryRow(ctx, `
		SELECT user_id, email, display_name, photo_url, provider,
		       google_access_token, google_refresh_token, google_token_updated_at,
		       last_login, created_at, updated_at
		FROM users WHERE user_id = ?`, userID).Scan(
		&u.UserID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Provider,
		&u.GoogleAccessToken, &u.GoogleRefreshToken, &updatedAt,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		u.GoogleTokenUpdatedAt = &t
	}
	return &u, nil
}

// UpsertUser records a sign-in. Profile fields are overwritten, created_at is
// kept, and Google tokens are only replaced when non-empty.
func (s *SQLStore) UpsertUser(ctx context.Context, user User) (bool, error) {
	if err := requireUser(user.UserID); err != nil {
		return false, err
	}
	if strings.TrimSpace(user.Email) == "" {
		return false, fmt.Errorf("%w: email is required", playerrors.ErrInvalidInput)
	}
	if user.Provider == "" {
		user.Provider = DefaultProvider
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, s.d.rebind("SELECT COUNT(*) FROM users WHERE user_id = ?"), user.UserID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}

	var tokenAt any
	if user.GoogleAccessToken != "" {
		tokenAt = now
	}

	if exists == 0 {
		_, err = tx.ExecContext(ctx, s.d.rebind(`
			INSERT INTO users (user_id, email, display_name, photo_url, provider,
			                   google_access_token, google_refresh_token, google_token_updated_at,
			                   last_login, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			user.UserID, user.Email, user.DisplayName, user.PhotoURL, user.Provider,
			user.GoogleAccessToken, user.GoogleRefreshToken, tokenAt,
			now, now, now)
		if err != nil {
			return false, fmt.Errorf("failed to create user: %w", err)
		}
		return true, tx.Commit()
	}

	sets := []string{"email = ?", "display_name = ?", "photo_url = ?", "provider = ?", "last_login = ?", "updated_at = ?"}
	args := []any{user.Email, user.DisplayName, user.PhotoURL, user.Provider, now, now}
	if user.GoogleAccessToken != "" {
		sets = append(sets, "google_access_token = ?", "google_token_updated_at = ?")
		args = append(args, user.GoogleAccessToken, tokenAt)
	}
	if user.GoogleRefreshToken != "" {
		sets = append(sets, "google_refresh_token = ?")
		args = append(args, user.GoogleRefreshToken)
	}
	args = append(args, user.UserID)

	q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE user_id = ?"
	if _, err := tx.ExecContext(ctx, s.d.rebind(q), args...); err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}
	return false, tx.Commit()
}

// UpdateProfile edits the display name and photo of a user. An unknown user
// matches no row and is not an error.
func (s *SQLStore) UpdateProfile(ctx context.Context, userID, displayName, photoURL string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	_, err := s.exec(ctx,
		"UPDATE users SET display_name = ?, photo_url = ?, updated_at = ? WHERE user_id = ?",
		displayName, photoURL, s.now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
