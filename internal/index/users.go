package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

// UpsertUser inserts u, or updates the profile fields of the user with the
// same external id. The stored id and creation time are kept on update.
func (db *DB) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, external_id, name, email, profile_picture, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name            = excluded.name,
			email           = excluded.email,
			profile_picture = excluded.profile_picture,
			updated_at      = excluded.updated_at
	`, u.ID, u.ExternalID, u.Name, u.Email, u.ProfilePicture, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return models.User{}, fmt.Errorf("index: upsert user: %w", err)
	}
	return db.UserByExternalID(ctx, u.ExternalID)
}

// UserByExternalID returns a *apperr.NotFoundError when no user matches.
func (db *DB) UserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	var (
		u                models.User
		created, updated string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, external_id, name, email, profile_picture, created_at, updated_at
		FROM users WHERE external_id = ?
	`, externalID).Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.ProfilePicture, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user", externalID)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("index: get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return models.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SaveThemeMode stores the theme preference for a user.
func (db *DB) SaveThemeMode(ctx context.Context, externalID string, mode models.ThemeMode, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_preferences (external_id, theme_mode, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			theme_mode = excluded.theme_mode,
			updated_at = excluded.updated_at
	`, externalID, string(mode), formatTime(at))
	if err != nil {
		return fmt.Errorf("index: save theme mode: %w", err)
	}
	return nil
}

// ThemeMode returns the stored preference; ok is false when none was saved.
func (db *DB) ThemeMode(ctx context.Context, externalID string) (models.ThemeMode, bool, error) {
	var mode string
	err := db.conn.QueryRowContext(ctx,
		`SELECT theme_mode FROM user_preferences WHERE external_id = ?`, externalID).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("index: get theme mode: %w", err)
	}
	return models.ThemeMode(mode), true, nil
}
