// Package prefs keeps user identities synced from the external auth provider
// and the per-user theme preference.
package prefs

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

// Repository stores users and theme preferences, keyed by external id.
type Repository interface {
	UpsertUser(ctx context.Context, u models.User) (models.User, error)
	UserByExternalID(ctx context.Context, externalID string) (models.User, error)
	SaveThemeMode(ctx context.Context, externalID string, mode models.ThemeMode, at time.Time) error
	ThemeMode(ctx context.Context, externalID string) (models.ThemeMode, bool, error)
}

// Profile is the identity data pushed by a signed-in client.
type Profile struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Validate implements validation.Validatable.
func (p Profile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Email, validation.Required, is.EmailFormat),
		validation.Field(&p.ProfilePicture, is.URL),
	)
}

// Service implements user sync and theme preferences.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService returns a Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SyncUser creates the user on first sign-in and refreshes the profile on
// later ones.
func (s *Service) SyncUser(ctx context.Context, externalID string, p Profile) (models.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return models.User{}, fmt.Errorf("prefs: external id is required: %w", apperr.ErrInvalid)
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if err := p.Validate(); err != nil {
		return models.User{}, fmt.Errorf("prefs: %w: %w", apperr.ErrInvalid, err)
	}
	now := s.now().UTC()
	u, err := s.repo.UpsertUser(ctx, models.User{
		ID:             uuid.NewString(),
		ExternalID:     externalID,
		Name:           p.Name,
		Email:          p.Email,
		ProfilePicture: p.ProfilePicture,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("prefs: sync user: %w", err)
	}
	return u, nil
}

// User returns the user with the given external id.
func (s *Service) User(ctx context.Context, externalID string) (models.User, error) {
	return s.repo.UserByExternalID(ctx, strings.TrimSpace(externalID))
}

// SetTheme stores mode for the user.
func (s *Service) SetTheme(ctx context.Context, externalID string, mode models.ThemeMode) error {
	externalID = strings.TrimSpace(externalID)
	err := validation.Errors{
		"externalId": validation.Validate(externalID, validation.Required),
		"themeMode":  validation.Validate(mode, validation.Required, validation.In(themeModes()...)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("prefs: %w: %w", apperr.ErrInvalid, err)
	}
	if err := s.repo.SaveThemeMode(ctx, externalID, mode, s.now().UTC()); err != nil {
		return fmt.Errorf("prefs: set theme: %w", err)
	}
	return nil
}

// Theme returns the stored mode, or auto when the user never chose one.
func (s *Service) Theme(ctx context.Context, externalID string) (models.ThemeMode, error) {
	mode, ok, err := s.repo.ThemeMode(ctx, strings.TrimSpace(externalID))
	if err != nil {
		return "", fmt.Errorf("prefs: get theme: %w", err)
	}
	if !ok {
		return models.ThemeAuto, nil
	}
	return mode, nil
}

func themeModes() []any {
	out := make([]any, len(models.ThemeModes))
	for i, m := range models.ThemeModes {
		out[i] = m
	}
	return out
}
