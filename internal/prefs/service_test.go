package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

func newTestService() *Service {
	s := NewService(NewMemoryRepository())
	tick := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return s
}

func TestSyncUser_CreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	first, err := s.SyncUser(ctx, "ext-1", Profile{Name: " Ada ", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Ada", first.Name)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := s.SyncUser(ctx, "ext-1", Profile{
		Name:           "Ada L.",
		Email:          "ada@example.com",
		ProfilePicture: "https://example.com/ada.png",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, "Ada L.", second.Name)

	got, err := s.User(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestSyncUser_Invalid(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	cases := map[string]struct {
		ext string
		p   Profile
	}{
		"no external id": {"", Profile{Name: "a", Email: "a@example.com"}},
		"no name":        {"x", Profile{Email: "a@example.com"}},
		"bad email":      {"x", Profile{Name: "a", Email: "nope"}},
		"bad picture":    {"x", Profile{Name: "a", Email: "a@example.com", ProfilePicture: "not a url"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.SyncUser(ctx, tc.ext, tc.p)
			assert.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}
}

func TestUser_NotFound(t *testing.T) {
	_, err := newTestService().User(context.Background(), "ghost")
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Entity)
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	mode, err := s.Theme(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeAuto, mode, "unset preference defaults to auto")

	require.NoError(t, s.SetTheme(ctx, "ext-1", models.ThemeDark))
	mode, err = s.Theme(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, mode)

	assert.ErrorIs(t, s.SetTheme(ctx, "ext-1", "sepia"), apperr.ErrInvalid)
	assert.ErrorIs(t, s.SetTheme(ctx, " ", models.ThemeLight), apperr.ErrInvalid)

	mode, _ = s.Theme(ctx, "ext-1")
	assert.Equal(t, models.ThemeDark, mode)
}

func TestExternalIDIsTrimmed(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	_, err := s.SyncUser(ctx, " ext-2 ", Profile{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.SetTheme(ctx, " ext-2 ", models.ThemeLight))

	mode, err := s.Theme(ctx, "ext-2")
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, mode)

	u, err := s.User(ctx, "ext-2 ")
	require.NoError(t, err)
	assert.Equal(t, "ext-2", u.ExternalID)
}
