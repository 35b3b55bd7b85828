package models

import "time"

// ThemeMode is the single preference synced per user.
type ThemeMode string

const (
	ThemeAuto  ThemeMode = "auto"
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// ThemeModes lists every accepted theme mode.
var ThemeModes = []ThemeMode{ThemeAuto, ThemeLight, ThemeDark}

// User is an identity supplied by the external auth provider.
type User struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"externalId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
