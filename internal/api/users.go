package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/quill/internal/prefs"
)

// UserHandler serves user sync and theme preference routes.
type UserHandler struct {
	svc    *prefs.Service
	logger *slog.Logger
}

func NewUserHandler(svc *prefs.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// SyncUser handles PUT /api/users/{externalID}.
//
//	@Summary		Create or refresh a user from the auth provider's profile
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			externalID	path		string			true	"Auth provider user id"
//	@Param			body		body		prefs.Profile	true	"Profile"
//	@Success		200			{object}	models.User
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{externalID} [put]
func (h *UserHandler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var p prefs.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	u, err := h.svc.SyncUser(r.Context(), pathParam(r, "externalID"), p)
	if err != nil {
		writeError(w, r, h.logger, "sync user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GetUser handles GET /api/users/{externalID}.
//
//	@Summary		Get a user by auth provider id
//	@Tags			users
//	@Produce		json
//	@Param			externalID	path		string	true	"Auth provider user id"
//	@Success		200			{object}	models.User
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{externalID} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.User(r.Context(), pathParam(r, "externalID"))
	if err != nil {
		writeError(w, r, h.logger, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// SetTheme handles PUT /api/users/{externalID}/theme.
//
//	@Summary		Save the theme preference
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			externalID	path		string			true	"Auth provider user id"
//	@Param			body		body		ThemeRequest	true	"Theme"
//	@Success		200			{object}	ThemeResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{externalID}/theme [put]
func (h *UserHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetTheme(r.Context(), pathParam(r, "externalID"), req.ThemeMode); err != nil {
		writeError(w, r, h.logger, "set theme", err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse(req))
}

// GetTheme handles GET /api/users/{externalID}/theme.
//
//	@Summary		Get the theme preference (auto when never set)
//	@Tags			users
//	@Produce		json
//	@Param			externalID	path		string	true	"Auth provider user id"
//	@Success		200			{object}	ThemeResponse
//	@Security		BearerAuth
//	@Router			/users/{externalID}/theme [get]
func (h *UserHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	mode, err := h.svc.Theme(r.Context(), pathParam(r, "externalID"))
	if err != nil {
		writeError(w, r, h.logger, "get theme", err)
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{ThemeMode: mode})
}
