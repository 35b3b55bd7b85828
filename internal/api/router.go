package api

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/noteservice"
	"github.com/starford/quill/internal/prefs"
)

// Deps wires the router to its services.
type Deps struct {
	Notes *noteservice.Service
	// Prefs is optional; user routes are not mounted without it.
	Prefs *prefs.Service
	Audio audio.Capabilities
	// Clips holds the stored clips, keyed by file name.
	Clips         fs.FS
	MaxAudioBytes int64
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	Logger *slog.Logger

	AuthEnabled bool
	Token       string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(d.Notes, logger)
	ah := NewAudioHandler(d.Audio.Recorder, d.Clips, d.MaxAudioBytes, logger)

	r := chi.NewRouter()
	if d.AuthEnabled {
		r.Use(RequireToken(d.Token))
	}

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/tags", h.AddTag)
	r.Delete("/notes/{id}/tags/{tag}", h.RemoveTag)
	r.Post("/notes/{id}/transcript", h.AppendTranscript)

	r.Post("/audio", ah.Upload)

	if d.Prefs != nil {
		uh := NewUserHandler(d.Prefs, logger)
		r.Put("/users/{externalID}", uh.SyncUser)
		r.Get("/users/{externalID}", uh.GetUser)
		r.Put("/users/{externalID}/theme", uh.SetTheme)
		r.Get("/users/{externalID}/theme", uh.GetTheme)
	}

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}

// NewAudioFiles serves stored clips at GET /{name}. It is mounted outside
// the API auth group so players can fetch clips by plain URL.
func NewAudioFiles(clips fs.FS, logger *slog.Logger) chi.Router {
	ah := NewAudioHandler(nil, clips, 0, logger)
	r := chi.NewRouter()
	r.Get("/{name}", ah.ServeFile)
	return r
}
