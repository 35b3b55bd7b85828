package api

import (
	"errors"
	"io"
	"log/slog"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/audio"
)

// clipFeeder is implemented by recorders whose bytes come from the client.
type clipFeeder interface {
	Feed(h audio.Handle, r io.Reader) (int64, error)
	Discard(h audio.Handle)
}

// AudioHandler accepts clip uploads and serves stored clips.
type AudioHandler struct {
	rec      audio.Recorder
	clips    fs.FS
	maxBytes int64
	logger   *slog.Logger
}

// NewAudioHandler serves clips from clips and records uploads through rec.
func NewAudioHandler(rec audio.Recorder, clips fs.FS, maxBytes int64, logger *slog.Logger) *AudioHandler {
	if rec == nil {
		rec = audio.Unavailable{}
	}
	return &AudioHandler{rec: rec, clips: clips, maxBytes: maxBytes, logger: logger}
}

// Upload handles POST /api/audio (multipart/form-data, field "file").
//
//	@Summary		Upload a recorded clip
//	@Tags			audio
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Clip"
//	@Success		201		{object}	AudioUploadResponse
//	@Failure		413		{object}	errResponse
//	@Failure		503		{object}	errResponse	"Recording is disabled"
//	@Security		BearerAuth
//	@Router			/audio [post]
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	feeder, ok := h.rec.(clipFeeder)
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("audio recording is disabled"))
		return
	}
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("clip too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	ctx := r.Context()
	handle, err := h.rec.StartRecording(ctx)
	if errors.Is(err, audio.ErrUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("audio recording is disabled"))
		return
	}
	if err != nil {
		writeError(w, r, h.logger, "start recording", err)
		return
	}
	size, err := feeder.Feed(handle, file)
	if err != nil {
		feeder.Discard(handle)
		if errors.Is(err, audio.ErrClipTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("clip too large"))
			return
		}
		writeError(w, r, h.logger, "feed recording", err)
		return
	}
	uri, err := h.rec.StopRecording(ctx, handle)
	if err != nil {
		writeError(w, r, h.logger, "stop recording", err)
		return
	}
	writeJSON(w, http.StatusCreated, AudioUploadResponse{URI: uri, Size: size})
}

// ServeFile handles GET /audio/{name}.
func (h *AudioHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") || strings.Contains(name, `\`) {
		http.Error(w, "invalid clip name", http.StatusBadRequest)
		return
	}
	if h.clips == nil {
		http.NotFound(w, r)
		return
	}
	if info, err := fs.Stat(h.clips, name); err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.clips, name)
}
