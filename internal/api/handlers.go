package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/checksum"
	"github.com/starford/quill/internal/noteservice"
)

// Handler holds the note route handlers.
type Handler struct {
	svc    *noteservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// pathParam returns a URL parameter, decoding escaped characters.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeNote(w http.ResponseWriter, status int, n NoteDetail) {
	w.Header().Set("ETag", checksum.ETag(n.Checksum))
	writeJSON(w, status, n)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, newest first, optionally filtered
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive match on title, text or tags"
//	@Param			tag		query		string	false	"Exact tag"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := noteservice.ListParams{Query: q.Get("q"), Tag: q.Get("tag")}
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(name+" must be an integer"))
			return
		}
		*dst = v
	}

	items, total, err := h.svc.ListNotes(r.Context(), p)
	if err != nil {
		writeError(w, r, h.logger, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, "get note", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse	"Title, text and audio are all empty"
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Draft())
	if err != nil {
		writeError(w, r, h.logger, "create note", err)
		return
	}
	w.Header().Set("Location", "/api/notes/"+url.PathEscape(note.ID))
	writeNote(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace the editable fields of a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Note id"
//	@Param			If-Match	header		string		false	"Checksum from a previous read"
//	@Param			body		body		NoteRequest	true	"New fields"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))
	note, err := h.svc.UpdateNote(r.Context(), pathParam(r, "id"), req.Draft(), ifMatch...)
	if err != nil {
		writeError(w, r, h.logger, "update note", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, r, h.logger, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTag handles POST /api/notes/{id}/tags.
//
//	@Summary		Add a tag to a note
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note id"
//	@Param			body	body		TagRequest	true	"Tag"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/tags [post]
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.AddTag(r.Context(), pathParam(r, "id"), req.Tag)
	if err != nil {
		writeError(w, r, h.logger, "add tag", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// RemoveTag handles DELETE /api/notes/{id}/tags/{tag}.
//
//	@Summary		Remove a tag from a note
//	@Tags			tags
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Param			tag	path		string	true	"Tag"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/tags/{tag} [delete]
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.RemoveTag(r.Context(), pathParam(r, "id"), pathParam(r, "tag"))
	if err != nil {
		writeError(w, r, h.logger, "remove tag", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}

// AppendTranscript handles POST /api/notes/{id}/transcript.
//
//	@Summary		Append recognised speech to a note's text
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		TranscriptRequest	true	"Fragments"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/transcript [post]
func (h *Handler) AppendTranscript(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Fragments) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("fragments are required"))
		return
	}
	note, err := h.svc.AppendTranscript(r.Context(), pathParam(r, "id"), req.Fragments)
	if err != nil {
		writeError(w, r, h.logger, "append transcript", err)
		return
	}
	writeNote(w, http.StatusOK, note)
}
