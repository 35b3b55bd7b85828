package api

import (
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/noteservice"
)

// NoteRequest is the body of note create and replace requests.
type NoteRequest struct {
	Title    string    `json:"title" example:"Groceries"`
	Text     string    `json:"text" example:"milk, eggs"`
	Tags     []string  `json:"tags" example:"home,weekly"`
	AudioURI audio.Ref `json:"audioUri" example:"/audio/3f1c.m4a"`
}

// Draft converts the request to a draft.
func (r NoteRequest) Draft() models.Draft {
	return models.Draft{Title: r.Title, Text: r.Text, Tags: r.Tags, Audio: r.AudioURI}
}

// NoteDetail is the full note response type.
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps a page of notes.
type NoteListResponse struct {
	Notes []NoteDetail `json:"notes"`
	Total int          `json:"total" example:"42"`
}

// TagRequest adds one tag to a note.
type TagRequest struct {
	Tag string `json:"tag" example:"work"`
}

// TranscriptRequest carries recognised speech fragments, in order.
type TranscriptRequest struct {
	Fragments []string `json:"fragments"`
}

// AudioUploadResponse is returned after a clip upload.
type AudioUploadResponse struct {
	URI  string `json:"uri" example:"/audio/3f1c.m4a"`
	Size int64  `json:"size" example:"12345"`
}

// ThemeRequest and ThemeResponse carry the theme preference.
type ThemeRequest struct {
	ThemeMode models.ThemeMode `json:"themeMode" example:"dark"`
}

type ThemeResponse struct {
	ThemeMode models.ThemeMode `json:"themeMode" example:"auto"`
}
