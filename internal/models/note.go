// Package models defines the domain types for Quill.
package models

import (
	"slices"
	"strings"
	"time"

	"github.com/starford/quill/internal/audio"
)

// UntitledTitle replaces a blank title when a note is saved.
const UntitledTitle = "Untitled Note"

// Note is a saved note. ID and CreatedAt never change after creation.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
	Audio     audio.Ref `json:"audioUri"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft returns the editable fields of n.
func (n Note) Draft() Draft {
	return Draft{
		Title: n.Title,
		Text:  n.Text,
		Tags:  slices.Clone(n.Tags),
		Audio: n.Audio,
	}
}

// Clone returns a copy of n that shares no mutable state with it.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

// Draft is the transient set of fields a caller accumulates before saving.
type Draft struct {
	Title string    `json:"title"`
	Text  string    `json:"text"`
	Tags  []string  `json:"tags"`
	Audio audio.Ref `json:"audioUri"`
}

// IsEmpty reports whether title and text are blank and no audio is attached.
func (d Draft) IsEmpty() bool {
	return strings.TrimSpace(d.Title) == "" &&
		strings.TrimSpace(d.Text) == "" &&
		d.Audio.IsZero()
}
