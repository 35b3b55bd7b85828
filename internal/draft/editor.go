// Package draft implements the new-note and edit-note flows: a transient
// Draft is edited in place and handed to an explicit save callback.
package draft

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/tags"
)

var (
	ErrRecording    = errors.New("draft: a recording is already in progress")
	ErrNotRecording = errors.New("draft: no recording in progress")
	ErrNoAudio      = errors.New("draft: no audio attached")
)

// SaveFunc persists a draft. It is supplied by whoever composes the editor,
// e.g. a create or an update bound to a note id.
type SaveFunc func(ctx context.Context, d models.Draft) (models.Note, error)

// GetFunc looks a note up by id; ok is false when it does not exist.
type GetFunc func(id string) (n models.Note, ok bool)

// Editor owns a draft until it is saved. It is safe for concurrent use, so a
// transcription stream may append while other edits happen.
type Editor struct {
	mu        sync.Mutex
	draft     models.Draft
	initial   models.Draft
	loaded    models.Note
	save      SaveFunc
	recording audio.Handle
}

// New starts an editor from initial.
func New(initial models.Draft, save SaveFunc) *Editor {
	initial.Tags = slices.Clone(initial.Tags)
	e := &Editor{draft: initial, initial: initial, save: save}
	e.draft.Tags = slices.Clone(initial.Tags)
	return e
}

// Load starts an editor for note id. A missing note yields a *apperr.NotFoundError
// so the caller can leave the edit flow with a notice.
func Load(get GetFunc, id string, save SaveFunc) (*Editor, error) {
	n, ok := get(id)
	if !ok {
		return nil, apperr.NotFound("note", id)
	}
	e := New(n.Draft(), save)
	e.loaded = n
	return e, nil
}

// Loaded returns the note the editor was loaded from; it is zero for an
// editor started with New.
func (e *Editor) Loaded() models.Note {
	return e.loaded.Clone()
}

// Changed reports whether the draft differs from the one the editor started
// with.
func (e *Editor) Changed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Title != e.initial.Title ||
		e.draft.Text != e.initial.Text ||
		!slices.Equal(e.draft.Tags, e.initial.Tags) ||
		e.draft.Audio != e.initial.Audio
}

// Draft returns a copy of the current draft.
func (e *Editor) Draft() models.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.draft
	d.Tags = slices.Clone(d.Tags)
	return d
}

func (e *Editor) SetTitle(title string) {
	e.mu.Lock()
	e.draft.Title = title
	e.mu.Unlock()
}

func (e *Editor) SetText(text string) {
	e.mu.Lock()
	e.draft.Text = text
	e.mu.Unlock()
}

// SetTags replaces the tag list with its normalized form.
func (e *Editor) SetTags(list []string) {
	e.mu.Lock()
	e.draft.Tags = tags.Normalize(list)
	e.mu.Unlock()
}

// AddTag adds the trimmed input and reports whether the tag list changed.
func (e *Editor) AddTag(input string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := len(e.draft.Tags)
	e.draft.Tags = tags.Add(e.draft.Tags, input)
	return len(e.draft.Tags) != before
}

// RemoveTag drops tag and reports whether the tag list changed.
func (e *Editor) RemoveTag(tag string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := len(e.draft.Tags)
	e.draft.Tags = tags.Remove(e.draft.Tags, tag)
	return len(e.draft.Tags) != before
}

// AppendTranscript appends a recognised fragment to the text, separated by a
// single space. Blank fragments are ignored.
func (e *Editor) AppendTranscript(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.TrimSpace(e.draft.Text) == "" {
		e.draft.Text = fragment
		return
	}
	e.draft.Text = strings.TrimRight(e.draft.Text, " ") + " " + fragment
}

// Listen appends every fragment from t until the stream ends or ctx is done.
func (e *Editor) Listen(ctx context.Context, t audio.Transcriber) error {
	ch, err := t.Transcribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frag, ok := <-ch:
			if !ok {
				return nil
			}
			e.AppendTranscript(frag)
		}
	}
}

// StartRecording begins a clip on rec.
func (e *Editor) StartRecording(ctx context.Context, rec audio.Recorder) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recording != "" {
		return ErrRecording
	}
	h, err := rec.StartRecording(ctx)
	if err != nil {
		return err
	}
	e.recording = h
	return nil
}

// StopRecording finishes the clip and attaches its reference to the draft,
// replacing any previous clip.
func (e *Editor) StopRecording(ctx context.Context, rec audio.Recorder) (audio.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recording == "" {
		return audio.None(), ErrNotRecording
	}
	h := e.recording
	e.recording = ""
	uri, err := rec.StopRecording(ctx, h)
	if err != nil {
		return audio.None(), err
	}
	e.draft.Audio = audio.NewRef(uri)
	return e.draft.Audio, nil
}

// AttachAudio sets the clip reference directly.
func (e *Editor) AttachAudio(ref audio.Ref) {
	e.mu.Lock()
	e.draft.Audio = ref
	e.mu.Unlock()
}

func (e *Editor) DetachAudio() {
	e.AttachAudio(audio.None())
}

// Play hands the attached clip to p.
func (e *Editor) Play(ctx context.Context, p audio.Player) error {
	uri, ok := e.Draft().Audio.URI()
	if !ok {
		return ErrNoAudio
	}
	return p.Play(ctx, uri)
}

// Save rejects an empty draft with *apperr.EmptyNoteError and otherwise
// calls the save callback.
func (e *Editor) Save(ctx context.Context) (models.Note, error) {
	d := e.Draft()
	if d.IsEmpty() {
		return models.Note{}, &apperr.EmptyNoteError{}
	}
	return e.save(ctx, d)
}
