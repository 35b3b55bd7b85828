// Package apperr holds the error taxonomy shared by the store, services and transports.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrEmptyNote = errors.New("empty note")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid input")
)

// NotFoundError reports a missing entity. It unwraps to ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	}
	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound returns a *NotFoundError for the given entity and id.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// EmptyNoteError is returned when a draft has no title, no text and no audio.
// It unwraps to ErrEmptyNote.
type EmptyNoteError struct{}

func (e *EmptyNoteError) Error() string {
	return "note is empty: add a title, text, or audio before saving"
}

func (e *EmptyNoteError) Unwrap() error { return ErrEmptyNote }
