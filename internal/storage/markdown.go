package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/parser"
)

const (
	NotesDir = "notes"
	NoteExt  = ".md"
)

// MarkdownBackend stores each note as notes/<id>.md in a vault, so notes can
// be read and edited with any text editor.
type MarkdownBackend struct {
	files Provider
}

// NewMarkdownBackend returns a backend writing through files.
func NewMarkdownBackend(files Provider) *MarkdownBackend {
	return &MarkdownBackend{files: files}
}

// NotePath returns the vault path of note id.
func NotePath(id string) (string, error) {
	if id == "" || id != path.Base(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("storage: unusable note id %q: %w", id, apperr.ErrInvalid)
	}
	return path.Join(NotesDir, id+NoteExt), nil
}

// NoteID returns the id a note file name maps to.
func NoteID(name string) (string, bool) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if !strings.HasSuffix(base, NoteExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, NoteExt), true
}

func (b *MarkdownBackend) Get(id string) (models.Note, bool, error) {
	p, err := NotePath(id)
	if err != nil {
		return models.Note{}, false, err
	}
	data, err := b.files.Read(p)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Note{}, false, nil
	}
	if err != nil {
		return models.Note{}, false, err
	}
	n, err := decode(id, data)
	if err != nil {
		return models.Note{}, false, err
	}
	if n.CreatedAt.IsZero() {
		info, err := b.files.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return models.Note{}, false, nil
		}
		if err != nil {
			return models.Note{}, false, err
		}
		n.CreatedAt = info.Modified.UTC()
	}
	return n, true, nil
}

func (b *MarkdownBackend) Put(n models.Note) error {
	p, err := NotePath(n.ID)
	if err != nil {
		return err
	}
	data, err := parser.Encode(n)
	if err != nil {
		return err
	}
	return b.files.Write(p, data)
}

func (b *MarkdownBackend) Delete(id string) error {
	p, err := NotePath(id)
	if err != nil {
		return err
	}
	return b.files.Delete(p)
}

func (b *MarkdownBackend) List() ([]models.Note, error) {
	entries, err := b.files.List(NotesDir, NoteExt)
	if err != nil {
		return nil, err
	}
	out := make([]models.Note, 0, len(entries))
	for _, e := range entries {
		id, ok := NoteID(e.Path)
		if !ok {
			continue
		}
		data, err := b.files.Read(e.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = e.Modified.UTC()
		}
		out = append(out, n)
	}
	return out, nil
}

// decode falls back to the file name for notes written without an id. Notes
// written without a created time get the file's modification time from the
// caller.
func decode(id string, data []byte) (models.Note, error) {
	n, err := parser.Decode(data)
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: decode note %s: %w", id, err)
	}
	if n.ID == "" {
		n.ID = id
	}
	return n, nil
}
