package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/notestore"
)

var _ notestore.Backend = (*MarkdownBackend)(nil)

func TestMarkdownBackend_PutGetDelete(t *testing.T) {
	b := NewMarkdownBackend(newVault(t))
	n := models.Note{
		ID:        "n1",
		Title:     "Title",
		Text:      "body",
		Tags:      []string{"x"},
		Audio:     audio.NewRef("/audio/n1.m4a"),
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := b.Put(n); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := b.Get("n1")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Title != n.Title || got.Text != n.Text || got.Audio != n.Audio || !got.CreatedAt.Equal(n.CreatedAt) {
		t.Errorf("got %+v", got)
	}

	if err := b.Delete("n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := b.Get("n1"); ok || err != nil {
		t.Errorf("Get after delete = %v, %v", ok, err)
	}
}

func TestMarkdownBackend_RejectsUnsafeIDs(t *testing.T) {
	b := NewMarkdownBackend(newVault(t))
	for _, id := range []string{"", "../x", "a/b", ".hidden"} {
		if err := b.Put(models.Note{ID: id, Title: "t"}); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Put(%q) err = %v", id, err)
		}
	}
}

func TestMarkdownBackend_ListHandWrittenFile(t *testing.T) {
	vault := newVault(t)
	b := NewMarkdownBackend(vault)
	if err := b.Put(models.Note{ID: "a", Title: "A", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vault.Root(), NotesDir, "handmade.md"), []byte("# From editor\nhi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	notes, err := b.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	hand := notes[1]
	if hand.ID != "handmade" || hand.Title != "From editor" {
		t.Errorf("hand-written note = %+v", hand)
	}
	if hand.CreatedAt.IsZero() {
		t.Error("created time should fall back to the file mtime")
	}
}

func TestMarkdownBackend_BacksStore(t *testing.T) {
	vault := newVault(t)
	s, err := notestore.Open(notestore.WithBackend(NewMarkdownBackend(vault)))
	if err != nil {
		t.Fatal(err)
	}
	a, _ := s.Create(models.Draft{Title: "first"})
	b, _ := s.Create(models.Draft{Title: "second"})
	if _, err := s.Update(a.ID, models.Draft{Title: "first, edited"}); err != nil {
		t.Fatal(err)
	}

	reopened, err := notestore.Open(notestore.WithBackend(NewMarkdownBackend(vault)))
	if err != nil {
		t.Fatal(err)
	}
	list := reopened.List()
	if len(list) != 2 || list[0].ID != b.ID || list[1].Title != "first, edited" {
		t.Errorf("reopened = %+v", list)
	}
}

func TestMarkdownBackend_GetHandWrittenFile(t *testing.T) {
	vault := newVault(t)
	b := NewMarkdownBackend(vault)
	file := filepath.Join(vault.Root(), NotesDir, "hand.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("# Hand\nbody\n"), 0o644))
	mtime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, mtime, mtime))

	n, ok, err := b.Get("hand")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mtime, n.CreatedAt)
}

func TestMarkdownBackend_ExternalEditKeepsCreatedAt(t *testing.T) {
	vault := newVault(t)
	file := filepath.Join(vault.Root(), NotesDir, "hand.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("# Hand\nbody\n"), 0o644))
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, past, past))

	st, err := notestore.Open(notestore.WithBackend(NewMarkdownBackend(vault)))
	require.NoError(t, err)
	newer, err := st.Create(models.Draft{Title: "newer"})
	require.NoError(t, err)
	before, ok := st.Get("hand")
	require.True(t, ok)
	assert.Equal(t, past, before.CreatedAt)

	require.NoError(t, os.WriteFile(file, []byte("# Hand\nbody, edited\n"), 0o644))
	future := time.Now().Add(24 * time.Hour)
	require.NoError(t, os.Chtimes(file, future, future))

	change, err := st.Refresh("hand")
	require.NoError(t, err)
	assert.Equal(t, notestore.Replaced, change)

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, []string{newer.ID, "hand"}, []string{list[0].ID, list[1].ID})
	assert.Equal(t, past, list[1].CreatedAt)
	assert.Contains(t, list[1].Text, "body, edited")
}

func TestNoteID(t *testing.T) {
	cases := map[string]string{
		"/vault/notes/abc.md": "abc",
		"notes/x-y.md":        "x-y",
	}
	for in, want := range cases {
		if got, ok := NoteID(in); !ok || got != want {
			t.Errorf("NoteID(%q) = %q, %v", in, got, ok)
		}
	}
	for _, in := range []string{"notes/.quill-tmp-1", "notes/a.txt", "notes/.x.md"} {
		if _, ok := NoteID(in); ok {
			t.Errorf("NoteID(%q) should not match", in)
		}
	}
}
