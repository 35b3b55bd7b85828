// Package notestore is the single source of truth for notes.
//
// A Store owns the ordered collection (newest first) and writes every change
// through to its Backend before the in-memory view changes. One RWMutex is held
// for the whole of each call, so readers never observe a half-applied mutation
// and a failed backend write leaves the store untouched.
package notestore

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/tags"
)

// Change describes what Refresh did to the collection.
type Change int

const (
	Unchanged Change = iota
	Inserted
	Replaced
	Removed
)

func (c Change) String() string {
	switch c {
	case Inserted:
		return "created"
	case Replaced:
		return "updated"
	case Removed:
		return "deleted"
	default:
		return "unchanged"
	}
}

// Store holds the note collection.
type Store struct {
	mu      sync.RWMutex
	notes   []models.Note
	backend Backend

	newID  func() string
	now    func() time.Time
	onSkip func(id string, err error)
}

// Option configures a Store.
type Option func(*Store)

// WithBackend sets the persistence backend. Defaults to a MemoryBackend.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithIDGenerator overrides the id source (UUIDv7 by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithSkipHandler is called for every stored record Reload or Refresh
// refuses to load because it breaks a note invariant.
func WithSkipHandler(fn func(id string, err error)) Option {
	return func(s *Store) { s.onSkip = fn }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		backend: NewMemoryBackend(),
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
		now:     time.Now,
		onSkip:  func(string, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store loaded from its backend.
func Open(opts ...Option) (*Store, error) {
	s := New(opts...)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Create validates and normalizes d, assigns an id and creation time, and
// puts the note first in the collection.
func (s *Store) Create(d models.Draft) (models.Note, error) {
	if d.IsEmpty() {
		return models.Note{}, &apperr.EmptyNoteError{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := normalize(d)
	n.ID = s.newID()
	n.CreatedAt = s.now().UTC()
	if s.indexOf(n.ID) >= 0 {
		return models.Note{}, fmt.Errorf("notestore: create: duplicate id %q: %w", n.ID, apperr.ErrConflict)
	}
	if err := s.backend.Put(n); err != nil {
		return models.Note{}, fmt.Errorf("notestore: create: %w", err)
	}
	s.notes = slices.Insert(s.notes, 0, n)
	return n.Clone(), nil
}

// Update replaces the editable fields of note id with the normalized d. The
// note keeps its id, creation time and position.
func (s *Store) Update(id string, d models.Draft) (models.Note, error) {
	return s.UpdateFunc(id, func(models.Note) (models.Draft, error) { return d, nil })
}

// UpdateFunc is Update with the draft computed from the current note while
// the store lock is held. An error from fn aborts the update unchanged.
func (s *Store) UpdateFunc(id string, fn func(current models.Note) (models.Draft, error)) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, apperr.NotFound("note", id)
	}
	cur := s.notes[i]

	d, err := fn(cur.Clone())
	if err != nil {
		return models.Note{}, err
	}
	if d.IsEmpty() {
		return models.Note{}, &apperr.EmptyNoteError{}
	}

	n := normalize(d)
	n.ID = cur.ID
	n.CreatedAt = cur.CreatedAt
	if err := s.backend.Put(n); err != nil {
		return models.Note{}, fmt.Errorf("notestore: update %s: %w", id, err)
	}
	s.notes[i] = n
	return n.Clone(), nil
}

// Delete permanently removes note id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return apperr.NotFound("note", id)
	}
	if err := s.backend.Delete(id); err != nil {
		return fmt.Errorf("notestore: delete %s: %w", id, err)
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	return nil
}

// Get returns note id. A missing note is reported by ok == false, not an error.
func (s *Store) Get(id string) (n models.Note, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, false
	}
	return s.notes[i].Clone(), true
}

// List returns a snapshot of the collection, newest first.
func (s *Store) List() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Reload replaces the collection with the backend's contents.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.backend.List()
	if err != nil {
		return fmt.Errorf("notestore: reload: %w", err)
	}

	notes := make([]models.Note, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, n := range stored {
		n, err := sanitize(n)
		if err != nil {
			s.onSkip(n.ID, err)
			continue
		}
		if _, dup := seen[n.ID]; dup {
			s.onSkip(n.ID, apperr.ErrConflict)
			continue
		}
		seen[n.ID] = struct{}{}
		notes = append(notes, n)
	}
	slices.SortStableFunc(notes, compareNewestFirst)
	s.notes = notes
	return nil
}

// Refresh re-reads note id from the backend and reconciles the collection.
func (s *Store) Refresh(id string) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok, err := s.backend.Get(id)
	if err != nil {
		return Unchanged, fmt.Errorf("notestore: refresh %s: %w", id, err)
	}
	i := s.indexOf(id)
	if ok {
		n, err = sanitize(n)
		if err == nil && n.ID != id {
			err = fmt.Errorf("notestore: stored note %q under id %q: %w", n.ID, id, apperr.ErrInvalid)
		}
		if err != nil {
			s.onSkip(id, err)
			ok = false
		}
	}

	switch {
	case !ok && i < 0:
		return Unchanged, nil
	case !ok:
		s.notes = slices.Delete(s.notes, i, i+1)
		return Removed, nil
	case i >= 0:
		// createdAt is fixed once a note is known.
		n.CreatedAt = s.notes[i].CreatedAt
		if equal(s.notes[i], n) {
			return Unchanged, nil
		}
		s.notes[i] = n
		return Replaced, nil
	default:
		s.insertSorted(n)
		return Inserted, nil
	}
}

func (s *Store) insertSorted(n models.Note) {
	j := slices.IndexFunc(s.notes, func(o models.Note) bool { return compareNewestFirst(n, o) < 0 })
	if j < 0 {
		j = len(s.notes)
	}
	s.notes = slices.Insert(s.notes, j, n)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n models.Note) bool { return n.ID == id })
}

func normalize(d models.Draft) models.Note {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = models.UntitledTitle
	}
	return models.Note{
		Title: title,
		Text:  strings.TrimSpace(d.Text),
		Tags:  tags.Normalize(d.Tags),
		Audio: d.Audio,
	}
}

// sanitize re-applies the save-time rules to a record read back from storage.
func sanitize(stored models.Note) (models.Note, error) {
	if strings.TrimSpace(stored.ID) == "" {
		return stored, fmt.Errorf("notestore: stored note has no id: %w", apperr.ErrInvalid)
	}
	d := stored.Draft()
	if d.IsEmpty() {
		return stored, &apperr.EmptyNoteError{}
	}
	n := normalize(d)
	n.ID = stored.ID
	n.CreatedAt = stored.CreatedAt.UTC()
	return n, nil
}

func compareNewestFirst(a, b models.Note) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

func equal(a, b models.Note) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Text == b.Text &&
		slices.Equal(a.Tags, b.Tags) &&
		a.Audio == b.Audio &&
		a.CreatedAt.Equal(b.CreatedAt)
}
