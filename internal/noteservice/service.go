// Package noteservice coordinates the note store with change events, metrics
// and logging. Transports (HTTP, MCP) talk to notes only through it.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/checksum"
	"github.com/starford/quill/internal/draft"
	"github.com/starford/quill/internal/metrics"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/notestore"
	"github.com/starford/quill/internal/search"
)

// MaxListLimit caps a single page of ListNotes.
const MaxListLimit = 500

// Publisher receives note change notifications.
type Publisher interface {
	PublishNoteEvent(kind, id string)
}

// NoteDetail is a note plus the checksum clients send back as If-Match.
type NoteDetail struct {
	models.Note
	Checksum string `json:"checksum"`
}

// ListParams filters and pages ListNotes.
type ListParams struct {
	Query  string
	Tag    string
	Limit  int // 0 means no limit
	Offset int
}

// Validate implements validation.Validatable.
func (p ListParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Limit, validation.Min(0), validation.Max(MaxListLimit)),
		validation.Field(&p.Offset, validation.Min(0)),
	)
}

// Service implements the note operations.
type Service struct {
	store   *notestore.Store
	pub     Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service over store.
func NewService(store *notestore.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.gauge()
	return s
}

// Detail computes the checksum of n. A note that cannot be encoded gets an
// empty checksum, which never matches a client's If-Match.
func Detail(n models.Note) NoteDetail {
	sum, _ := checksum.Note(n)
	return NoteDetail{Note: n, Checksum: sum}
}

// CreateNote saves a new note from d.
func (s *Service) CreateNote(ctx context.Context, d models.Draft) (NoteDetail, error) {
	ed := draft.New(d, func(_ context.Context, d models.Draft) (models.Note, error) {
		return s.store.Create(d)
	})
	n, err := ed.Save(ctx)
	s.observe("create", err)
	if err != nil {
		return NoteDetail{}, err
	}
	s.logger.InfoContext(ctx, "note created", slog.String("id", n.ID))
	s.changed("created", n.ID)
	return Detail(n), nil
}

// GetNote returns note id or a *apperr.NotFoundError.
func (s *Service) GetNote(_ context.Context, id string) (NoteDetail, error) {
	n, ok := s.store.Get(id)
	if !ok {
		return NoteDetail{}, apperr.NotFound("note", id)
	}
	return Detail(n), nil
}

// Lookup is GetNote without the checksum, in the shape draft.Load expects.
func (s *Service) Lookup(id string) (models.Note, bool) {
	return s.store.Get(id)
}

// ListNotes returns one page of the notes matching p, newest first, and the
// total number of matches.
func (s *Service) ListNotes(_ context.Context, p ListParams) ([]NoteDetail, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, fmt.Errorf("noteservice: list: %w: %w", apperr.ErrInvalid, err)
	}
	notes := search.ByTag(search.Filter(s.store.List(), p.Query), p.Tag)
	total := len(notes)

	start := min(p.Offset, total)
	end := total
	if p.Limit > 0 {
		end = min(start+p.Limit, total)
	}
	out := make([]NoteDetail, 0, end-start)
	for _, n := range notes[start:end] {
		out = append(out, Detail(n))
	}
	return out, total, nil
}

// UpdateNote replaces the editable fields of note id with d. When ifMatch
// lists checksums, the current checksum must be one of them.
func (s *Service) UpdateNote(ctx context.Context, id string, d models.Draft, ifMatch ...string) (NoteDetail, error) {
	return s.edit(ctx, "update", id, ifMatch, func(ed *draft.Editor) error {
		ed.SetTitle(d.Title)
		ed.SetText(d.Text)
		ed.SetTags(d.Tags)
		ed.AttachAudio(d.Audio)
		return nil
	})
}

// EditNote loads note id into a draft editor, applies fn and saves the result.
// An edit that leaves the draft unchanged writes nothing and publishes
// nothing.
func (s *Service) EditNote(ctx context.Context, id, ifMatch string, fn func(ed *draft.Editor) error) (NoteDetail, error) {
	return s.edit(ctx, "update", id, []string{ifMatch}, fn)
}

// AddTag adds tag to note id. Adding a blank or present tag leaves the note
// unchanged and publishes nothing.
func (s *Service) AddTag(ctx context.Context, id, tag string) (NoteDetail, error) {
	return s.edit(ctx, "tag_add", id, nil, func(ed *draft.Editor) error {
		ed.AddTag(tag)
		return nil
	})
}

// RemoveTag removes tag from note id.
func (s *Service) RemoveTag(ctx context.Context, id, tag string) (NoteDetail, error) {
	return s.edit(ctx, "tag_remove", id, nil, func(ed *draft.Editor) error {
		ed.RemoveTag(tag)
		return nil
	})
}

// AppendTranscript appends recognised speech fragments to the text of note id.
func (s *Service) AppendTranscript(ctx context.Context, id string, fragments []string) (NoteDetail, error) {
	return s.edit(ctx, "transcript", id, nil, func(ed *draft.Editor) error {
		feed := audio.NewFeed(len(fragments))
		for _, f := range fragments {
			if err := feed.Push(ctx, f); err != nil {
				return err
			}
		}
		feed.Close()
		return ed.Listen(ctx, feed)
	})
}

// DeleteNote permanently removes note id.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	err := s.store.Delete(id)
	s.observe("delete", err)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "note deleted", slog.String("id", id))
	s.changed("deleted", id)
	return nil
}

// Refresh reconciles note id with the backend after an outside change.
func (s *Service) Refresh(ctx context.Context, id string) error {
	change, err := s.store.Refresh(id)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh failed", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}
	if change != notestore.Unchanged {
		s.logger.DebugContext(ctx, "note refreshed", slog.String("id", id), slog.String("change", change.String()))
		s.changed(change.String(), id)
	}
	return nil
}

// Reload re-reads the whole collection from the backend.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.store.Reload(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notes loaded", slog.Int("count", s.store.Len()))
	s.gauge()
	return nil
}

// Count returns the number of notes.
func (s *Service) Count() int {
	return s.store.Len()
}

// maxEditAttempts bounds how often an edit without If-Match is retried when
// the note changes between load and save.
const maxEditAttempts = 3

var errStale = fmt.Errorf("noteservice: note changed during edit: %w", apperr.ErrConflict)

func (s *Service) edit(ctx context.Context, op, id string, ifMatch []string, fn func(ed *draft.Editor) error) (NoteDetail, error) {
	// Without a precondition, a save that lost a race is retried on the
	// fresh note.
	retry := checksum.Matches("", ifMatch)
	for attempt := 1; ; attempt++ {
		n, saved, err := s.editOnce(ctx, id, ifMatch, fn)
		if errors.Is(err, errStale) && retry && attempt < maxEditAttempts {
			continue
		}
		s.observe(op, err)
		if err != nil {
			return NoteDetail{}, err
		}
		if saved {
			s.logger.InfoContext(ctx, "note updated", slog.String("id", id), slog.String("op", op))
			s.changed("updated", id)
		}
		return Detail(n), nil
	}
}

// editOnce runs one load-edit-save cycle. The save only succeeds if the note
// still has the checksum it was loaded with.
func (s *Service) editOnce(ctx context.Context, id string, ifMatch []string, fn func(ed *draft.Editor) error) (models.Note, bool, error) {
	var base string
	ed, err := draft.Load(s.Lookup, id, func(_ context.Context, d models.Draft) (models.Note, error) {
		return s.store.UpdateFunc(id, func(cur models.Note) (models.Draft, error) {
			if Detail(cur).Checksum != base {
				return models.Draft{}, errStale
			}
			return d, nil
		})
	})
	if err != nil {
		return models.Note{}, false, err
	}
	loaded := ed.Loaded()
	base = Detail(loaded).Checksum
	if !checksum.Matches(base, ifMatch) {
		return models.Note{}, false, fmt.Errorf("noteservice: note %s was modified: %w", id, apperr.ErrConflict)
	}

	if err := fn(ed); err != nil {
		return models.Note{}, false, err
	}
	if !ed.Changed() {
		return loaded, false, nil
	}
	n, err := ed.Save(ctx)
	if err != nil {
		return models.Note{}, false, err
	}
	return n, true, nil
}

func (s *Service) changed(kind, id string) {
	if s.pub != nil {
		s.pub.PublishNoteEvent(kind, id)
	}
	s.gauge()
}

func (s *Service) gauge() {
	if s.metrics != nil {
		s.metrics.SetNotes(s.store.Len())
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.Observe(op, Result(err))
	}
}

// Result maps an operation error to its metrics label.
func Result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, apperr.ErrEmptyNote):
		return metrics.ResultEmpty
	case errors.Is(err, apperr.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, apperr.ErrConflict):
		return metrics.ResultConflict
	case errors.Is(err, apperr.ErrInvalid):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
