package notestore

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
)

// testStore returns a store with sequential ids and a clock that ticks one
// second per call, so ordering assertions are deterministic.
func testStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	var mu sync.Mutex
	seq := 0
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	defaults := []Option{
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("n%03d", seq)
		}),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return base.Add(time.Duration(seq) * time.Second)
		}),
	}
	return New(append(defaults, opts...)...)
}

type failingBackend struct {
	*MemoryBackend
	failPut, failDelete bool
}

func (f *failingBackend) Put(n models.Note) error {
	if f.failPut {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Put(n)
}

func (f *failingBackend) Delete(id string) error {
	if f.failDelete {
		return errors.New("read-only")
	}
	return f.MemoryBackend.Delete(id)
}

func TestCreate_RejectsEmptyNote(t *testing.T) {
	s := testStore(t)
	for _, d := range []models.Draft{
		{},
		{Title: "   ", Text: "\n\t"},
		{Tags: []string{"only-tags"}},
	} {
		_, err := s.Create(d)
		var empty *apperr.EmptyNoteError
		require.ErrorAs(t, err, &empty, "draft %+v", d)
		assert.ErrorIs(t, err, apperr.ErrEmptyNote)
	}
	assert.Zero(t, s.Len())
}

func TestCreate_AcceptsAudioOnly(t *testing.T) {
	s := testStore(t)
	n, err := s.Create(models.Draft{Audio: audio.NewRef("/audio/x.m4a")})
	require.NoError(t, err)
	assert.Equal(t, models.UntitledTitle, n.Title)
	assert.Equal(t, audio.NewRef("/audio/x.m4a"), n.Audio)
}

func TestCreate_TitleFallbackAndNormalization(t *testing.T) {
	s := testStore(t)
	n, err := s.Create(models.Draft{Title: "", Text: "hello", Tags: nil})
	require.NoError(t, err)
	assert.Equal(t, "Untitled Note", n.Title)
	assert.Equal(t, "hello", n.Text)
	assert.True(t, n.Audio.IsZero())
	assert.NotNil(t, n.Tags)
	assert.Empty(t, n.Tags)

	n, err = s.Create(models.Draft{
		Title: "  Groceries ",
		Text:  "  eggs \n",
		Tags:  []string{" home", "", "home", "errands", "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, "eggs", n.Text)
	assert.Equal(t, []string{"home", "errands"}, n.Tags)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestCreate_NewestFirstAndStableIDs(t *testing.T) {
	s := testStore(t)
	a, err := s.Create(models.Draft{Text: "A"})
	require.NoError(t, err)
	b, err := s.Create(models.Draft{Text: "B"})
	require.NoError(t, err)
	c, err := s.Create(models.Draft{Text: "C"})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, b.ID, c.ID)

	again := s.List()
	assert.Equal(t, list, again)
}

func TestCreate_DefaultIDsAreUnique(t *testing.T) {
	s := New()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n, err := s.Create(models.Draft{Text: "x"})
		require.NoError(t, err)
		require.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
}

func TestCreate_IDCollisionRejected(t *testing.T) {
	s := New(WithIDGenerator(func() string { return "same" }))
	_, err := s.Create(models.Draft{Text: "one"})
	require.NoError(t, err)
	_, err = s.Create(models.Draft{Text: "two"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 1, s.Len())
}

func TestUpdate_RoundTrip(t *testing.T) {
	s := testStore(t)
	_, _ = s.Create(models.Draft{Text: "older"})
	n, err := s.Create(models.Draft{Title: "first", Text: "body", Tags: []string{"a"}})
	require.NoError(t, err)
	_, _ = s.Create(models.Draft{Text: "newer"})

	updated, err := s.Update(n.ID, models.Draft{
		Title: " second ",
		Text:  "changed",
		Tags:  []string{"b", "b", " c "},
		Audio: audio.NewRef("clip"),
	})
	require.NoError(t, err)

	got, ok := s.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, updated, got)
	assert.Equal(t, n.ID, got.ID)
	assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, "changed", got.Text)
	assert.Equal(t, []string{"b", "c"}, got.Tags)
	assert.Equal(t, audio.NewRef("clip"), got.Audio)

	// Position in the collection is unchanged.
	assert.Equal(t, n.ID, s.List()[1].ID)
}

func TestUpdate_Errors(t *testing.T) {
	s := testStore(t)
	_, err := s.Update("missing", models.Draft{})
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf, "not-found wins over empty draft")
	assert.Equal(t, "missing", nf.ID)

	n, err := s.Create(models.Draft{Title: "keep"})
	require.NoError(t, err)
	_, err = s.Update(n.ID, models.Draft{Title: " "})
	assert.ErrorIs(t, err, apperr.ErrEmptyNote)

	got, _ := s.Get(n.ID)
	assert.Equal(t, "keep", got.Title, "rejected update must not change the note")
}

func TestUpdateFunc_AbortsOnError(t *testing.T) {
	s := testStore(t)
	n, _ := s.Create(models.Draft{Title: "x"})
	sentinel := errors.New("precondition failed")
	_, err := s.UpdateFunc(n.ID, func(models.Note) (models.Draft, error) { return models.Draft{}, sentinel })
	assert.ErrorIs(t, err, sentinel)
	got, _ := s.Get(n.ID)
	assert.Equal(t, n, got)
}

func TestDelete_ThenFetch(t *testing.T) {
	s := testStore(t)
	n, err := s.Create(models.Draft{Text: "bye"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(n.ID))
	_, ok := s.Get(n.ID)
	assert.False(t, ok)

	err = s.Delete(n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBackendFailure_LeavesStoreUnchanged(t *testing.T) {
	b := &failingBackend{MemoryBackend: NewMemoryBackend()}
	s := testStore(t, WithBackend(b))
	n, err := s.Create(models.Draft{Title: "stable"})
	require.NoError(t, err)

	b.failPut = true
	_, err = s.Create(models.Draft{Title: "lost"})
	require.Error(t, err)
	_, err = s.Update(n.ID, models.Draft{Title: "changed"})
	require.Error(t, err)
	assert.Len(t, s.List(), 1)
	got, _ := s.Get(n.ID)
	assert.Equal(t, "stable", got.Title)

	b.failDelete = true
	require.Error(t, s.Delete(n.ID))
	_, ok := s.Get(n.ID)
	assert.True(t, ok)
}

func TestListReturnsSnapshot(t *testing.T) {
	s := testStore(t)
	_, _ = s.Create(models.Draft{Title: "t", Tags: []string{"a"}})
	list := s.List()
	list[0].Title = "mutated"
	list[0].Tags[0] = "mutated"

	fresh := s.List()
	assert.Equal(t, "t", fresh[0].Title)
	assert.Equal(t, []string{"a"}, fresh[0].Tags)
}

func TestWritesGoThroughToBackend(t *testing.T) {
	b := NewMemoryBackend()
	s := testStore(t, WithBackend(b))
	n, _ := s.Create(models.Draft{Title: "persisted"})

	stored, ok, err := b.Get(n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n, stored)

	_, _ = s.Update(n.ID, models.Draft{Title: "again"})
	stored, _, _ = b.Get(n.ID)
	assert.Equal(t, "again", stored.Title)

	require.NoError(t, s.Delete(n.ID))
	_, ok, _ = b.Get(n.ID)
	assert.False(t, ok)
}

func TestOpen_LoadsAndOrders(t *testing.T) {
	b := NewMemoryBackend()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = b.Put(models.Note{ID: "old", Title: "old", CreatedAt: t0})
	_ = b.Put(models.Note{ID: "new", Title: "new", CreatedAt: t0.Add(time.Hour)})
	_ = b.Put(models.Note{ID: "bad", CreatedAt: t0.Add(2 * time.Hour)})
	_ = b.Put(models.Note{ID: "messy", Title: " ", Text: " x ", Tags: []string{"a", "a"}, CreatedAt: t0.Add(-time.Hour)})

	var skipped []string
	s, err := Open(WithBackend(b), WithSkipHandler(func(id string, _ error) { skipped = append(skipped, id) }))
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "old", "messy"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, []string{"bad"}, skipped)
	assert.Equal(t, models.UntitledTitle, list[2].Title)
	assert.Equal(t, "x", list[2].Text)
	assert.Equal(t, []string{"a"}, list[2].Tags)
}

func TestRefresh(t *testing.T) {
	b := NewMemoryBackend()
	s := testStore(t, WithBackend(b))
	first, _ := s.Create(models.Draft{Title: "first"})
	second, _ := s.Create(models.Draft{Title: "second"})

	// External edit.
	edited := first
	edited.Title = "edited"
	_ = b.Put(edited)
	change, err := s.Refresh(first.ID)
	require.NoError(t, err)
	assert.Equal(t, Replaced, change)
	got, _ := s.Get(first.ID)
	assert.Equal(t, "edited", got.Title)

	change, _ = s.Refresh(first.ID)
	assert.Equal(t, Unchanged, change)

	// External insert between the two existing notes.
	between := models.Note{ID: "ext", Title: "ext", CreatedAt: first.CreatedAt.Add(time.Millisecond)}
	_ = b.Put(between)
	change, _ = s.Refresh("ext")
	assert.Equal(t, Inserted, change)
	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{second.ID, "ext", first.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	// External delete.
	_ = b.Delete(second.ID)
	change, _ = s.Refresh(second.ID)
	assert.Equal(t, Removed, change)
	assert.Equal(t, 2, s.Len())

	change, _ = s.Refresh("never-existed")
	assert.Equal(t, Unchanged, change)
}

func TestRefresh_KeepsCreatedAtAndPosition(t *testing.T) {
	b := NewMemoryBackend()
	s := testStore(t, WithBackend(b))
	first, _ := s.Create(models.Draft{Title: "first"})
	second, _ := s.Create(models.Draft{Title: "second"})

	for _, created := range []time.Time{{}, second.CreatedAt.Add(time.Hour)} {
		edited := first
		edited.Text = "edited at " + created.String()
		edited.CreatedAt = created
		require.NoError(t, b.Put(edited))

		change, err := s.Refresh(first.ID)
		require.NoError(t, err)
		assert.Equal(t, Replaced, change)
		list := s.List()
		require.Len(t, list, 2)
		assert.Equal(t, []string{second.ID, first.ID}, []string{list[0].ID, list[1].ID})
		assert.Equal(t, first.CreatedAt, list[1].CreatedAt)
		assert.Equal(t, edited.Text, list[1].Text)
	}
}

// gatedBackend pauses its first List after the scan until release is closed.
type gatedBackend struct {
	*MemoryBackend
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func (g *gatedBackend) List() ([]models.Note, error) {
	out, err := g.MemoryBackend.List()
	g.once.Do(func() {
		close(g.listed)
		<-g.release
	})
	return out, err
}

func TestReload_DoesNotLoseConcurrentCreate(t *testing.T) {
	g := &gatedBackend{MemoryBackend: NewMemoryBackend(), listed: make(chan struct{}), release: make(chan struct{})}
	s := testStore(t, WithBackend(g))

	reloaded := make(chan error, 1)
	go func() { reloaded <- s.Reload() }()
	<-g.listed

	created := make(chan models.Note, 1)
	go func() {
		n, err := s.Create(models.Draft{Title: "during reload"})
		assert.NoError(t, err)
		created <- n
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-created:
		t.Fatal("create finished while reload held a stale scan")
	default:
	}
	close(g.release)

	require.NoError(t, <-reloaded)
	n := <-created
	_, ok := s.Get(n.ID)
	assert.True(t, ok, "note created during reload must survive it")
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				n, err := s.Create(models.Draft{Text: fmt.Sprintf("%d-%d", i, j)})
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Update(n.ID, models.Draft{Text: "u", Tags: []string{"x"}}); err != nil {
					t.Error(err)
					return
				}
				for _, got := range s.List() {
					if got.ID == "" || got.Title == "" {
						t.Error("observed a partially written note")
						return
					}
				}
				if j%2 == 0 {
					if err := s.Delete(n.ID); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8*25, s.Len())
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "created", Inserted.String())
	assert.Equal(t, "updated", Replaced.String())
	assert.Equal(t, "deleted", Removed.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
