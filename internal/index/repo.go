package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
)

const noteColumns = `id, title, text, tags, audio_uri, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (models.Note, error) {
	var (
		n       models.Note
		tagsRaw string
		ref     audio.Ref
		created string
	)
	if err := s.Scan(&n.ID, &n.Title, &n.Text, &tagsRaw, &ref, &created); err != nil {
		return models.Note{}, err
	}
	if err := json.Unmarshal([]byte(tagsRaw), &n.Tags); err != nil {
		return models.Note{}, fmt.Errorf("index: note %s tags: %w", n.ID, err)
	}
	t, err := parseTime(created)
	if err != nil {
		return models.Note{}, err
	}
	n.Audio = ref
	n.CreatedAt = t
	return n, nil
}

// Get returns note id; ok is false when no row exists.
func (db *DB) Get(id string) (models.Note, bool, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, false, nil
	}
	if err != nil {
		return models.Note{}, false, fmt.Errorf("index: get note %s: %w", id, err)
	}
	return n, true, nil
}

// Put inserts or replaces a note.
func (db *DB) Put(n models.Note) error {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("index: encode tags: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			text       = excluded.text,
			tags       = excluded.tags,
			audio_uri  = excluded.audio_uri,
			created_at = excluded.created_at
	`, n.ID, n.Title, n.Text, string(tagsJSON), n.Audio, formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("index: put note %s: %w", n.ID, err)
	}
	return nil
}

// Delete removes note id. Deleting a missing note is not an error.
func (db *DB) Delete(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note %s: %w", id, err)
	}
	return nil
}

// List returns every note, newest first.
func (db *DB) List() ([]models.Note, error) {
	rows, err := db.conn.Query(`SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("index: list notes: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
