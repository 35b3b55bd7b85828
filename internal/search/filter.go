// Package search filters a note collection by a free-text query.
package search

import (
	"slices"
	"strings"

	"github.com/starford/quill/internal/models"
)

// Filter returns the notes whose title, text or any tag contains query,
// ignoring case. Order is preserved. A blank query returns notes as is.
func Filter(notes []models.Note, query string) []models.Note {
	if strings.TrimSpace(query) == "" {
		return notes
	}
	q := strings.ToLower(query)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if Matches(n, q) {
			out = append(out, n)
		}
	}
	return out
}

// Matches reports whether n matches the already lower-cased query q.
func Matches(n models.Note, q string) bool {
	if strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Text), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// ByTag returns the notes carrying tag exactly. A blank tag returns notes as is.
func ByTag(notes []models.Note, tag string) []models.Note {
	if tag == "" {
		return notes
	}
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if slices.Contains(n.Tags, tag) {
			out = append(out, n)
		}
	}
	return out
}
