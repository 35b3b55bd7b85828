// Package tags edits the free-form tag list of a note draft.
//
// Every function is pure: inputs are never mutated and callers re-assign the
// returned slice. Tag equality is case-sensitive.
package tags

import (
	"slices"
	"strings"
)

// Add appends the trimmed input to current. Blank input or a tag already
// present leaves current unchanged.
func Add(current []string, input string) []string {
	tag := strings.TrimSpace(input)
	if tag == "" || slices.Contains(current, tag) {
		return current
	}
	out := make([]string, 0, len(current)+1)
	out = append(out, current...)
	return append(out, tag)
}

// Remove returns current without any entry equal to tag.
func Remove(current []string, tag string) []string {
	if !slices.Contains(current, tag) {
		return current
	}
	out := make([]string, 0, len(current))
	for _, t := range current {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

// Normalize trims every entry, drops blanks and keeps the first occurrence of
// each tag. The result is never nil.
func Normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = Add(out, t)
	}
	return out
}
