package tags

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		current []string
		input   string
		want    []string
	}{
		{"trims and appends", nil, "  work  ", []string{"work"}},
		{"appends at end", []string{"a"}, "b", []string{"a", "b"}},
		{"duplicate is no-op", []string{"a", "b"}, "a", []string{"a", "b"}},
		{"duplicate after trim", []string{"a"}, " a ", []string{"a"}},
		{"blank is no-op", []string{"a"}, "   ", []string{"a"}},
		{"case sensitive", []string{"Work"}, "work", []string{"Work", "work"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Add(tt.current, tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdd_DoesNotMutateInput(t *testing.T) {
	current := make([]string, 1, 4)
	current[0] = "a"
	got := Add(current, "b")
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, []string{"a"}, current)
	assert.Equal(t, "", current[:2][1], "backing array must not be written")
}

func TestAdd_Idempotent(t *testing.T) {
	once := Add(nil, "  work  ")
	twice := Add(once, "work")
	assert.Equal(t, []string{"work"}, once)
	assert.Equal(t, once, twice)
}

func TestRemove(t *testing.T) {
	current := []string{"a", "b", "a", "c"}
	assert.Equal(t, []string{"b", "c"}, Remove(current, "a"))
	assert.Equal(t, []string{"a", "b", "a", "c"}, current, "input untouched")
	assert.Equal(t, current, Remove(current, "zzz"))
	assert.Equal(t, current, Remove(current, "A"), "exact match only")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Normalize([]string{" x", "", "y", "x ", "  "}))
	assert.NotNil(t, Normalize(nil))
	assert.Empty(t, Normalize(nil))
}

func TestProperties(t *testing.T) {
	tagGen := rapid.StringMatching(`[ ]{0,2}[a-zA-Z]{0,6}[ ]{0,2}`)

	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOf(tagGen).Draw(t, "tags")
		norm := Normalize(in)

		seen := map[string]bool{}
		for _, tag := range norm {
			if tag == "" || tag != strings.TrimSpace(tag) {
				t.Fatalf("unnormalized entry %q in %q", tag, norm)
			}
			if seen[tag] {
				t.Fatalf("duplicate %q in %q", tag, norm)
			}
			seen[tag] = true
		}
		if !slices.Equal(Normalize(norm), norm) {
			t.Fatalf("Normalize not idempotent on %q", norm)
		}

		input := tagGen.Draw(t, "input")
		added := Add(norm, input)
		if !slices.Equal(Add(added, input), added) {
			t.Fatalf("adding %q twice changed the list", input)
		}
		if slices.Contains(Remove(added, strings.TrimSpace(input)), strings.TrimSpace(input)) {
			t.Fatalf("Remove left %q behind", input)
		}
	})
}
