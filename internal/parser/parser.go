// Package parser converts notes to and from Markdown files with YAML
// frontmatter.
//
//	---
//	id: 0190c2f4-...
//	title: Groceries
//	tags:
//	  - home
//	audio: /audio/3f1c.m4a
//	created: 2026-10-19T08:00:00Z
//	---
//	milk, eggs
package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
)

const delim = "---"

type frontmatter struct {
	ID      string    `yaml:"id"`
	Title   string    `yaml:"title"`
	Tags    []string  `yaml:"tags,omitempty"`
	Audio   audio.Ref `yaml:"audio,omitempty"`
	Created time.Time `yaml:"created"`
}

// Encode renders n as Markdown. The body is the note text.
func Encode(n models.Note) ([]byte, error) {
	fm, err := yaml.Marshal(frontmatter{
		ID:      n.ID,
		Title:   n.Title,
		Tags:    n.Tags,
		Audio:   n.Audio,
		Created: n.CreatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("parser: encode %s: %w", n.ID, err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n")
	if n.Text != "" {
		buf.WriteString(n.Text)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Decode reads a note back. A file without frontmatter, or with frontmatter
// that is not valid YAML, is read as body only: the title then falls back to
// the first H1 heading and the id is left for the caller to fill in.
func Decode(data []byte) (models.Note, error) {
	block, body, ok := splitFrontmatter(data)
	var fm frontmatter
	if ok {
		if err := yaml.Unmarshal(block, &fm); err != nil {
			body = string(data)
			fm = frontmatter{}
		}
	}
	text := strings.TrimSpace(body)
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = headingTitle(text)
	}
	return models.Note{
		ID:        strings.TrimSpace(fm.ID),
		Title:     title,
		Text:      text,
		Tags:      fm.Tags,
		Audio:     fm.Audio,
		CreatedAt: fm.Created.UTC(),
	}, nil
}

// splitFrontmatter separates the YAML block between leading --- lines from
// the body. ok is false when there is no complete block.
func splitFrontmatter(data []byte) (block []byte, body string, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), false
	}
	after := rest[idx+1+len(delim):]
	return rest[:idx], strings.TrimLeft(string(after), "\n\r"), true
}

func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
