// Package audio models recorded clips attached to notes and the capture,
// playback and speech-to-text collaborators the note core talks to.
package audio

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Ref is an opaque reference to an externally recorded clip. The zero value
// means "no clip attached". The content of the reference is never inspected.
type Ref struct {
	uri string
}

// NewRef wraps uri. An empty uri yields the absent reference.
func NewRef(uri string) Ref { return Ref{uri: uri} }

// None returns the absent reference.
func None() Ref { return Ref{} }

// IsZero reports whether no clip is attached.
func (r Ref) IsZero() bool { return r.uri == "" }

// URI returns the wrapped reference and whether one is present.
func (r Ref) URI() (string, bool) { return r.uri, r.uri != "" }

func (r Ref) String() string { return r.uri }

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.uri)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ref{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("audio: decode ref: %w", err)
	}
	*r = NewRef(s)
	return nil
}

func (r Ref) MarshalYAML() (any, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.uri, nil
}

func (r *Ref) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("audio: decode ref: %w", err)
	}
	*r = NewRef(s)
	return nil
}

// Value stores the reference as TEXT, or NULL when absent.
func (r Ref) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.uri, nil
}

// Scan reads a nullable TEXT column.
func (r *Ref) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Ref{}
	case string:
		*r = NewRef(v)
	case []byte:
		*r = NewRef(string(v))
	default:
		return fmt.Errorf("audio: cannot scan %T into Ref", src)
	}
	return nil
}
