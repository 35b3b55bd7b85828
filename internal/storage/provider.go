// Package storage persists notes and audio clips as files under a vault
// directory.
package storage

import "time"

// Entry describes one file found by Provider.List.
type Entry struct {
	Path     string // relative to the vault root, slash separated
	Size     int64
	Modified time.Time
}

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// List returns every file directly under dir whose name ends in ext.
	// A missing dir yields no entries.
	List(dir, ext string) ([]Entry, error)
	Read(path string) ([]byte, error)
	// Stat describes the file at path.
	Stat(path string) (Entry, error)
	// Write atomically replaces the file at path, creating parent dirs.
	Write(path string, content []byte) error
	// Delete removes the file at path. Deleting a missing file is not an error.
	Delete(path string) error
}
