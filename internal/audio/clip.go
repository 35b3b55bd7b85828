package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"
)

const (
	// ClipDir is the vault-relative directory holding stored clips.
	ClipDir = "audio"
	// URLPrefix is prepended to clip file names to form the returned URI.
	URLPrefix = "/audio/"
)

var (
	ErrUnknownHandle = errors.New("audio: unknown recording handle")
	ErrClipTooLarge  = errors.New("audio: clip too large")
)

// BlobWriter atomically persists content at a vault-relative path.
type BlobWriter interface {
	Write(path string, content []byte) error
}

// ClipRecorder is a Recorder whose bytes arrive from a remote client (for
// example an HTTP upload). Bytes are buffered per handle and written to the
// vault when the recording is stopped.
type ClipRecorder struct {
	dst      BlobWriter
	ext      string
	maxBytes int64

	mu      sync.Mutex
	pending map[Handle]*bytes.Buffer
}

// NewClipRecorder creates a recorder writing clips with extension ext
// (e.g. ".m4a"). maxBytes <= 0 disables the size limit.
func NewClipRecorder(dst BlobWriter, ext string, maxBytes int64) *ClipRecorder {
	return &ClipRecorder{
		dst:      dst,
		ext:      ext,
		maxBytes: maxBytes,
		pending:  make(map[Handle]*bytes.Buffer),
	}
}

// StartRecording opens a new clip buffer.
func (c *ClipRecorder) StartRecording(_ context.Context) (Handle, error) {
	h := Handle(uuid.NewString())
	c.mu.Lock()
	c.pending[h] = &bytes.Buffer{}
	c.mu.Unlock()
	return h, nil
}

// Feed appends everything read from r to the clip identified by h.
func (c *ClipRecorder) Feed(h Handle, r io.Reader) (int64, error) {
	c.mu.Lock()
	buf, ok := c.pending[h]
	c.mu.Unlock()
	if !ok {
		return 0, ErrUnknownHandle
	}

	src := r
	if c.maxBytes > 0 {
		src = io.LimitReader(r, c.maxBytes-int64(buf.Len())+1)
	}
	var chunk bytes.Buffer
	n, err := io.Copy(&chunk, src)
	if err != nil {
		return n, fmt.Errorf("audio: read clip: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[h]; !ok {
		return 0, ErrUnknownHandle
	}
	if c.maxBytes > 0 && int64(buf.Len())+n > c.maxBytes {
		delete(c.pending, h)
		return n, ErrClipTooLarge
	}
	buf.Write(chunk.Bytes())
	return n, nil
}

// StopRecording persists the clip and returns its URI.
func (c *ClipRecorder) StopRecording(_ context.Context, h Handle) (string, error) {
	c.mu.Lock()
	buf, ok := c.pending[h]
	delete(c.pending, h)
	c.mu.Unlock()
	if !ok {
		return "", ErrUnknownHandle
	}

	name := string(h) + c.ext
	if err := c.dst.Write(path.Join(ClipDir, name), buf.Bytes()); err != nil {
		return "", fmt.Errorf("audio: store clip: %w", err)
	}
	return URLPrefix + name, nil
}

// Discard drops an unfinished recording.
func (c *ClipRecorder) Discard(h Handle) {
	c.mu.Lock()
	delete(c.pending, h)
	c.mu.Unlock()
}

// Pending returns the number of unfinished recordings.
func (c *ClipRecorder) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
