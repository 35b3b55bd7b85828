package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedClosed is returned by Push after Close.
var ErrFeedClosed = errors.New("audio: transcript feed closed")

// Feed is a Transcriber whose fragments are pushed in by the caller, for
// recognition that runs on the client and arrives over the network.
// A Feed has a single consumer.
type Feed struct {
	mu     sync.RWMutex
	ch     chan string
	done   chan struct{}
	once   sync.Once
	closed bool
}

// NewFeed returns an open feed that holds up to buffer unread fragments.
func NewFeed(buffer int) *Feed {
	return &Feed{
		ch:   make(chan string, max(buffer, 0)),
		done: make(chan struct{}),
	}
}

// Push hands fragment to the listener, blocking while the buffer is full.
func (f *Feed) Push(ctx context.Context, fragment string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFeedClosed
	}
	select {
	case f.ch <- fragment:
		return nil
	case <-f.done:
		return ErrFeedClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Fragments already pushed are still delivered.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.done)
		f.mu.Lock()
		f.closed = true
		close(f.ch)
		f.mu.Unlock()
	})
}

// Transcribe returns the fragment stream. It is closed by Close.
func (f *Feed) Transcribe(context.Context) (<-chan string, error) {
	return f.ch, nil
}
