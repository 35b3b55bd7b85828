package audio

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by collaborators that are not present on this platform.
var ErrUnavailable = errors.New("audio: capability unavailable")

// Handle identifies an in-progress recording.
type Handle string

// Recorder captures a clip and hands back a reference to it.
type Recorder interface {
	StartRecording(ctx context.Context) (Handle, error)
	StopRecording(ctx context.Context, h Handle) (string, error)
}

// Player plays a clip by reference. Callers do not wait for playback to end.
type Player interface {
	Play(ctx context.Context, uri string) error
}

// Transcriber produces an append-only stream of recognised text fragments.
// The channel is closed when recognition ends or ctx is cancelled.
type Transcriber interface {
	Transcribe(ctx context.Context) (<-chan string, error)
}

// Unavailable is the null object for every audio collaborator.
type Unavailable struct{}

func (Unavailable) StartRecording(context.Context) (Handle, error) { return "", ErrUnavailable }

func (Unavailable) StopRecording(context.Context, Handle) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Play(context.Context, string) error { return ErrUnavailable }

func (Unavailable) Transcribe(context.Context) (<-chan string, error) {
	ch := make(chan string)
	close(ch)
	return ch, ErrUnavailable
}

// Capabilities bundles the collaborators selected at startup, so call sites
// never branch on whether a feature exists.
type Capabilities struct {
	Recorder    Recorder
	Player      Player
	Transcriber Transcriber
}

// Disabled returns capabilities where every collaborator is Unavailable.
func Disabled() Capabilities {
	u := Unavailable{}
	return Capabilities{Recorder: u, Player: u, Transcriber: u}
}

// Select returns caps with any nil collaborator replaced by Unavailable.
func Select(caps Capabilities) Capabilities {
	u := Unavailable{}
	if caps.Recorder == nil {
		caps.Recorder = u
	}
	if caps.Player == nil {
		caps.Player = u
	}
	if caps.Transcriber == nil {
		caps.Transcriber = u
	}
	return caps
}
