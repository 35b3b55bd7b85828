package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func collect(t *testing.T, tr Transcriber) []string {
	t.Helper()
	ch, err := tr.Transcribe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for frag := range ch {
		got = append(got, frag)
	}
	return got
}

func TestFeed_DeliversInOrderThenCloses(t *testing.T) {
	f := NewFeed(3)
	ctx := context.Background()
	for _, s := range []string{"buy", "oat", "milk"} {
		if err := f.Push(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()
	f.Close()

	got := collect(t, f)
	if len(got) != 3 || got[0] != "buy" || got[2] != "milk" {
		t.Errorf("fragments = %v", got)
	}
	if err := f.Push(ctx, "late"); !errors.Is(err, ErrFeedClosed) {
		t.Errorf("push after close = %v", err)
	}
}

func TestFeed_PushBlocksUntilRead(t *testing.T) {
	f := NewFeed(0)
	ch, _ := f.Transcribe(context.Background())

	pushed := make(chan error, 1)
	go func() { pushed <- f.Push(context.Background(), "hello") }()

	select {
	case frag := <-ch:
		if frag != "hello" {
			t.Errorf("fragment = %q", frag)
		}
	case <-time.After(time.Second):
		t.Fatal("fragment not delivered")
	}
	if err := <-pushed; err != nil {
		t.Errorf("push = %v", err)
	}
}

func TestFeed_CloseReleasesBlockedPush(t *testing.T) {
	f := NewFeed(0)
	pushed := make(chan error, 1)
	go func() { pushed <- f.Push(context.Background(), "stuck") }()

	time.Sleep(10 * time.Millisecond)
	f.Close()
	select {
	case err := <-pushed:
		if !errors.Is(err, ErrFeedClosed) {
			t.Errorf("push = %v, want ErrFeedClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("push still blocked after Close")
	}
}

func TestFeed_PushHonoursContext(t *testing.T) {
	f := NewFeed(0)
	defer f.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Push(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("push = %v, want context.Canceled", err)
	}
}
