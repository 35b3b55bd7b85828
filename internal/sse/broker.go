// Package sse broadcasts note changes to connected clients as Server-Sent
// Events.
//
// Every event carries a sequence id. A reconnecting client that sends
// Last-Event-ID first receives the retained events it missed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeNoteCreated  = "note.created"
	TypeNoteUpdated  = "note.updated"
	TypeNoteDeleted  = "note.deleted"
	TypeNotesChanged = "notes.changed"
)

var noteEventTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

var noteEventTypeSet = map[string]struct{}{
	TypeNoteCreated: {},
	TypeNoteUpdated: {},
	TypeNoteDeleted: {},
}

const (
	clientBuffer     = 64
	defaultReplay    = 128
	defaultKeepAlive = 15 * time.Second
	retryMillis      = 3000
)

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is an encoded event and its sequence id.
type frame struct {
	id  uint64
	raw []byte
}

type subscribeReq struct {
	ch chan []byte
	// after is the Last-Event-ID the client reported; 0 means a fresh stream.
	after uint64
}

// Broker fans events out to subscribed clients.
//
// A single loop goroutine owns the client set, the replay ring, the sequence
// counter and the notes.changed throttle; public methods talk to it over
// channels.
type Broker struct {
	changedMin time.Duration
	keepAlive  time.Duration
	replay     int

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of comment lines sent to idle clients.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// WithReplay sets how many recent events are retained for reconnecting
// clients. Zero disables replay.
func WithReplay(n int) Option {
	return func(b *Broker) { b.replay = max(n, 0) }
}

// NewBroker starts a broker that emits at most one notes.changed per throttle.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		changedMin:    throttle,
		keepAlive:     defaultKeepAlive,
		replay:        defaultReplay,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]frame, 0, b.replay)
	var seq uint64
	var lastChanged time.Time

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client; it can catch up with Last-Event-ID.
		}
	}

	broadcast := func(event Event) {
		raw, err := encode(seq+1, event)
		if err != nil {
			return
		}
		seq++
		if b.replay > 0 {
			if len(history) == b.replay {
				history = append(history[:0], history[1:]...)
			}
			history = append(history, frame{id: seq, raw: raw})
		}
		for ch := range clients {
			send(ch, raw)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			if req.after > 0 {
				for _, f := range history {
					if f.id > req.after {
						send(req.ch, f.raw)
					}
				}
			}
			clients[req.ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			if event.Type != TypeNotesChanged {
				broadcast(event)
				if _, ok := noteEventTypeSet[event.Type]; !ok {
					continue
				}
			}
			if now := time.Now(); now.Sub(lastChanged) >= b.changedMin {
				lastChanged = now
				broadcast(Event{Type: TypeNotesChanged, Data: struct{}{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a client that first receives the retained events with
// an id greater than lastID.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	size := clientBuffer
	if lastID > 0 {
		// Room for the whole replay on top of live events.
		size += b.replay
	}
	ch := make(chan []byte, size)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- subscribeReq{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all clients. Note events are followed by a
// throttled notes.changed.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent announces a note change. kind is created, updated or
// deleted; anything else is ignored.
func (b *Broker) PublishNoteEvent(kind, id string) {
	typ, ok := noteEventTypes[kind]
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, Data: map[string]string{"id": id}})
}

// ServeHTTP is the event stream endpoint.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
