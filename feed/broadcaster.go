// Package feed streams post activity to connected clients over Server-Sent
// Events. The Broadcaster fans each published event out to every subscriber;
// slow subscribers are skipped rather than allowed to block publishers.
package feed

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// subscriber holds the delivery channel for one connected client.
type subscriber struct {
	events chan Event
}

// Broadcaster manages SSE subscribers and event fan-out.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a new subscriber and returns its id and event channel.
// The channel is buffered; Publish drops events for subscribers whose buffer
// is full.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	sub := &subscriber{events: make(chan Event, 32)}
	b.subscribers[id] = sub
	return id, sub.events
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.events)
		delete(b.subscribers, id)
	}
}

// Publish delivers the event to every subscriber. Non-blocking: a
// subscriber that cannot keep up misses the event.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			log.Printf("feed: dropping event %s for slow subscriber %s", event.Type, id)
		}
	}
}

// SubscriberCount reports the number of connected subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// HandleEvents godoc
// @Summary Subscribe to the post event stream
// @Description Streams post create/update/delete events as Server-Sent Events.
// @Tags feed
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /api/feed/events [get]
func (b *Broadcaster) HandleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		id, events := b.Subscribe()
		defer b.Unsubscribe(id)

		// Tell the client the stream is live before the first event.
		fmt.Fprintf(w, ": connected\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
				flusher.Flush()
			}
		}
	}
}
