package feed

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBroadcaster_PublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()

	_, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()
	if b.SubscriberCount() != 2 {
		t.Fatalf("want 2 subscribers, got %d", b.SubscriberCount())
	}

	b.Publish(NewEvent(EventPostCreated, map[string]int{"id": 1}))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventPostCreated {
				t.Fatalf("subscriber %d: unexpected type %s", i, ev.Type)
			}
			if ev.Data != `{"id":1}` {
				t.Fatalf("subscriber %d: unexpected data %s", i, ev.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()

	b.Unsubscribe(id)
	if b.SubscriberCount() != 0 {
		t.Fatalf("want 0 subscribers, got %d", b.SubscriberCount())
	}
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after Unsubscribe")
	}

	// A second Unsubscribe of the same id is a no-op.
	b.Unsubscribe(id)
}

func TestBroadcaster_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster()
	b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		// More events than the subscriber buffer holds.
		for i := 0; i < 100; i++ {
			b.Publish(NewEvent(EventPostUpdated, map[string]int{"id": i}))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestHandleEvents_StreamsPublishedEvents(t *testing.T) {
	b := NewBroadcaster()
	handler := b.HandleEvents()

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/api/feed/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	served := make(chan struct{})
	go func() {
		defer close(served)
		handler(w, r)
	}()

	// Wait for the subscription to land, then publish and disconnect.
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.Publish(NewEvent(EventPostDeleted, map[string]int{"id": 3}))
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after the client disconnected")
	}

	if b.SubscriberCount() != 0 {
		t.Fatalf("handler should unsubscribe on exit, got %d", b.SubscriberCount())
	}

	resp := w.Result()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	if !strings.Contains(out, ": connected") {
		t.Fatalf("missing connect preamble in %q", out)
	}
	if !strings.Contains(out, "event: "+EventPostDeleted) || !strings.Contains(out, `data: {"id":3}`) {
		t.Fatalf("published event missing from stream: %q", out)
	}
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	ev := NewEvent(EventPostCreated, make(chan int))
	if ev.Data != "{}" {
		t.Fatalf("want fallback {}, got %q", ev.Data)
	}
}
