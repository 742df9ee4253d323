package background

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/user/techblog-go/session"
)

// countingStore records how many sessions DeleteExpired reported removing,
// so the test observes the sweeper's work rather than the store's own lazy
// expiry in Get.
type countingStore struct {
	session.Store
	mu      sync.Mutex
	removed int64
}

func (c *countingStore) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := c.Store.DeleteExpired(ctx)
	c.mu.Lock()
	c.removed += n
	c.mu.Unlock()
	return n, err
}

func (c *countingStore) totalRemoved() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

func TestSessionSweeper_DeletesExpiredSessions(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore(-time.Minute)}
	ctx := context.Background()
	store.Create(ctx, 1, "alice")
	store.Create(ctx, 2, "bob")

	stopChan := make(chan struct{})
	wait := StartSessionSweeper(store, 10*time.Millisecond, stopChan)
	defer func() {
		close(stopChan)
		wait()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.totalRemoved() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper removed %d of 2 expired sessions", store.totalRemoved())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionSweeper_StopsOnSignal(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)

	stopChan := make(chan struct{})
	wait := StartSessionSweeper(store, 10*time.Millisecond, stopChan)

	close(stopChan)

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after the stop signal")
	}
}

func TestSessionSweeper_LeavesLiveSessions(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	ctx := context.Background()
	sess, _ := store.Create(ctx, 1, "alice")

	stopChan := make(chan struct{})
	wait := StartSessionSweeper(store, 10*time.Millisecond, stopChan)

	time.Sleep(50 * time.Millisecond)
	close(stopChan)
	wait()

	if _, err := store.Get(ctx, sess.Token); err != nil {
		t.Fatalf("live session should survive sweeping, got %v", err)
	}
}
