// Package background contains services that run independently of the
// HTTP request-response cycle.
package background

import (
	"context"
	"log"
	"time"

	"github.com/user/techblog-go/session"
)

const sweepTimeout = 30 * time.Second

// StartSessionSweeper launches a goroutine that periodically deletes
// expired rows from the session store. Closing stopChan shuts it down;
// the returned function blocks until the goroutine has exited.
func StartSessionSweeper(store session.Store, interval time.Duration, stopChan <-chan struct{}) (wait func()) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer log.Println("Session sweeper stopped.")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("Session sweeper started (interval %s).", interval)
		for {
			select {
			case <-ticker.C:
				sweep(store)
			case <-stopChan:
				log.Println("Session sweeper: stop signal received.")
				return
			}
		}
	}()

	return func() { <-done }
}

func sweep(store session.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	deleted, err := store.DeleteExpired(ctx)
	if err != nil {
		log.Printf("Session sweeper: failed to delete expired sessions: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Session sweeper: deleted %d expired session(s).", deleted)
	}
}
