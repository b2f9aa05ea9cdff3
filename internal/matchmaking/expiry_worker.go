package matchmaking

import (
	"context"
	"log"
	"time"
)

// StartExpiryWorker periodically drops waiting rows older than maxAge, so an
// abandoned queue leg cannot be claimed days later. Runs until ctx is done.
func StartExpiryWorker(ctx context.Context, store Store, maxAge time.Duration, poll time.Duration) {
	if poll <= 0 {
		poll = time.Minute
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	log.Printf("[MATCH] queue expiry worker started (max age %v, poll %v)", maxAge, poll)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCH] queue expiry worker stopped")
			return
		case <-ticker.C:
			n, err := store.ExpireWaiting(ctx, time.Now().Add(-maxAge))
			if err != nil {
				log.Printf("[MATCH] failed to expire waiting rows: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[MATCH] expired %d stale waiting rows", n)
			}
		}
	}
}
