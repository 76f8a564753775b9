package payment

import (
	"context"
	"log"
	"time"
)

// ExpirySweeper periodically fails over pending checkout sessions that never
// received a gateway event. The sweep uses the same conditional update as the
// webhook path, so it can never race a confirmation into a wrong state.
type ExpirySweeper struct {
	service  *Service
	maxAge   time.Duration
	interval time.Duration
}

// NewExpirySweeper creates a sweeper that expires pending sessions older than
// maxAge, checking every interval.
func NewExpirySweeper(service *Service, maxAge, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{service: service, maxAge: maxAge, interval: interval}
}

// Run blocks until the context is cancelled.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Println("Checkout expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.service.ExpireStaleSessions(ctx, w.maxAge)
			if err != nil {
				log.Printf("Checkout expiry sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Expired %d stale checkout sessions", n)
			}
		}
	}
}
