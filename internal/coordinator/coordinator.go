// Package coordinator serializes every mutation of an auction. Each auction
// has its own FIFO lane; different auctions never wait on each other.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/metrics"
)

// Coordinator hands out per-auction exclusivity
type Coordinator struct {
	mu               sync.Mutex
	lanes            map[string]*semaphore.Weighted
	admissionTimeout time.Duration
}

// New creates a Coordinator. A positive admissionTimeout bounds how long a
// caller waits to be admitted, on top of any deadline already on its context.
func New(admissionTimeout time.Duration) *Coordinator {
	return &Coordinator{
		lanes:            make(map[string]*semaphore.Weighted),
		admissionTimeout: admissionTimeout,
	}
}

func (c *Coordinator) lane(auctionID string) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lanes[auctionID]
	if !ok {
		// weight 1 makes the semaphore a FIFO mutex
		l = semaphore.NewWeighted(1)
		c.lanes[auctionID] = l
	}
	return l
}

// Do runs fn inside auctionID's critical section. Callers are admitted in
// arrival order. If ctx ends before admission, fn never runs and the error
// wraps biddingerrors.ErrAdmissionTimeout. Once admitted, fn runs to
// completion regardless of ctx.
func (c *Coordinator) Do(ctx context.Context, auctionID string, fn func() error) error {
	if c.admissionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.admissionTimeout)
		defer cancel()
	}

	lane := c.lane(auctionID)
	start := time.Now()
	if err := lane.Acquire(ctx, 1); err != nil {
		metrics.AdmissionTimeouts.Inc()
		return fmt.Errorf("coordinator: auction %s: %w (%v)", auctionID, biddingerrors.ErrAdmissionTimeout, err)
	}
	defer lane.Release(1)
	metrics.AdmissionWait.Observe(time.Since(start).Seconds())

	return fn()
}
