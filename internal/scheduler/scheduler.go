// Package scheduler periodically sweeps all auctions and fires the phase
// changes whose time has come.
package scheduler

import (
	"context"
	"time"

	"auction-engine/internal/clock"
	"auction-engine/internal/models"
	"auction-engine/utils"
)

// Sweeper applies every time-driven transition due at now. Calling it twice
// for the same instant must be harmless.
type Sweeper interface {
	TickScheduler(ctx context.Context, now time.Time) ([]models.Transition, error)
}

// Scheduler drives a Sweeper on a fixed interval
type Scheduler struct {
	sweeper  Sweeper
	clock    clock.Clock
	interval time.Duration
}

func New(sweeper Sweeper, clk clock.Clock, interval time.Duration) *Scheduler {
	return &Scheduler{sweeper: sweeper, clock: clk, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Each sweep compares auctions against the current time rather than counting
// ticks, so a paused or restarted process catches up on its first sweep.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs a single sweep at the clock's current time
func (s *Scheduler) Tick(ctx context.Context) []models.Transition {
	now := s.clock.Now()
	transitions, err := s.sweeper.TickScheduler(ctx, now)
	if err != nil {
		utils.Error("scheduler: sweep finished with errors", map[string]any{
			"now":   now.Format(time.RFC3339),
			"error": err.Error(),
		})
	}
	for _, t := range transitions {
		utils.Info("scheduler: auction status changed", map[string]any{
			"auction_id": t.AuctionID,
			"from":       t.From,
			"to":         t.To,
		})
	}
	return transitions
}
