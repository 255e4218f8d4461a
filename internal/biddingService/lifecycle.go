package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/auctionstate"
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/metrics"
	"auction-engine/internal/models"
	"auction-engine/utils"
)

// ForceStart opens an upcoming auction for bidding before its start time
func (s *BiddingService) ForceStart(ctx context.Context, auctionID string) (models.Snapshot, error) {
	return s.transition(ctx, auctionID, models.StatusActive)
}

// CloseAuction ends an active auction before its end time
func (s *BiddingService) CloseAuction(ctx context.Context, auctionID string) (models.Snapshot, error) {
	return s.transition(ctx, auctionID, models.StatusEnded)
}

// CancelAuction cancels an upcoming or active auction regardless of its window
func (s *BiddingService) CancelAuction(ctx context.Context, auctionID string) (models.Snapshot, error) {
	return s.transition(ctx, auctionID, models.StatusCancelled)
}

// SettleAuction marks an ended auction sold once its winner has paid
func (s *BiddingService) SettleAuction(ctx context.Context, auctionID, bidderID string) (models.Snapshot, error) {
	l, err := s.lane(auctionID)
	if err != nil {
		return models.Snapshot{}, err
	}
	var snap models.Snapshot
	err = s.coord.Do(ctx, auctionID, func() error {
		current := l.ledger.Snapshot()
		if err := auctionstate.Transition(current.Status, models.StatusSold); err != nil {
			snap = current
			return fmt.Errorf("service: auction %s: %w", auctionID, err)
		}
		if current.HighestBidderID == "" || current.HighestBidderID != bidderID {
			snap = current
			return fmt.Errorf("service: auction %s settled by %s: %w", auctionID, bidderID, biddingerrors.ErrNotWinner)
		}
		_, snap, err = s.applyTransitionLocked(l, models.StatusSold, s.clock.Now())
		return err
	})
	return snap, err
}

func (s *BiddingService) transition(ctx context.Context, auctionID string, to models.AuctionStatus) (models.Snapshot, error) {
	l, err := s.lane(auctionID)
	if err != nil {
		return models.Snapshot{}, err
	}
	var snap models.Snapshot
	err = s.coord.Do(ctx, auctionID, func() error {
		var err error
		_, snap, err = s.applyTransitionLocked(l, to, s.clock.Now())
		return err
	})
	return snap, err
}

// TickScheduler applies every time-driven transition due at now. Each auction
// is re-evaluated inside its own critical section, so a sweep never races a
// last-second bid, and sweeping the same instant twice changes nothing the
// second time. A zero now means the service clock.
func (s *BiddingService) TickScheduler(ctx context.Context, now time.Time) ([]models.Transition, error) {
	if now.IsZero() {
		now = s.clock.Now()
	}
	var (
		transitions []models.Transition
		errs        []error
	)
	for _, l := range s.allLanes() {
		snap := l.ledger.Snapshot()
		if len(auctionstate.Due(snap.Status, snap.AuctionStartTime, snap.AuctionEndTime, now)) == 0 {
			continue
		}
		trs, err := s.sweepAuction(ctx, l, now)
		transitions = append(transitions, trs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return transitions, errors.Join(errs...)
}

func (s *BiddingService) sweepAuction(ctx context.Context, l *auctionLane, now time.Time) ([]models.Transition, error) {
	var transitions []models.Transition
	err := s.coord.Do(ctx, l.ledger.ID(), func() error {
		var err error
		transitions, err = s.catchUpLocked(l, now)
		return err
	})
	return transitions, err
}

// catchUpLocked applies the time-driven transitions due at now, so a bid
// never lands in a window that has already closed. Caller holds the
// auction's critical section.
func (s *BiddingService) catchUpLocked(l *auctionLane, now time.Time) ([]models.Transition, error) {
	var transitions []models.Transition
	snap := l.ledger.Snapshot()
	for _, to := range auctionstate.Due(snap.Status, snap.AuctionStartTime, snap.AuctionEndTime, now) {
		tr, _, err := s.applyTransitionLocked(l, to, now)
		if err != nil {
			return transitions, err
		}
		transitions = append(transitions, tr)
	}
	return transitions, nil
}

// applyTransitionLocked moves the ledger to status to and emits the matching
// events. Caller holds the auction's critical section.
func (s *BiddingService) applyTransitionLocked(l *auctionLane, to models.AuctionStatus, now time.Time) (models.Transition, models.Snapshot, error) {
	from := l.ledger.Snapshot().Status
	snap, err := l.ledger.Transition(to, now)
	if err != nil {
		return models.Transition{}, snap, err
	}
	metrics.Transitions.WithLabelValues(string(to)).Inc()
	s.persist(l, nil)

	switch to {
	case models.StatusActive:
		s.emit(l, models.EventAuctionStarting, nil, snap, s.audience(snap)...)
	case models.StatusEnded:
		s.closeOutLocked(l, snap)
	case models.StatusCancelled:
		l.book.DeactivateAll()
		s.emit(l, models.EventAuctionCancelled, nil, snap, s.participants(l, snap)...)
	case models.StatusSold:
		s.emit(l, models.EventAuctionSold, nil, snap, snap.HighestBidderID, snap.SellerID)
	}

	utils.Info("service: auction status changed", map[string]any{
		"auction_id": snap.AuctionID,
		"from":       from,
		"to":         to,
	})
	return models.Transition{AuctionID: snap.AuctionID, From: from, To: to, At: now}, snap, nil
}

// closeOutLocked retires standing instructions and announces the result of
// an auction that just ended
func (s *BiddingService) closeOutLocked(l *auctionLane, snap models.Snapshot) {
	l.book.DeactivateAll()
	s.emit(l, models.EventAuctionEnded, nil, snap, s.participants(l, snap)...)
	if snap.HighestBidderID != "" {
		s.emit(l, models.EventAuctionWon, nil, snap, snap.HighestBidderID)
	}
}
