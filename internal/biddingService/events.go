package bidding

import (
	"context"

	"auction-engine/internal/metrics"
	"auction-engine/internal/models"
	"auction-engine/utils"
)

func (s *BiddingService) emit(l *auctionLane, kind models.EventKind, entry *models.BidEntry, snap models.Snapshot, recipients ...string) {
	s.events.Publish(models.Event{
		ID:         utils.GenerateID(),
		AuctionID:  l.ledger.ID(),
		Kind:       kind,
		Recipients: dedupe(recipients),
		Entry:      entry,
		Snapshot:   snap,
		OccurredAt: s.clock.Now(),
	})
}

// audience is the seller plus everyone watching the auction
func (s *BiddingService) audience(snap models.Snapshot) []string {
	return append([]string{snap.SellerID}, snap.WatchlistUsers...)
}

// participants is the audience plus everyone who ever bid
func (s *BiddingService) participants(l *auctionLane, snap models.Snapshot) []string {
	return append(s.audience(snap), l.ledger.Bidders()...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// persist mirrors the ledger into the store. The ledger change is already
// committed, so a store failure is flagged and logged, never rolled back.
func (s *BiddingService) persist(l *auctionLane, entry *models.BidEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	defer cancel()

	if entry != nil {
		if err := s.repo.AppendBid(ctx, *entry); err != nil {
			s.flagStoreFailure(l.ledger.ID(), "append bid", err)
		}
	}

	current := l.ledger.Auction()
	err := s.repo.UpdateAuction(ctx, current.ID, func(doc *models.AuctionProperty) error {
		doc.Status = current.Status
		doc.CurrentBid = current.CurrentBid
		doc.HighestBidderID = current.HighestBidderID
		doc.HighestBidderName = current.HighestBidderName
		doc.WatchlistUsers = current.WatchlistUsers
		doc.UpdatedAt = current.UpdatedAt
		return nil
	})
	if err != nil {
		s.flagStoreFailure(current.ID, "update auction", err)
	}
}

func (s *BiddingService) flagStoreFailure(auctionID, op string, err error) {
	metrics.DownstreamFailures.WithLabelValues("store").Inc()
	utils.Error("service: store write failed after commit", map[string]any{
		"auction_id": auctionID,
		"operation":  op,
		"error":      err.Error(),
	})
}
