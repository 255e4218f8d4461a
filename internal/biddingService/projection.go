package bidding

import (
	"fmt"
	"sort"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

// GetUserBids rebuilds the user's bid projection from the ledgers: one row
// per auction the user has bid on, carrying the user's highest bid
func (s *BiddingService) GetUserBids(userID string) ([]models.UserBid, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	var out []models.UserBid
	for _, l := range s.allLanes() {
		auction := l.ledger.Auction()
		row, ok := projectUserBid(auction, userID)
		if ok {
			out = append(out, row)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("service: user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BidTime.After(out[j].BidTime) })
	return out, nil
}

func projectUserBid(a models.AuctionProperty, userID string) (models.UserBid, bool) {
	var (
		best  models.BidEntry
		found bool
	)
	for _, e := range a.BidHistory {
		if e.BidderID != userID {
			continue
		}
		if !found || e.Amount.GreaterThan(best.Amount) {
			best = e
			found = true
		}
	}
	if !found {
		return models.UserBid{}, false
	}

	winning := a.HighestBidderID == userID
	status := models.UserBidLost
	switch a.Status {
	case models.StatusUpcoming, models.StatusActive:
		status = models.UserBidActive
	case models.StatusEnded, models.StatusSold:
		if winning {
			status = models.UserBidWon
		}
	}
	return models.UserBid{
		AuctionID:     a.ID,
		Title:         a.Title,
		Amount:        best.Amount,
		BidTime:       best.Timestamp,
		AuctionStatus: a.Status,
		Status:        status,
		IsWinning:     winning && a.Status != models.StatusCancelled,
	}, true
}
