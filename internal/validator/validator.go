// Package validator decides whether a proposed bid is admissible against an
// auction snapshot. It holds no state.
package validator

import (
	"fmt"

	"auction-engine/internal/auctionstate"
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

// ValidateRequest rejects malformed requests before any auction state is consulted
func ValidateRequest(req models.BidRequest) error {
	if req.AuctionID == "" || req.BidderID == "" {
		return fmt.Errorf("validator: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("validator: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("validator: %w - unknown bid type %q", biddingerrors.ErrInvalidBid, req.Type)
	}
	return nil
}

// Check applies the business rules. It returns nil or a *biddingerrors.Rejection.
func Check(req models.BidRequest, snap models.Snapshot) error {
	if !auctionstate.AcceptsBids(snap.Status) {
		return biddingerrors.Reject(biddingerrors.ReasonAuctionNotActive, "auction %s is %s", snap.AuctionID, snap.Status)
	}
	if snap.HighestBidderID != "" && req.BidderID == snap.HighestBidderID {
		return biddingerrors.Reject(biddingerrors.ReasonSelfBid, "bidder %s already leads at %s", req.BidderID, snap.CurrentBid)
	}
	if req.Type == models.BidTypeBuyNow {
		if !snap.BuyNowPrice.IsPositive() {
			return biddingerrors.Reject(biddingerrors.ReasonBelowThreshold, "auction %s has no buy-now price", snap.AuctionID)
		}
		if req.Amount.LessThan(snap.BuyNowPrice) {
			return biddingerrors.Reject(biddingerrors.ReasonBelowThreshold, "buy-now price is %s", snap.BuyNowPrice)
		}
	}
	if !req.Amount.GreaterThan(snap.CurrentBid) {
		return biddingerrors.Reject(biddingerrors.ReasonStaleAmount, "current highest bid is %s", snap.CurrentBid)
	}
	return nil
}

// Validate runs ValidateRequest then Check
func Validate(req models.BidRequest, snap models.Snapshot) error {
	if err := ValidateRequest(req); err != nil {
		return err
	}
	return Check(req, snap)
}
