package helpers

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	model "auction-engine/internal/models"
)

// Request/Response DTOs. Money travels as JSON numbers (or numeric strings)
// and binds straight into decimal.Decimal; the binding tags cannot compare
// decimals, so each request checks its amounts in Validate.
type CreateAuctionRequest struct {
	SellerID         string          `json:"seller_id" binding:"required"`
	SellerName       string          `json:"seller_name"`
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description"`
	Address          string          `json:"address"`
	StartingPrice    decimal.Decimal `json:"starting_price"`
	BuyNowPrice      decimal.Decimal `json:"buy_now_price"`
	MinIncrement     decimal.Decimal `json:"min_increment"`
	AuctionStartTime *time.Time      `json:"auction_start_time"`
	AuctionEndTime   *time.Time      `json:"auction_end_time"`
	DurationMinutes  int             `json:"duration_minutes" binding:"gte=0"`
}

func (r CreateAuctionRequest) Validate() error {
	var errs []error
	if !r.StartingPrice.IsPositive() {
		errs = append(errs, errors.New("starting_price must be greater than 0"))
	}
	if r.BuyNowPrice.IsNegative() {
		errs = append(errs, errors.New("buy_now_price must not be negative"))
	}
	if r.MinIncrement.IsNegative() {
		errs = append(errs, errors.New("min_increment must not be negative"))
	}
	return errors.Join(errs...)
}

// ToDefinition converts the request into the service input
func (r CreateAuctionRequest) ToDefinition() model.AuctionDefinition {
	def := model.AuctionDefinition{
		SellerID:        r.SellerID,
		SellerName:      r.SellerName,
		Title:           r.Title,
		Description:     r.Description,
		Address:         r.Address,
		StartingPrice:   r.StartingPrice,
		BuyNowPrice:     r.BuyNowPrice,
		MinIncrement:    r.MinIncrement,
		AuctionDuration: time.Duration(r.DurationMinutes) * time.Minute,
	}
	if r.AuctionStartTime != nil {
		def.AuctionStartTime = r.AuctionStartTime.UTC()
	}
	if r.AuctionEndTime != nil {
		def.AuctionEndTime = r.AuctionEndTime.UTC()
	}
	return def
}

type CreateAuctionResponse struct {
	AuctionID string `json:"auction_id"`
}

type PlaceBidRequest struct {
	BidderID   string          `json:"bidder_id" binding:"required"`
	BidderName string          `json:"bidder_name"`
	Amount     decimal.Decimal `json:"amount"`
	BidType    string          `json:"bid_type" binding:"omitempty,oneof=regular buyNow"`
}

func (r PlaceBidRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	return nil
}

type BidResponse struct {
	BidID      string          `json:"bid_id"`
	AuctionID  string          `json:"auction_id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	BidType    model.BidType   `json:"bid_type"`
	Sequence   int             `json:"sequence"`
	CreatedAt  string          `json:"created_at"`
}

// NewBidResponse renders an accepted ledger entry
func NewBidResponse(e model.BidEntry) BidResponse {
	return BidResponse{
		BidID:      e.BidID,
		AuctionID:  e.AuctionID,
		BidderID:   e.BidderID,
		BidderName: e.BidderName,
		Amount:     e.Amount,
		BidType:    e.BidType,
		Sequence:   e.Sequence,
		CreatedAt:  e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

type AutoBidRequest struct {
	BidderID   string          `json:"bidder_id" binding:"required"`
	BidderName string          `json:"bidder_name"`
	Ceiling    decimal.Decimal `json:"ceiling"`
	Increment  decimal.Decimal `json:"increment"`
}

func (r AutoBidRequest) Validate() error {
	var errs []error
	if !r.Ceiling.IsPositive() {
		errs = append(errs, errors.New("ceiling must be greater than 0"))
	}
	if r.Increment.IsNegative() {
		errs = append(errs, errors.New("increment must not be negative"))
	}
	return errors.Join(errs...)
}

type SettleRequest struct {
	BidderID string `json:"bidder_id" binding:"required"`
}

// TickRequest drives the scheduler by hand. A missing Now means the server clock.
type TickRequest struct {
	Now *time.Time `json:"now"`
}
