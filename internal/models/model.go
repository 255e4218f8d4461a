package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle phase of an auction
type AuctionStatus string

const (
	StatusUpcoming  AuctionStatus = "upcoming"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusSold      AuctionStatus = "sold"
	StatusCancelled AuctionStatus = "cancelled"
)

// BidType distinguishes manual bids from proxy and buy-now bids
type BidType string

const (
	BidTypeRegular BidType = "regular"
	BidTypeAutoBid BidType = "autobid"
	BidTypeBuyNow  BidType = "buyNow"
)

// Valid reports whether t is a known bid type
func (t BidType) Valid() bool {
	switch t {
	case BidTypeRegular, BidTypeAutoBid, BidTypeBuyNow:
		return true
	}
	return false
}

// BidEntry is one accepted bid. Entries are never edited once appended.
type BidEntry struct {
	BidID      string          `json:"bid_id"`
	AuctionID  string          `json:"auction_id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
	BidType    BidType         `json:"bid_type"`
	Sequence   int             `json:"sequence"`
}

// AuctionProperty is a single property auction and its bid ledger
type AuctionProperty struct {
	ID                string          `json:"id"`
	SellerID          string          `json:"seller_id"`
	SellerName        string          `json:"seller_name,omitempty"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Address           string          `json:"address,omitempty"`
	StartingPrice     decimal.Decimal `json:"starting_price"`
	CurrentBid        decimal.Decimal `json:"current_bid"`
	BuyNowPrice       decimal.Decimal `json:"buy_now_price"`
	MinIncrement      decimal.Decimal `json:"min_increment"`
	HighestBidderID   string          `json:"highest_bidder_id,omitempty"`
	HighestBidderName string          `json:"highest_bidder_name,omitempty"`
	AuctionStartTime  time.Time       `json:"auction_start_time"`
	AuctionEndTime    time.Time       `json:"auction_end_time"`
	AuctionDuration   time.Duration   `json:"auction_duration"`
	Status            AuctionStatus   `json:"status"`
	BidHistory        []BidEntry      `json:"bid_history"`
	WatchlistUsers    []string        `json:"watchlist_users"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices with a
func (a AuctionProperty) Clone() AuctionProperty {
	c := a
	c.BidHistory = append([]BidEntry(nil), a.BidHistory...)
	c.WatchlistUsers = append([]string(nil), a.WatchlistUsers...)
	return c
}

// HasBuyNow reports whether the auction accepts buy-now bids
func (a AuctionProperty) HasBuyNow() bool {
	return a.BuyNowPrice.IsPositive()
}

// Snapshot builds the read-only view handed out to callers
func (a AuctionProperty) Snapshot() Snapshot {
	return Snapshot{
		AuctionID:         a.ID,
		Title:             a.Title,
		SellerID:          a.SellerID,
		Status:            a.Status,
		StartingPrice:     a.StartingPrice,
		CurrentBid:        a.CurrentBid,
		BuyNowPrice:       a.BuyNowPrice,
		MinIncrement:      a.MinIncrement,
		HighestBidderID:   a.HighestBidderID,
		HighestBidderName: a.HighestBidderName,
		AuctionStartTime:  a.AuctionStartTime,
		AuctionEndTime:    a.AuctionEndTime,
		BidCount:          len(a.BidHistory),
		WatchlistUsers:    append([]string(nil), a.WatchlistUsers...),
		UpdatedAt:         a.UpdatedAt,
	}
}

// Snapshot is the current status, high bid and high bidder of an auction.
// It may be stale as soon as it is returned.
type Snapshot struct {
	AuctionID         string          `json:"auction_id"`
	Title             string          `json:"title"`
	SellerID          string          `json:"seller_id"`
	Status            AuctionStatus   `json:"status"`
	StartingPrice     decimal.Decimal `json:"starting_price"`
	CurrentBid        decimal.Decimal `json:"current_bid"`
	BuyNowPrice       decimal.Decimal `json:"buy_now_price"`
	MinIncrement      decimal.Decimal `json:"min_increment"`
	HighestBidderID   string          `json:"highest_bidder_id,omitempty"`
	HighestBidderName string          `json:"highest_bidder_name,omitempty"`
	AuctionStartTime  time.Time       `json:"auction_start_time"`
	AuctionEndTime    time.Time       `json:"auction_end_time"`
	BidCount          int             `json:"bid_count"`
	WatchlistUsers    []string        `json:"watchlist_users"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AuctionDefinition is the input to auction creation
type AuctionDefinition struct {
	SellerID         string
	SellerName       string
	Title            string
	Description      string
	Address          string
	StartingPrice    decimal.Decimal
	BuyNowPrice      decimal.Decimal
	MinIncrement     decimal.Decimal
	AuctionStartTime time.Time
	AuctionEndTime   time.Time
	AuctionDuration  time.Duration
}

// BidRequest is a proposed bid before validation
type BidRequest struct {
	AuctionID  string
	BidderID   string
	BidderName string
	Amount     decimal.Decimal
	Type       BidType
}

// AutoBidInstruction is a standing ceiling a bidder registered for an auction
type AutoBidInstruction struct {
	AuctionID    string          `json:"auction_id"`
	BidderID     string          `json:"bidder_id"`
	BidderName   string          `json:"bidder_name,omitempty"`
	Ceiling      decimal.Decimal `json:"ceiling"`
	Increment    decimal.Decimal `json:"increment"`
	Active       bool            `json:"active"`
	RegisteredAt time.Time       `json:"registered_at"`
	Sequence     int64           `json:"sequence"`
}

// UserBidStatus is the outcome of a user's participation in one auction
type UserBidStatus string

const (
	UserBidActive UserBidStatus = "active"
	UserBidWon    UserBidStatus = "won"
	UserBidLost   UserBidStatus = "lost"
)

// UserBid is the per-user projection of an auction ledger
type UserBid struct {
	AuctionID     string          `json:"auction_id"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	BidTime       time.Time       `json:"bid_time"`
	AuctionStatus AuctionStatus   `json:"auction_status"`
	Status        UserBidStatus   `json:"status"`
	IsWinning     bool            `json:"is_winning"`
}

// EventKind names a ledger or phase event
type EventKind string

const (
	EventNewBid           EventKind = "new-bid"
	EventOutbid           EventKind = "outbid"
	EventAuctionStarting  EventKind = "auction-starting"
	EventAuctionEnded     EventKind = "auction-ended"
	EventAuctionWon       EventKind = "auction-won"
	EventAuctionCancelled EventKind = "auction-cancelled"
	EventAuctionSold      EventKind = "auction-sold"
)

// Event is emitted after every committed ledger mutation or phase transition
type Event struct {
	ID         string    `json:"id"`
	AuctionID  string    `json:"auction_id"`
	Kind       EventKind `json:"kind"`
	Recipients []string  `json:"recipients"`
	Entry      *BidEntry `json:"entry,omitempty"`
	Snapshot   Snapshot  `json:"snapshot"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AutoBidRequest asks the engine to bid on a bidder's behalf up to Ceiling
type AutoBidRequest struct {
	AuctionID  string
	BidderID   string
	BidderName string
	Ceiling    decimal.Decimal
	Increment  decimal.Decimal
}

// Transition records one status change applied to an auction
type Transition struct {
	AuctionID string        `json:"auction_id"`
	From      AuctionStatus `json:"from"`
	To        AuctionStatus `json:"to"`
	At        time.Time     `json:"at"`
}

func init() {
	// amounts travel as JSON numbers on the wire and in stored documents
	decimal.MarshalJSONWithoutQuotes = true
}
