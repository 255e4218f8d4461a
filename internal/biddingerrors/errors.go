package biddingerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrUserNoBids      = errors.New("user has not placed any bids")
)

// validation errors
var (
	ErrInvalidBid      = errors.New("invalid bid")
	ErrInvalidAuction  = errors.New("invalid auction definition")
	ErrInvalidAutoBid  = errors.New("invalid auto-bid instruction")
	ErrInvalidSchedule = errors.New("invalid scheduler request")
)

// business rule rejections
var (
	ErrStaleAmount      = errors.New("bid amount does not exceed current bid")
	ErrSelfBid          = errors.New("bidder already holds the highest bid")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrBelowThreshold   = errors.New("bid amount below buy-now threshold")
	ErrNotWinner        = errors.New("bidder is not the auction winner")
)

// state machine and coordination errors
var (
	ErrInvalidTransition = errors.New("invalid auction status transition")
	ErrAdmissionTimeout  = errors.New("timed out waiting for auction admission")
)

// RejectReason is the typed reason a bid was refused
type RejectReason string

const (
	ReasonStaleAmount      RejectReason = "stale-amount"
	ReasonSelfBid          RejectReason = "self-bid"
	ReasonAuctionNotActive RejectReason = "auction-not-active"
	ReasonBelowThreshold   RejectReason = "below-threshold"
)

var reasonErrs = map[RejectReason]error{
	ReasonStaleAmount:      ErrStaleAmount,
	ReasonSelfBid:          ErrSelfBid,
	ReasonAuctionNotActive: ErrAuctionNotActive,
	ReasonBelowThreshold:   ErrBelowThreshold,
}

// Rejection is an expected business outcome, not a system failure
type Rejection struct {
	Reason RejectReason
	Detail string
}

// Reject builds a Rejection with a formatted detail
func Reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func (r *Rejection) Unwrap() error {
	return reasonErrs[r.Reason]
}

// ReasonOf extracts the rejection reason from err, if any
func ReasonOf(err error) (RejectReason, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}

// TransitionError reports an attempted status change outside the allowed edges
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move auction from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
