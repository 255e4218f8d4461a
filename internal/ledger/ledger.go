// Package ledger holds the authoritative bid history and current high bid of
// one auction.
//
// Mutating methods assume a single writer; callers serialize them per auction
// (see package coordinator). Read methods may run at any time.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/auctionstate"
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/validator"
)

// Ledger owns one AuctionProperty and its BidEntry sequence
type Ledger struct {
	mu      sync.RWMutex
	auction models.AuctionProperty
}

// New takes ownership of a copy of auction, reconciled with its history
func New(auction models.AuctionProperty) *Ledger {
	a, _ := Reconcile(auction)
	sort.Strings(a.WatchlistUsers)
	return &Ledger{auction: a}
}

// Reconcile derives the high-bid pointer from the last BidEntry. Bid rows are
// appended before the auction document is rewritten, so a stored document can
// lag its own history; the history wins. A trailing buy-now entry ends an
// auction the document still shows as open. It reports whether anything
// was repaired.
func Reconcile(auction models.AuctionProperty) (models.AuctionProperty, bool) {
	a := auction.Clone()
	sort.SliceStable(a.BidHistory, func(i, j int) bool {
		return a.BidHistory[i].Sequence < a.BidHistory[j].Sequence
	})
	if len(a.BidHistory) == 0 {
		return a, false
	}

	last := a.BidHistory[len(a.BidHistory)-1]
	var repaired bool
	if !a.CurrentBid.Equal(last.Amount) || a.HighestBidderID != last.BidderID || a.HighestBidderName != last.BidderName {
		a.CurrentBid = last.Amount
		a.HighestBidderID = last.BidderID
		a.HighestBidderName = last.BidderName
		repaired = true
	}
	if last.BidType == models.BidTypeBuyNow && (a.Status == models.StatusUpcoming || a.Status == models.StatusActive) {
		a.Status = models.StatusEnded
		repaired = true
	}
	if repaired && a.UpdatedAt.Before(last.Timestamp) {
		a.UpdatedAt = last.Timestamp
	}
	return a, repaired
}

func (l *Ledger) ID() string {
	return l.auction.ID
}

// Snapshot returns the current status, high bid and high bidder
func (l *Ledger) Snapshot() models.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.auction.Snapshot()
}

// Auction returns a deep copy of the full auction document
func (l *Ledger) Auction() models.AuctionProperty {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.auction.Clone()
}

// History returns the accepted bids in commit order
func (l *Ledger) History() []models.BidEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.BidEntry(nil), l.auction.BidHistory...)
}

// Bidders returns every distinct bidder in the history
func (l *Ledger) Bidders() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]bool, len(l.auction.BidHistory))
	var out []string
	for _, e := range l.auction.BidHistory {
		if !seen[e.BidderID] {
			seen[e.BidderID] = true
			out = append(out, e.BidderID)
		}
	}
	return out
}

// AttemptAppend re-validates req against the ledger's own state and, when
// admissible, appends a BidEntry and moves the high-bid pointer. A buy-now
// entry also ends the auction. Rejections leave the ledger untouched.
func (l *Ledger) AttemptAppend(req models.BidRequest, bidID string, now time.Time) (models.Snapshot, models.BidEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.AuctionID != l.auction.ID {
		return models.Snapshot{}, models.BidEntry{}, fmt.Errorf("ledger: %w - bid for %s sent to ledger %s", biddingerrors.ErrInvalidBid, req.AuctionID, l.auction.ID)
	}
	if err := validator.Validate(req, l.auction.Snapshot()); err != nil {
		return l.auction.Snapshot(), models.BidEntry{}, err
	}

	ts := now
	if n := len(l.auction.BidHistory); n > 0 && ts.Before(l.auction.BidHistory[n-1].Timestamp) {
		// wall clock went backwards; keep history sorted by timestamp
		ts = l.auction.BidHistory[n-1].Timestamp
	}

	entry := models.BidEntry{
		BidID:      bidID,
		AuctionID:  l.auction.ID,
		BidderID:   req.BidderID,
		BidderName: req.BidderName,
		Amount:     req.Amount,
		Timestamp:  ts,
		BidType:    req.Type,
		Sequence:   len(l.auction.BidHistory) + 1,
	}
	l.auction.BidHistory = append(l.auction.BidHistory, entry)
	l.auction.CurrentBid = entry.Amount
	l.auction.HighestBidderID = entry.BidderID
	l.auction.HighestBidderName = entry.BidderName
	l.auction.UpdatedAt = now

	if entry.BidType == models.BidTypeBuyNow {
		l.auction.Status = models.StatusEnded
	}
	return l.auction.Snapshot(), entry, nil
}

// Transition moves the auction to status to. Edges outside the state machine
// return an error wrapping biddingerrors.ErrInvalidTransition and change nothing.
func (l *Ledger) Transition(to models.AuctionStatus, now time.Time) (models.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := auctionstate.Transition(l.auction.Status, to); err != nil {
		return l.auction.Snapshot(), fmt.Errorf("ledger: auction %s: %w", l.auction.ID, err)
	}
	l.auction.Status = to
	l.auction.UpdatedAt = now
	return l.auction.Snapshot(), nil
}

// SetWatching adds or removes userID from the watchlist. It reports whether
// the watchlist changed.
func (l *Ledger) SetWatching(userID string, watching bool, now time.Time) (models.Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	users := l.auction.WatchlistUsers
	i := sort.SearchStrings(users, userID)
	present := i < len(users) && users[i] == userID
	switch {
	case watching && !present:
		users = append(users, "")
		copy(users[i+1:], users[i:])
		users[i] = userID
	case !watching && present:
		users = append(users[:i], users[i+1:]...)
	default:
		return l.auction.Snapshot(), false
	}
	l.auction.WatchlistUsers = users
	l.auction.UpdatedAt = now
	return l.auction.Snapshot(), true
}
