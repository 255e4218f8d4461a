// Package autobid raises counter-bids on behalf of bidders who registered a
// standing ceiling.
package autobid

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

// Book holds the standing instructions of a single auction
type Book struct {
	mu           sync.Mutex
	auctionID    string
	seq          int64
	instructions []models.AutoBidInstruction
}

func NewBook(auctionID string) *Book {
	return &Book{auctionID: auctionID}
}

// Register stores an instruction for req.BidderID, replacing any earlier one.
// Replacing counts as a new registration for tie-break purposes.
func (b *Book) Register(req models.AutoBidRequest, increment decimal.Decimal, at time.Time) models.AutoBidInstruction {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	instr := models.AutoBidInstruction{
		AuctionID:    b.auctionID,
		BidderID:     req.BidderID,
		BidderName:   req.BidderName,
		Ceiling:      req.Ceiling,
		Increment:    increment,
		Active:       true,
		RegisteredAt: at,
		Sequence:     b.seq,
	}

	for i := range b.instructions {
		if b.instructions[i].BidderID == req.BidderID {
			b.instructions = append(b.instructions[:i], b.instructions[i+1:]...)
			break
		}
	}
	b.instructions = append(b.instructions, instr)
	return instr
}

// List returns every instruction in registration order
func (b *Book) List() []models.AutoBidInstruction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]models.AutoBidInstruction(nil), b.instructions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// ActiveCount returns the number of instructions still able to bid
func (b *Book) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, in := range b.instructions {
		if in.Active {
			n++
		}
	}
	return n
}

// DeactivateAll retires every instruction, e.g. when the auction leaves active
func (b *Book) DeactivateAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.instructions {
		b.instructions[i].Active = false
	}
}

func (b *Book) deactivate(bidderID string) {
	for i := range b.instructions {
		if b.instructions[i].BidderID == bidderID {
			b.instructions[i].Active = false
		}
	}
}

// Next computes the next counter-bid for snap, retiring instructions whose
// ceiling has been reached by a competitor. It returns false when no
// instruction can raise the current bid.
//
// The challenger is the strongest instruction not held by the current high
// bidder (highest ceiling, earliest registration on ties). It bids just enough
// to beat every rival ceiling, capped at its own ceiling, so each instruction
// bids at most once per cascade.
func (b *Book) Next(snap models.Snapshot) (models.BidRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		var (
			holder     *models.AutoBidInstruction
			candidates []*models.AutoBidInstruction
		)
		for i := range b.instructions {
			in := &b.instructions[i]
			if !in.Active {
				continue
			}
			if snap.HighestBidderID != "" && in.BidderID == snap.HighestBidderID {
				holder = in
				continue
			}
			if !in.Ceiling.GreaterThan(snap.CurrentBid) {
				in.Active = false
				continue
			}
			candidates = append(candidates, in)
		}
		if len(candidates) == 0 {
			return models.BidRequest{}, false
		}

		sort.Slice(candidates, func(i, j int) bool {
			if !candidates[i].Ceiling.Equal(candidates[j].Ceiling) {
				return candidates[i].Ceiling.GreaterThan(candidates[j].Ceiling)
			}
			return candidates[i].Sequence < candidates[j].Sequence
		})
		challenger := candidates[0]

		rival := snap.CurrentBid
		if len(candidates) > 1 && candidates[1].Ceiling.GreaterThan(rival) {
			rival = candidates[1].Ceiling
		}
		if holder != nil {
			if holder.Ceiling.Equal(challenger.Ceiling) && holder.Sequence < challenger.Sequence {
				// the earlier registration keeps the lead on equal ceilings
				challenger.Active = false
				continue
			}
			if holder.Ceiling.GreaterThan(rival) {
				rival = holder.Ceiling
			}
		}

		amount := decimal.Min(challenger.Ceiling, rival.Add(challenger.Increment))
		return models.BidRequest{
			AuctionID:  snap.AuctionID,
			BidderID:   challenger.BidderID,
			BidderName: challenger.BidderName,
			Amount:     amount,
			Type:       models.BidTypeAutoBid,
		}, true
	}
}

// Submitter appends a bid through the same path manual bids use
type Submitter func(req models.BidRequest) (models.Snapshot, error)

// Cascade keeps raising counter-bids until no instruction can beat the
// current high bid. It runs in the caller's goroutine, so when called inside
// an auction's critical section no other bid can interleave. It returns the
// number of counter-bids accepted.
func Cascade(book *Book, snap models.Snapshot, submit Submitter) (int, error) {
	accepted := 0
	// each instruction bids at most once per cascade; the bound is a guard
	limit := book.ActiveCount()
	for step := 0; step < limit; step++ {
		req, ok := book.Next(snap)
		if !ok {
			return accepted, nil
		}
		next, err := submit(req)
		if err != nil {
			if _, rejected := biddingerrors.ReasonOf(err); rejected {
				book.mu.Lock()
				book.deactivate(req.BidderID)
				book.mu.Unlock()
				if errors.Is(err, biddingerrors.ErrAuctionNotActive) {
					return accepted, nil
				}
				continue
			}
			return accepted, err
		}
		accepted++
		snap = next
	}
	return accepted, nil
}
