package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
)

//go:generate mockgen -destination=mock_repository.go -package=repository auction-engine/internal/repository AuctionStore

// AuctionStore is the durable record of auctions and their bids. The bid
// entries are append-only; the auction document is changed only through
// UpdateAuction, which applies fn atomically.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction model.AuctionProperty) error
	UpdateAuction(ctx context.Context, auctionID string, fn func(*model.AuctionProperty) error) error
	AppendBid(ctx context.Context, bid model.BidEntry) error
	GetAuction(ctx context.Context, auctionID string) (model.AuctionProperty, error)
	ListAuctions(ctx context.Context) ([]model.AuctionProperty, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.BidEntry, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.AuctionProperty // key: auctionID -> auction document without bids
	bids     map[string][]model.BidEntry      // key: auctionID -> value: bids in append order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]model.AuctionProperty),
		bids:     make(map[string][]model.BidEntry),
	}
}

// CreateAuction stores a new auction document
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.AuctionProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.ID == "" {
		return fmt.Errorf("create auction: %w - empty id", biddingerrors.ErrInvalidAuction)
	}
	if _, ok := r.auctions[auction.ID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.ID, biddingerrors.ErrAuctionExists)
	}
	doc := auction.Clone()
	r.bids[auction.ID] = append([]model.BidEntry(nil), doc.BidHistory...)
	doc.BidHistory = nil
	r.auctions[auction.ID] = doc
	return nil
}

// UpdateAuction applies fn to a copy of the document and stores the result
// only if fn succeeds
func (r *MemoryRepo) UpdateAuction(_ context.Context, auctionID string, fn func(*model.AuctionProperty) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("update auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	doc = doc.Clone()
	if err := fn(&doc); err != nil {
		return fmt.Errorf("update auction %s: %w", auctionID, err)
	}
	doc.ID = auctionID
	doc.BidHistory = nil
	r.auctions[auctionID] = doc
	return nil
}

// AppendBid records an accepted bid entry
func (r *MemoryRepo) AppendBid(_ context.Context, bid model.BidEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	for _, b := range r.bids[bid.AuctionID] {
		if b.BidID == bid.BidID {
			return nil
		}
	}
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// GetAuction returns the auction document with its bid history
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.AuctionProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.auctions[auctionID]
	if !ok {
		return model.AuctionProperty{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	doc = doc.Clone()
	doc.BidHistory = append([]model.BidEntry(nil), r.bids[auctionID]...)
	return doc, nil
}

// ListAuctions returns every auction ordered by creation time
func (r *MemoryRepo) ListAuctions(_ context.Context) ([]model.AuctionProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.AuctionProperty, 0, len(r.auctions))
	for id, doc := range r.auctions {
		doc = doc.Clone()
		doc.BidHistory = append([]model.BidEntry(nil), r.bids[id]...)
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetBidsByAuction returns all bids for an auction
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.BidEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return append([]model.BidEntry(nil), bids...), nil
}
