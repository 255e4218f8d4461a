package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// Helper to create a new auction document
func newAuction(id string, created time.Time) model.AuctionProperty {
	return model.AuctionProperty{
		ID:               id,
		SellerID:         "seller-" + id,
		Title:            fmt.Sprintf("%s title", id),
		StartingPrice:    decimal.NewFromInt(100),
		CurrentBid:       decimal.NewFromInt(100),
		MinIncrement:     decimal.NewFromInt(1),
		AuctionStartTime: created,
		AuctionEndTime:   created.Add(time.Hour),
		Status:           model.StatusUpcoming,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

// Helper to create a new bid entry
func newBid(bidID, auctionID, bidderID string, amount int64, seq int) model.BidEntry {
	return model.BidEntry{
		BidID:     bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: t0.Add(time.Duration(seq) * time.Second),
		BidType:   model.BidTypeRegular,
		Sequence:  seq,
	}
}

func TestMemoryRepo_CreateAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", t0)))

	tests := []struct {
		name    string
		auction model.AuctionProperty
		wantErr error
	}{
		{name: "duplicate_id", auction: newAuction("a1", t0), wantErr: biddingerrors.ErrAuctionExists},
		{name: "empty_id", auction: newAuction("", t0), wantErr: biddingerrors.ErrInvalidAuction},
		{name: "new_id", auction: newAuction("a2", t0)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := repo.CreateAuction(ctx, tc.auction)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMemoryRepo_UpdateAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", t0)))

	err := repo.UpdateAuction(ctx, "a1", func(a *model.AuctionProperty) error {
		a.Status = model.StatusActive
		a.CurrentBid = decimal.NewFromInt(150)
		a.HighestBidderID = "alice"
		return nil
	})
	require.NoError(t, err)

	got, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, got.Status)
	require.Equal(t, "alice", got.HighestBidderID)

	// a failing fn leaves the document as it was
	boom := errors.New("boom")
	err = repo.UpdateAuction(ctx, "a1", func(a *model.AuctionProperty) error {
		a.Status = model.StatusCancelled
		return boom
	})
	require.ErrorIs(t, err, boom)
	got, err = repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, got.Status)

	err = repo.UpdateAuction(ctx, "missing", func(*model.AuctionProperty) error { return nil })
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
}

func TestMemoryRepo_AppendBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", t0)))

	_, err := repo.GetBidsByAuction(ctx, "a1")
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)

	b1 := newBid("b1", "a1", "alice", 110, 1)
	require.NoError(t, repo.AppendBid(ctx, b1))
	// appending the same entry twice is harmless
	require.NoError(t, repo.AppendBid(ctx, b1))
	require.NoError(t, repo.AppendBid(ctx, newBid("b2", "a1", "bob", 120, 2)))

	err = repo.AppendBid(ctx, newBid("b3", "missing", "bob", 120, 1))
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)

	bids, err := repo.GetBidsByAuction(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, "b1", bids[0].BidID)
	require.Equal(t, "b2", bids[1].BidID)

	got, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got.BidHistory, 2)

	t.Run("concurrent_appends", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepo()
		require.NoError(t, repo.CreateAuction(ctx, newAuction("a9", t0)))

		var wg sync.WaitGroup
		concurrentCount := 50
		for i := 0; i < concurrentCount; i++ {
			wg.Add(1)
			i := i
			go func() {
				defer wg.Done()
				if err := repo.AppendBid(ctx, newBid(fmt.Sprintf("bid-%d", i), "a9", fmt.Sprintf("user-%d", i), int64(100+i), i+1)); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		bids, err := repo.GetBidsByAuction(ctx, "a9")
		require.NoError(t, err)
		require.Len(t, bids, concurrentCount)
	})
}

func TestMemoryRepo_ListAuctions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("late", t0.Add(time.Hour))))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("b-early", t0)))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a-early", t0)))
	require.NoError(t, repo.AppendBid(ctx, newBid("b1", "late", "alice", 110, 1)))

	list, err := repo.ListAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"a-early", "b-early", "late"}, []string{list[0].ID, list[1].ID, list[2].ID})
	require.Len(t, list[2].BidHistory, 1)

	// returned documents are copies
	list[2].BidHistory[0].BidderID = "mallory"
	bids, err := repo.GetBidsByAuction(ctx, "late")
	require.NoError(t, err)
	require.Equal(t, "alice", bids[0].BidderID)
}
