package helpers

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPlaceBidRequest_DecodesAmountExactly(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"bidder_id":"u1","amount":0.1}`,
		`{"bidder_id":"u1","amount":"0.1"}`,
	} {
		var req PlaceBidRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		require.Equal(t, "0.1", req.Amount.String())
		require.NoError(t, req.Validate())
	}
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     interface{ Validate() error }
		wantErr string
	}{
		{
			name: "bid_ok",
			req:  PlaceBidRequest{BidderID: "u1", Amount: decimal.RequireFromString("100.05")},
		},
		{
			name:    "bid_missing_amount",
			req:     PlaceBidRequest{BidderID: "u1"},
			wantErr: "amount must be greater than 0",
		},
		{
			name:    "bid_negative_amount",
			req:     PlaceBidRequest{BidderID: "u1", Amount: decimal.NewFromInt(-5)},
			wantErr: "amount must be greater than 0",
		},
		{
			name: "auction_ok",
			req:  CreateAuctionRequest{StartingPrice: decimal.NewFromInt(1000)},
		},
		{
			name:    "auction_negative_prices",
			req:     CreateAuctionRequest{StartingPrice: decimal.NewFromInt(1000), BuyNowPrice: decimal.NewFromInt(-1), MinIncrement: decimal.NewFromInt(-1)},
			wantErr: "min_increment must not be negative",
		},
		{
			name:    "auction_zero_start",
			req:     CreateAuctionRequest{},
			wantErr: "starting_price must be greater than 0",
		},
		{
			name: "autobid_ok",
			req:  AutoBidRequest{Ceiling: decimal.NewFromInt(5000)},
		},
		{
			name:    "autobid_negative_increment",
			req:     AutoBidRequest{Ceiling: decimal.NewFromInt(5000), Increment: decimal.NewFromInt(-10)},
			wantErr: "increment must not be negative",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.req.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
