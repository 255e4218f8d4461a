package integrationtests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
)

func TestPlaceBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		request    any
		wantStatus int
		wantReason string
	}{
		{
			name:       "Valid_Bid",
			request:    helpers.PlaceBidRequest{BidderID: "user1", Amount: decimal.NewFromInt(760000)},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "Invalid_JSON",
			request:    []byte("{bidder_id: 'missing quotes', amount: 100}"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Not_Above_Current",
			request:    helpers.PlaceBidRequest{BidderID: "user1", Amount: decimal.NewFromInt(750000)},
			wantStatus: http.StatusConflict,
			wantReason: "stale-amount",
		},
		{
			name:       "Buy_Now_Below_Price",
			request:    helpers.PlaceBidRequest{BidderID: "user1", Amount: decimal.NewFromInt(800000), BidType: "buyNow"},
			wantStatus: http.StatusConflict,
			wantReason: "below-threshold",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := SetupTestEnv(t)
			id := env.createAuction(t, 750000, 900000)

			resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/"+id+"/bids", tt.request)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantReason != "" {
				require.Equal(t, tt.wantReason, resp["reason"])
			}
			if tt.wantStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, id, data["auction_id"])
				require.Equal(t, "user1", data["bidder_id"])
				require.Equal(t, 760000.0, data["amount"])
				require.NotEmpty(t, data["bid_id"])

				_, err := time.Parse(time.RFC3339, data["created_at"].(string))
				require.NoError(t, err)
			}
		})
	}
}

func TestUnknownAuction(t *testing.T) {
	t.Parallel()

	env := SetupTestEnv(t)
	for _, url := range []string{
		"/auctions/" + uuid.NewString(),
		"/auctions/" + uuid.NewString() + "/bids",
		"/auctions/not-a-uuid/bids",
	} {
		_, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, url, nil)
		require.Equal(t, http.StatusNotFound, w.Code, url)
	}
}

// Alice bids 760000 with a standing ceiling of 780000 and bob's 765000 is
// answered automatically at 766000.
func TestAutoBidCounterOverHTTP(t *testing.T) {
	t.Parallel()

	env := SetupTestEnv(t)
	id := env.createAuction(t, 750000, 900000)
	base := "/auctions/" + id

	_, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/bids", helpers.PlaceBidRequest{BidderID: "alice", Amount: decimal.NewFromInt(760000)})
	require.Equal(t, http.StatusCreated, w.Code)

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/autobids", helpers.AutoBidRequest{BidderID: "alice", Ceiling: decimal.NewFromInt(780000), Increment: decimal.NewFromInt(1000)})
	require.Equal(t, http.StatusCreated, w.Code)

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/bids", helpers.PlaceBidRequest{BidderID: "bob", Amount: decimal.NewFromInt(765000)})
	require.Equal(t, http.StatusCreated, w.Code)

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := resp["data"].(map[string]any)
	require.Equal(t, 766000.0, snap["current_bid"])
	require.Equal(t, "alice", snap["highest_bidder_id"])
	require.Equal(t, 3.0, snap["bid_count"])

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, base+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := resp["data"].([]any)
	require.Len(t, bids, 3)
	require.Equal(t, "autobid", bids[2].(map[string]any)["bid_type"])

	// the leader cannot raise its own winning bid
	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/bids", helpers.PlaceBidRequest{BidderID: "alice", Amount: decimal.NewFromInt(800000)})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "self-bid", resp["reason"])
}

func TestAuctionLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	env := SetupTestEnv(t)
	id := env.createAuction(t, 100000, 0)
	base := "/auctions/" + id

	_, w := ExecuteRequestAndParse(t, env.router, http.MethodPut, base+"/watchers/wendy", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/bids", helpers.PlaceBidRequest{BidderID: "alice", Amount: decimal.NewFromInt(120000)})
	require.Equal(t, http.StatusCreated, w.Code)

	// nothing is due before the end time
	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/scheduler/tick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp["data"])

	env.clock.Advance(time.Hour)
	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/scheduler/tick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	transitions := resp["data"].([]any)
	require.Len(t, transitions, 1)
	require.Equal(t, "ended", transitions[0].(map[string]any)["to"])

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/bids", helpers.PlaceBidRequest{BidderID: "bob", Amount: decimal.NewFromInt(130000)})
	require.Equal(t, http.StatusConflict, w.Code)

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/settle", helpers.SettleRequest{BidderID: "bob"})
	require.Equal(t, http.StatusConflict, w.Code)

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/settle", helpers.SettleRequest{BidderID: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sold", resp["data"].(map[string]any)["status"])

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	stored, err := env.repo.GetAuction(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, model.StatusSold, stored.Status)
	require.Len(t, stored.BidHistory, 1)
}

func TestGetUserBidsOverHTTP(t *testing.T) {
	t.Parallel()

	env := SetupTestEnv(t)
	first := env.createAuction(t, 100, 0)
	second := env.createAuction(t, 100, 0)

	for _, bid := range []struct {
		auction string
		bidder  string
		amount  int64
	}{
		{first, "user1", 200},
		{second, "user1", 300},
		{second, "user2", 400},
	} {
		_, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/"+bid.auction+"/bids", helpers.PlaceBidRequest{BidderID: bid.bidder, Amount: decimal.NewFromInt(bid.amount)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, "/users/user1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := resp["data"].([]any)
	require.Len(t, rows, 2)

	byAuction := map[string]map[string]any{}
	for _, r := range rows {
		row := r.(map[string]any)
		byAuction[row["auction_id"].(string)] = row
	}
	require.Equal(t, true, byAuction[first]["is_winning"])
	require.Equal(t, false, byAuction[second]["is_winning"])
	require.Equal(t, "active", byAuction[second]["status"])

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/users/nobody/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp["data"])
}

func TestLiveFeedStreamsEvents(t *testing.T) {
	t.Parallel()

	env := SetupTestEnv(t)
	id := env.createAuction(t, 750000, 0)

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/auctions/" + id + "/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// the subscription is registered after the upgrade completes
	require.Eventually(t, func() bool {
		return env.hub.Subscribers(id) == 1
	}, time.Second, 10*time.Millisecond)

	_, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/"+id+"/bids", helpers.PlaceBidRequest{BidderID: "alice", Amount: decimal.NewFromInt(760000)})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var evt model.Event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, model.EventNewBid, evt.Kind)
	require.Equal(t, id, evt.AuctionID)
	require.NotNil(t, evt.Entry)
	require.Equal(t, "alice", evt.Entry.BidderID)
}
