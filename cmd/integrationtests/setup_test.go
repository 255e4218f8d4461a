package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/clock"
	"auction-engine/internal/notifier"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
)

var epoch = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	clock  *clock.Fake
	repo   *repository.MemoryRepo
	hub    *notifier.Hub
}

// SetupTestEnv wires the real service, an in-memory store and a running
// notification hub behind the HTTP router.
func SetupTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFake(epoch)
	repo := repository.NewMemoryRepo()
	hub := notifier.NewHub(64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	service := bidding.NewBiddingService(repo, bidding.Options{
		Clock:            clk,
		Publisher:        hub,
		AdmissionTimeout: time.Second,
	})
	router := server.SetupRouter(service, server.Options{Feed: hub, RequestTimeout: 5 * time.Second})
	return testEnv{router: router, clock: clk, repo: repo, hub: hub}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// createAuction opens an auction that starts at the current fake time
func (e testEnv) createAuction(t *testing.T, startingPrice, buyNow float64) string {
	t.Helper()
	start := e.clock.Now()
	resp, w := ExecuteRequestAndParse(t, e.router, "POST", "/auctions", map[string]any{
		"seller_id":          "seller",
		"title":              "Harbour view apartment",
		"starting_price":     startingPrice,
		"buy_now_price":      buyNow,
		"min_increment":      1000,
		"auction_start_time": start,
		"duration_minutes":   60,
	})
	if w.Code != 201 {
		t.Fatalf("create auction: status %d body %s", w.Code, w.Body.String())
	}
	return resp["data"].(map[string]any)["auction_id"].(string)
}
