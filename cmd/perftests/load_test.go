package perftests

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction-engine/internal/biddingerrors"
)

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name            string
	NumUsers        int
	NumAuctions     int
	ReadRatio       int
	MaxBidIncrement int
	Burst           bool // if true, no delay between ops
}

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)))]
	p99 = latencies[int(0.99*float64(len(latencies)))]
	return
}

// Benchmark_Load_BiddingSystem runs multiple scenarios
func Benchmark_Load_BiddingSystem(b *testing.B) {
	scenarios := []LoadScenario{
		{"Low-Contention-WriteHeavy", 200, 200, 0, 50, false},
		{"High-Contention-WriteHeavy", 500, 10, 0, 20, false},
		{"Mixed-Workload", 300, 50, 7, 30, false},
		{"ReadHeavy", 200, 50, 9, 20, false},
		{"Edge-Case-SingleAuction", 100, 1, 5, 10, false},
		{"Peak-Burst", 500, 50, 0, 20, true},
	}

	for _, s := range scenarios {
		s := s
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	svc := newService()
	ids := openAuctions(b, svc, s.NumAuctions)
	ctx := context.Background()

	var totalOps, successfulBids, rejectedBids, totalReads int64
	auctionSuccess := make([]int64, s.NumAuctions)
	metrics := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			idx := rnd.Intn(s.NumAuctions)
			opStart := time.Now()

			if rnd.Intn(10) < s.ReadRatio {
				if _, err := svc.GetSnapshot(ids[idx]); err != nil {
					b.Logf("ignored read error: %v", err)
				}
				atomic.AddInt64(&totalReads, 1)
			} else {
				snap, _ := svc.GetSnapshot(ids[idx])
				amount := snap.CurrentBid.IntPart() + int64(1+rnd.Intn(s.MaxBidIncrement))
				bidder := fmt.Sprintf("user_%d", rnd.Intn(s.NumUsers))
				if _, err := svc.PlaceBid(ctx, bid(ids[idx], bidder, amount)); err != nil {
					atomic.AddInt64(&rejectedBids, 1)
				} else {
					atomic.AddInt64(&successfulBids, 1)
					atomic.AddInt64(&auctionSuccess[idx], 1)
				}
			}

			metrics.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	throughput := float64(totalOps) / elapsed.Seconds()
	min, max, avg, p95, p99 := metrics.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Auctions: %d | Total Ops: %d | Accepted Bids: %d | Rejected Bids: %d | Reads: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.NumAuctions, totalOps, successfulBids, rejectedBids, totalReads, elapsed,
		throughput,
		float64(min.Microseconds()), float64(avg.Microseconds()), float64(max.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)

	for i, v := range auctionSuccess {
		snap, err := svc.GetSnapshot(ids[i])
		if err != nil {
			b.Fatalf("snapshot: %v", err)
		}
		if int64(snap.BidCount) != v {
			b.Fatalf("auction %d: %d accepted bids but %d in the ledger", i, v, snap.BidCount)
		}
	}
}

// Hammers one auction from many goroutines and checks the ledger afterwards:
// every accepted bid is in it and amounts strictly increase.
func TestLoad_SharedAuctionLedgerStaysConsistent(t *testing.T) {
	if testing.Short() {
		t.Skip("load test")
	}

	svc := newService()
	id := openAuctions(t, svc, 1)[0]
	ctx := context.Background()

	const workers, attempts = 32, 50
	var accepted int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < attempts; i++ {
				snap, err := svc.GetSnapshot(id)
				if err != nil {
					t.Error(err)
					return
				}
				amount := snap.CurrentBid.IntPart() + int64(1+rnd.Intn(10))
				_, err = svc.PlaceBid(ctx, bid(id, fmt.Sprintf("worker_%d", w), amount))
				switch {
				case err == nil:
					atomic.AddInt64(&accepted, 1)
				case errors.Is(err, biddingerrors.ErrStaleAmount), errors.Is(err, biddingerrors.ErrSelfBid):
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	bids, err := svc.GetBidsForAuction(id)
	require.NoError(t, err)
	require.Len(t, bids, int(accepted))
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
		require.Equal(t, bids[i-1].Sequence+1, bids[i].Sequence)
		require.NotEqual(t, bids[i-1].BidderID, bids[i].BidderID)
	}
}
