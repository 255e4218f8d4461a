package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction-engine/internal/biddingerrors"
)

func TestDo_SerializesOneAuction(t *testing.T) {
	t.Parallel()

	c := New(0)
	var (
		inside  int32
		maxSeen int32
		counter int
		wg      sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Do(context.Background(), "a1", func() error {
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				counter++
				time.Sleep(100 * time.Microsecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
	require.Equal(t, int32(1), maxSeen)
}

func TestDo_AdmitsInArrivalOrder(t *testing.T) {
	t.Parallel()

	c := New(0)
	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "a1", func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_ = c.Do(context.Background(), "a1", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// let waiter i queue before waiter i+1 arrives
		time.Sleep(10 * time.Millisecond)
	}
	close(release)
	wg.Wait()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDo_AdmissionTimeout(t *testing.T) {
	t.Parallel()

	c := New(20 * time.Millisecond)
	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "a1", func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ran := false
	err := c.Do(context.Background(), "a1", func() error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, biddingerrors.ErrAdmissionTimeout)
	require.False(t, ran, "fn must not run after an admission timeout")
}

func TestDo_CancelledContext(t *testing.T) {
	t.Parallel()

	c := New(0)
	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "a1", func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Do(ctx, "a1", func() error { return nil })
	require.ErrorIs(t, err, biddingerrors.ErrAdmissionTimeout)
}

func TestDo_AuctionsAreIndependent(t *testing.T) {
	t.Parallel()

	c := New(50 * time.Millisecond)
	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "a1", func() error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	require.NoError(t, c.Do(context.Background(), "a2", func() error { return nil }))
}

func TestDo_ReturnsFnError(t *testing.T) {
	t.Parallel()

	c := New(0)
	err := c.Do(context.Background(), "a1", func() error { return biddingerrors.ErrNotWinner })
	require.ErrorIs(t, err, biddingerrors.ErrNotWinner)
	// the lane is released after an error
	require.NoError(t, c.Do(context.Background(), "a1", func() error { return nil }))
}
