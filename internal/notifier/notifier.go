// Package notifier fans auction events out to in-process subscribers (the
// websocket change feed) and to external senders. Delivery problems are
// logged and counted; they never reach the bidding path.
package notifier

import (
	"context"
	"sync"
	"time"

	"auction-engine/internal/metrics"
	"auction-engine/internal/models"
	"auction-engine/utils"
)

// Sender delivers an event to an external collaborator
type Sender interface {
	Send(ctx context.Context, evt models.Event) error
	Name() string
}

// sendTimeout bounds a single external delivery
const sendTimeout = 5 * time.Second

type subscriber struct {
	auctionID string
	ch        chan models.Event
}

// Hub queues events in commit order and delivers them from a single goroutine
type Hub struct {
	queue   chan models.Event
	senders []Sender

	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	bufLen int
}

// NewHub creates a Hub whose queue and per-subscriber buffers hold bufferSize events
func NewHub(bufferSize int, senders ...Sender) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		queue:   make(chan models.Event, bufferSize),
		senders: senders,
		subs:    make(map[int]*subscriber),
		bufLen:  bufferSize,
	}
}

// Publish enqueues evt without blocking. When the queue is full the event is
// dropped and counted as a notifier failure.
func (h *Hub) Publish(evt models.Event) {
	select {
	case h.queue <- evt:
	default:
		metrics.DownstreamFailures.WithLabelValues("notifier").Inc()
		utils.Warn("notifier: queue full, dropping event", map[string]any{
			"auction_id": evt.AuctionID,
			"kind":       evt.Kind,
		})
	}
}

// Subscribe returns a channel of events for auctionID ("" for every auction)
// and a function that cancels the subscription and closes the channel.
func (h *Hub) Subscribe(auctionID string) (<-chan models.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	sub := &subscriber{auctionID: auctionID, ch: make(chan models.Event, h.bufLen)}
	h.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Subscribers counts the live subscriptions that receive events for auctionID
func (h *Hub) Subscribers(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sub := range h.subs {
		if sub.auctionID == "" || sub.auctionID == auctionID {
			n++
		}
	}
	return n
}

// Run delivers queued events until ctx is done, then closes all subscriptions
func (h *Hub) Run(ctx context.Context) error {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-h.queue:
			h.deliver(ctx, evt)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, evt models.Event) {
	h.mu.RLock()
	for _, sub := range h.subs {
		if sub.auctionID != "" && sub.auctionID != evt.AuctionID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			utils.Warn("notifier: dropping event for slow subscriber", map[string]any{
				"auction_id": evt.AuctionID,
				"kind":       evt.Kind,
			})
		}
	}
	h.mu.RUnlock()

	for _, s := range h.senders {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := s.Send(sendCtx, evt)
		cancel()
		if err != nil {
			metrics.DownstreamFailures.WithLabelValues(s.Name()).Inc()
			utils.Error("notifier: sender failed", map[string]any{
				"sender":     s.Name(),
				"auction_id": evt.AuctionID,
				"kind":       evt.Kind,
				"error":      err.Error(),
			})
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

// LogSender writes every event to the structured log
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(_ context.Context, evt models.Event) error {
	utils.Info("auction event", map[string]any{
		"event_id":   evt.ID,
		"auction_id": evt.AuctionID,
		"kind":       evt.Kind,
		"recipients": evt.Recipients,
	})
	return nil
}
