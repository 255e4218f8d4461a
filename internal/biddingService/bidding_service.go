package bidding

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"auction-engine/internal/autobid"
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/clock"
	"auction-engine/internal/coordinator"
	"auction-engine/internal/ledger"
	"auction-engine/internal/metrics"
	"auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/validator"
	"auction-engine/utils"
)

// EventPublisher receives every event in commit order
type EventPublisher interface {
	Publish(evt models.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(models.Event) {}

// Options tunes a BiddingService. Zero values fall back to defaults.
type Options struct {
	Clock            clock.Clock
	Publisher        EventPublisher
	AdmissionTimeout time.Duration
	DefaultIncrement decimal.Decimal
	StoreTimeout     time.Duration
}

// auctionLane is everything owned by one auction. It is only mutated inside
// that auction's critical section.
type auctionLane struct {
	ledger *ledger.Ledger
	book   *autobid.Book
}

// BiddingService is the real-time bidding engine: it owns every auction's
// ledger and routes all mutations through the coordinator
type BiddingService struct {
	repo             repository.AuctionStore
	clock            clock.Clock
	events           EventPublisher
	coord            *coordinator.Coordinator
	defaultIncrement decimal.Decimal
	storeTimeout     time.Duration

	mu    sync.RWMutex
	lanes map[string]*auctionLane
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionStore, opts Options) *BiddingService {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Publisher == nil {
		opts.Publisher = discardPublisher{}
	}
	if !opts.DefaultIncrement.IsPositive() {
		opts.DefaultIncrement = decimal.NewFromInt(1)
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &BiddingService{
		repo:             repo,
		clock:            opts.Clock,
		events:           opts.Publisher,
		coord:            coordinator.New(opts.AdmissionTimeout),
		defaultIncrement: opts.DefaultIncrement,
		storeTimeout:     opts.StoreTimeout,
		lanes:            make(map[string]*auctionLane),
	}
}

// Restore loads every stored auction into memory and catches up on phase
// changes missed while the process was down
func (s *BiddingService) Restore(ctx context.Context) error {
	auctions, err := s.repo.ListAuctions(ctx)
	if err != nil {
		return fmt.Errorf("service: failed to load auctions: %w", err)
	}

	var repaired []*auctionLane
	s.mu.Lock()
	for _, a := range auctions {
		doc, changed := ledger.Reconcile(a)
		l := &auctionLane{ledger: ledger.New(doc), book: autobid.NewBook(a.ID)}
		s.lanes[a.ID] = l
		if changed {
			repaired = append(repaired, l)
		}
	}
	s.mu.Unlock()

	for _, l := range repaired {
		snap := l.ledger.Snapshot()
		utils.Warn("service: stored auction lagged its bid history, repaired", map[string]any{
			"auction_id": snap.AuctionID,
			"status":     snap.Status,
			"current":    snap.CurrentBid.String(),
		})
		if err := s.coord.Do(ctx, snap.AuctionID, func() error {
			s.persist(l, nil)
			return nil
		}); err != nil {
			return fmt.Errorf("service: failed to rewrite auction %s: %w", snap.AuctionID, err)
		}
	}

	utils.Info("service: auctions restored", map[string]any{
		"count":    len(auctions),
		"repaired": len(repaired),
	})
	_, err = s.TickScheduler(ctx, s.clock.Now())
	return err
}

func (s *BiddingService) lane(auctionID string) (*auctionLane, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}
	s.mu.RLock()
	l, ok := s.lanes[auctionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("service: auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return l, nil
}

func (s *BiddingService) allLanes() []*auctionLane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auctionLane, 0, len(s.lanes))
	for _, l := range s.lanes {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ledger.ID() < out[j].ledger.ID() })
	return out
}

// CreateAuction validates def, stores a new auction and returns its id
func (s *BiddingService) CreateAuction(ctx context.Context, def models.AuctionDefinition) (string, error) {
	now := s.clock.Now()
	start := def.AuctionStartTime
	if start.IsZero() {
		start = now
	}
	end := def.AuctionEndTime
	if end.IsZero() && def.AuctionDuration > 0 {
		end = start.Add(def.AuctionDuration)
	}
	if err := validateDefinition(def, start, end); err != nil {
		return "", err
	}

	increment := def.MinIncrement
	if !increment.IsPositive() {
		increment = s.defaultIncrement
	}

	auction := models.AuctionProperty{
		ID:               utils.GenerateID(),
		SellerID:         def.SellerID,
		SellerName:       def.SellerName,
		Title:            def.Title,
		Description:      def.Description,
		Address:          def.Address,
		StartingPrice:    def.StartingPrice,
		CurrentBid:       def.StartingPrice,
		BuyNowPrice:      def.BuyNowPrice,
		MinIncrement:     increment,
		AuctionStartTime: start,
		AuctionEndTime:   end,
		AuctionDuration:  end.Sub(start),
		Status:           models.StatusUpcoming,
		WatchlistUsers:   []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return "", fmt.Errorf("service: failed to create auction %q: %w", def.Title, err)
	}

	l := &auctionLane{ledger: ledger.New(auction), book: autobid.NewBook(auction.ID)}
	s.mu.Lock()
	s.lanes[auction.ID] = l
	s.mu.Unlock()

	if _, err := s.sweepAuction(ctx, l, now); err != nil {
		return auction.ID, err
	}
	return auction.ID, nil
}

func validateDefinition(def models.AuctionDefinition, start, end time.Time) error {
	switch {
	case def.SellerID == "" || def.Title == "":
		return fmt.Errorf("service: %w - missing sellerID or title", biddingerrors.ErrInvalidAuction)
	case !def.StartingPrice.IsPositive():
		return fmt.Errorf("service: %w - non-positive starting price", biddingerrors.ErrInvalidAuction)
	case def.BuyNowPrice.IsNegative():
		return fmt.Errorf("service: %w - negative buy-now price", biddingerrors.ErrInvalidAuction)
	case def.BuyNowPrice.IsPositive() && !def.BuyNowPrice.GreaterThan(def.StartingPrice):
		return fmt.Errorf("service: %w - buy-now price must exceed starting price", biddingerrors.ErrInvalidAuction)
	case def.MinIncrement.IsNegative():
		return fmt.Errorf("service: %w - negative minimum increment", biddingerrors.ErrInvalidAuction)
	case end.IsZero():
		return fmt.Errorf("service: %w - missing end time or duration", biddingerrors.ErrInvalidAuction)
	case !end.After(start):
		return fmt.Errorf("service: %w - end time must be after start time", biddingerrors.ErrInvalidAuction)
	}
	return nil
}

// PlaceBid submits a bid through the auction's critical section. On success
// it returns the accepted entry; business rejections come back as
// *biddingerrors.Rejection. Auto-bid counter-bids triggered by the entry are
// committed before PlaceBid returns.
func (s *BiddingService) PlaceBid(ctx context.Context, req models.BidRequest) (models.BidEntry, error) {
	if req.Type == "" {
		req.Type = models.BidTypeRegular
	}
	if err := validator.ValidateRequest(req); err != nil {
		return models.BidEntry{}, err
	}
	l, err := s.lane(req.AuctionID)
	if err != nil {
		return models.BidEntry{}, err
	}

	var accepted models.BidEntry
	err = s.coord.Do(ctx, req.AuctionID, func() error {
		entry, err := s.appendLocked(l, req)
		if err != nil {
			return err
		}
		accepted = entry
		if entry.BidType != models.BidTypeBuyNow {
			s.cascadeLocked(l)
		}
		return nil
	})
	if err != nil {
		return models.BidEntry{}, err
	}
	return accepted, nil
}

// appendLocked runs the ledger append and its side effects. Caller holds the
// auction's critical section.
func (s *BiddingService) appendLocked(l *auctionLane, req models.BidRequest) (models.BidEntry, error) {
	now := s.clock.Now()
	if _, err := s.catchUpLocked(l, now); err != nil {
		return models.BidEntry{}, err
	}
	prev := l.ledger.Snapshot()

	snap, entry, err := l.ledger.AttemptAppend(req, utils.GenerateID(), now)
	if err != nil {
		if reason, ok := biddingerrors.ReasonOf(err); ok {
			metrics.BidsRejected.WithLabelValues(string(reason)).Inc()
		}
		return models.BidEntry{}, err
	}
	metrics.BidsAccepted.WithLabelValues(string(entry.BidType)).Inc()

	s.persist(l, &entry)
	s.emit(l, models.EventNewBid, &entry, snap, s.audience(snap)...)
	if prev.HighestBidderID != "" && prev.HighestBidderID != entry.BidderID {
		s.emit(l, models.EventOutbid, &entry, snap, prev.HighestBidderID)
	}

	if snap.Status == models.StatusEnded {
		metrics.Transitions.WithLabelValues(string(models.StatusEnded)).Inc()
		utils.Info("service: auction ended by buy-now", map[string]any{
			"auction_id": snap.AuctionID,
			"winner_id":  snap.HighestBidderID,
			"amount":     snap.CurrentBid.String(),
		})
		s.closeOutLocked(l, snap)
	}
	return entry, nil
}

// cascadeLocked lets standing instructions answer the latest entry. Caller
// holds the auction's critical section.
func (s *BiddingService) cascadeLocked(l *auctionLane) {
	steps, err := autobid.Cascade(l.book, l.ledger.Snapshot(), func(req models.BidRequest) (models.Snapshot, error) {
		_, err := s.appendLocked(l, req)
		return l.ledger.Snapshot(), err
	})
	metrics.AutoBidSteps.Observe(float64(steps))
	if err != nil {
		utils.Error("service: auto-bid cascade stopped", map[string]any{
			"auction_id": l.ledger.ID(),
			"steps":      steps,
			"error":      err.Error(),
		})
	}
}

// RegisterAutoBid stores a standing ceiling for a bidder. If another bidder
// currently leads, the new instruction answers immediately.
func (s *BiddingService) RegisterAutoBid(ctx context.Context, req models.AutoBidRequest) (models.AutoBidInstruction, error) {
	if req.AuctionID == "" || req.BidderID == "" {
		return models.AutoBidInstruction{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidAutoBid)
	}
	if !req.Ceiling.IsPositive() {
		return models.AutoBidInstruction{}, fmt.Errorf("service: %w - non-positive ceiling", biddingerrors.ErrInvalidAutoBid)
	}
	if req.Increment.IsNegative() {
		return models.AutoBidInstruction{}, fmt.Errorf("service: %w - negative increment", biddingerrors.ErrInvalidAutoBid)
	}
	l, err := s.lane(req.AuctionID)
	if err != nil {
		return models.AutoBidInstruction{}, err
	}

	var registered models.AutoBidInstruction
	err = s.coord.Do(ctx, req.AuctionID, func() error {
		if _, err := s.catchUpLocked(l, s.clock.Now()); err != nil {
			return err
		}
		snap := l.ledger.Snapshot()
		if snap.Status != models.StatusActive && snap.Status != models.StatusUpcoming {
			return biddingerrors.Reject(biddingerrors.ReasonAuctionNotActive, "auction %s is %s", snap.AuctionID, snap.Status)
		}
		if !req.Ceiling.GreaterThan(snap.CurrentBid) {
			return biddingerrors.Reject(biddingerrors.ReasonStaleAmount, "ceiling must exceed current bid %s", snap.CurrentBid)
		}

		increment := decimal.Max(req.Increment, snap.MinIncrement)
		registered = l.book.Register(req, increment, s.clock.Now())

		if snap.Status == models.StatusActive && snap.HighestBidderID != "" && snap.HighestBidderID != req.BidderID {
			s.cascadeLocked(l)
		}
		for _, in := range l.book.List() {
			if in.BidderID == req.BidderID {
				registered = in
			}
		}
		return nil
	})
	if err != nil {
		return models.AutoBidInstruction{}, err
	}
	return registered, nil
}

// ListAutoBids returns the auction's standing instructions in registration order
func (s *BiddingService) ListAutoBids(auctionID string) ([]models.AutoBidInstruction, error) {
	l, err := s.lane(auctionID)
	if err != nil {
		return nil, err
	}
	return l.book.List(), nil
}

// GetSnapshot returns the auction's current status and high bid. The value
// may be stale and must not drive a mutation.
func (s *BiddingService) GetSnapshot(auctionID string) (models.Snapshot, error) {
	l, err := s.lane(auctionID)
	if err != nil {
		return models.Snapshot{}, err
	}
	return l.ledger.Snapshot(), nil
}

// ListAuctions returns a snapshot of every auction ordered by start time
func (s *BiddingService) ListAuctions() []models.Snapshot {
	lanes := s.allLanes()
	out := make([]models.Snapshot, 0, len(lanes))
	for _, l := range lanes {
		out = append(out, l.ledger.Snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AuctionStartTime.Before(out[j].AuctionStartTime)
	})
	return out
}

// GetBidsForAuction returns all bids for a specific auction
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]models.BidEntry, error) {
	l, err := s.lane(auctionID)
	if err != nil {
		return nil, err
	}
	history := l.ledger.History()
	if len(history) == 0 {
		return nil, fmt.Errorf("service: auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return history, nil
}

// Watch adds userID to the auction's watchlist
func (s *BiddingService) Watch(ctx context.Context, auctionID, userID string) (models.Snapshot, error) {
	return s.setWatching(ctx, auctionID, userID, true)
}

// Unwatch removes userID from the auction's watchlist
func (s *BiddingService) Unwatch(ctx context.Context, auctionID, userID string) (models.Snapshot, error) {
	return s.setWatching(ctx, auctionID, userID, false)
}

func (s *BiddingService) setWatching(ctx context.Context, auctionID, userID string, watching bool) (models.Snapshot, error) {
	if userID == "" {
		return models.Snapshot{}, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}
	l, err := s.lane(auctionID)
	if err != nil {
		return models.Snapshot{}, err
	}
	var snap models.Snapshot
	err = s.coord.Do(ctx, auctionID, func() error {
		var changed bool
		snap, changed = l.ledger.SetWatching(userID, watching, s.clock.Now())
		if changed {
			s.persist(l, nil)
		}
		return nil
	})
	return snap, err
}
