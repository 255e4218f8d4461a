package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_bidding_service.go -package=handler auction-engine/services/bidding/handler BiddingServiceInterface

type BiddingServiceInterface interface {
	CreateAuction(ctx context.Context, def model.AuctionDefinition) (string, error)
	ListAuctions() []model.Snapshot
	GetSnapshot(auctionID string) (model.Snapshot, error)
	GetBidsForAuction(auctionID string) ([]model.BidEntry, error)
	PlaceBid(ctx context.Context, req model.BidRequest) (model.BidEntry, error)
	RegisterAutoBid(ctx context.Context, req model.AutoBidRequest) (model.AutoBidInstruction, error)
	ListAutoBids(auctionID string) ([]model.AutoBidInstruction, error)
	ForceStart(ctx context.Context, auctionID string) (model.Snapshot, error)
	CloseAuction(ctx context.Context, auctionID string) (model.Snapshot, error)
	CancelAuction(ctx context.Context, auctionID string) (model.Snapshot, error)
	SettleAuction(ctx context.Context, auctionID, bidderID string) (model.Snapshot, error)
	Watch(ctx context.Context, auctionID, userID string) (model.Snapshot, error)
	Unwatch(ctx context.Context, auctionID, userID string) (model.Snapshot, error)
	GetUserBids(userID string) ([]model.UserBid, error)
	TickScheduler(ctx context.Context, now time.Time) ([]model.Transition, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	var req helpers.PlaceBidRequest
	if err := helpers.BindJSON(c, &req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bidType := model.BidType(req.BidType)
	if bidType == "" {
		bidType = model.BidTypeRegular
	}
	entry, err := h.service.PlaceBid(c.Request.Context(), model.BidRequest{
		AuctionID:  auctionID,
		BidderID:   req.BidderID,
		BidderName: req.BidderName,
		Amount:     req.Amount,
		Type:       bidType,
	})
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"amount":     req.Amount.String(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(entry), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     entry.BidID,
		"auction_id": auctionID,
		"bidder_id":  entry.BidderID,
		"amount":     entry.Amount.String(),
		"bid_type":   entry.BidType,
	})
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsHandler(c *gin.Context) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	bids, err := h.service.GetBidsForAuction(auctionID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.RespondError(c, "GetBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// RegisterAutoBidHandler handles POST /auctions/:auction_id/autobids
func (h *BiddingHandler) RegisterAutoBidHandler(c *gin.Context) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	var req helpers.AutoBidRequest
	if err := helpers.BindJSON(c, &req); err != nil {
		helpers.HandleBindError(c, "RegisterAutoBidHandler", err)
		return
	}

	in, err := h.service.RegisterAutoBid(c.Request.Context(), model.AutoBidRequest{
		AuctionID:  auctionID,
		BidderID:   req.BidderID,
		BidderName: req.BidderName,
		Ceiling:    req.Ceiling,
		Increment:  req.Increment,
	})
	if err != nil {
		helpers.RespondError(c, "RegisterAutoBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, in, "auto-bid registered successfully")
	helpers.LogSuccess("RegisterAutoBidHandler", "auto-bid registered", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  in.BidderID,
		"ceiling":    in.Ceiling.String(),
		"active":     in.Active,
	})
}

// ListAutoBidsHandler handles GET /auctions/:auction_id/autobids
func (h *BiddingHandler) ListAutoBidsHandler(c *gin.Context) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	list, err := h.service.ListAutoBids(auctionID)
	if err != nil {
		helpers.RespondError(c, "ListAutoBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	if list == nil {
		list = []model.AutoBidInstruction{}
	}
	utils.JSONResponse(c, http.StatusOK, list, "auto-bids retrieved successfully")
}

// GetUserBidsHandler handles GET /users/:user_id/bids
func (h *BiddingHandler) GetUserBidsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.service.GetUserBids(userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.RespondError(c, "GetUserBidsHandler", err, map[string]any{"user_id": userID})
		return
	}

	if bids == nil {
		bids = []model.UserBid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "user bids retrieved successfully")
	helpers.LogSuccess("GetUserBidsHandler", "user bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(bids),
	})
}
