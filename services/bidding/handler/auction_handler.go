package handler

import (
	"context"
	"net/http"
	"time"

	model "auction-engine/internal/models"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := helpers.BindJSON(c, &req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	id, err := h.service.CreateAuction(c.Request.Context(), req.ToDefinition())
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{
			"seller_id": req.SellerID,
			"title":     req.Title,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.CreateAuctionResponse{AuctionID: id}, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created", map[string]any{
		"auction_id": id,
		"seller_id":  req.SellerID,
	})
}

// ListAuctionsHandler handles GET /auctions
func (h *BiddingHandler) ListAuctionsHandler(c *gin.Context) {
	snaps := h.service.ListAuctions()
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	if status := c.Query("status"); status != "" {
		filtered := snaps[:0:0]
		for _, s := range snaps {
			if string(s.Status) == status {
				filtered = append(filtered, s)
			}
		}
		snaps = filtered
	}
	utils.JSONResponse(c, http.StatusOK, snaps, "auctions retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	snap, err := h.service.GetSnapshot(auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, snap, "auction retrieved successfully")
}

// StartAuctionHandler handles POST /auctions/:auction_id/start
func (h *BiddingHandler) StartAuctionHandler(c *gin.Context) {
	h.lifecycle(c, "StartAuctionHandler", "auction started", h.service.ForceStart)
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *BiddingHandler) CloseAuctionHandler(c *gin.Context) {
	h.lifecycle(c, "CloseAuctionHandler", "auction closed", h.service.CloseAuction)
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *BiddingHandler) CancelAuctionHandler(c *gin.Context) {
	h.lifecycle(c, "CancelAuctionHandler", "auction cancelled", h.service.CancelAuction)
}

func (h *BiddingHandler) lifecycle(c *gin.Context, name, message string, op func(context.Context, string) (model.Snapshot, error)) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	snap, err := op(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, name, err, map[string]any{"auction_id": auctionID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, snap, message)
	helpers.LogSuccess(name, message, map[string]any{
		"auction_id": auctionID,
		"status":     snap.Status,
	})
}

// SettleAuctionHandler handles POST /auctions/:auction_id/settle
func (h *BiddingHandler) SettleAuctionHandler(c *gin.Context) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	var req helpers.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SettleAuctionHandler", err)
		return
	}
	snap, err := h.service.SettleAuction(c.Request.Context(), auctionID, req.BidderID)
	if err != nil {
		helpers.RespondError(c, "SettleAuctionHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
		})
		return
	}
	utils.JSONResponse(c, http.StatusOK, snap, "auction settled")
	helpers.LogSuccess("SettleAuctionHandler", "auction settled", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
		"amount":     snap.CurrentBid.String(),
	})
}

// WatchHandler handles PUT /auctions/:auction_id/watchers/:user_id
func (h *BiddingHandler) WatchHandler(c *gin.Context) {
	h.watchlist(c, "WatchHandler", h.service.Watch)
}

// UnwatchHandler handles DELETE /auctions/:auction_id/watchers/:user_id
func (h *BiddingHandler) UnwatchHandler(c *gin.Context) {
	h.watchlist(c, "UnwatchHandler", h.service.Unwatch)
}

func (h *BiddingHandler) watchlist(c *gin.Context, name string, op func(context.Context, string, string) (model.Snapshot, error)) {
	auctionID, ok := helpers.AuctionIDParam(c)
	if !ok {
		return
	}
	userID := c.Param("user_id")
	snap, err := op(c.Request.Context(), auctionID, userID)
	if err != nil {
		helpers.RespondError(c, name, err, map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
		})
		return
	}
	utils.JSONResponse(c, http.StatusOK, snap, "watchlist updated")
}

// TickSchedulerHandler handles POST /scheduler/tick
func (h *BiddingHandler) TickSchedulerHandler(c *gin.Context) {
	var req helpers.TickRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			helpers.HandleBindError(c, "TickSchedulerHandler", err)
			return
		}
	}
	var now time.Time
	if req.Now != nil {
		now = req.Now.UTC()
	}

	transitions, err := h.service.TickScheduler(c.Request.Context(), now)
	if transitions == nil {
		transitions = []model.Transition{}
	}
	if err != nil {
		helpers.RespondError(c, "TickSchedulerHandler", err, map[string]any{
			"applied": len(transitions),
		})
		return
	}
	utils.JSONResponse(c, http.StatusOK, transitions, "scheduler tick applied")
	helpers.LogSuccess("TickSchedulerHandler", "scheduler tick applied", map[string]any{
		"applied": len(transitions),
	})
}
