package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-engine/internal/biddingerrors"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// BindJSON binds the request body into req and runs its own checks when it has any
func BindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return err
	}
	if v, ok := req.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// AuctionIDParam reads and checks the :auction_id path parameter. On a
// malformed id it writes a 404 and returns false.
func AuctionIDParam(c *gin.Context) (string, bool) {
	id := c.Param("auction_id")
	if !utils.ValidID(id) {
		err := fmt.Errorf("auction %q: %w", id, biddingerrors.ErrAuctionNotFound)
		utils.JSONError(c, http.StatusNotFound, err, "auction not found")
		return "", false
	}
	return id, true
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrInvalidAutoBid):
		return http.StatusBadRequest, "invalid auto-bid details"
	case errors.Is(err, biddingerrors.ErrInvalidSchedule):
		return http.StatusBadRequest, "invalid scheduler request"
	case errors.Is(err, biddingerrors.ErrStaleAmount):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrSelfBid):
		return http.StatusConflict, "bidder already holds the highest bid"
	case errors.Is(err, biddingerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not accepting bids"
	case errors.Is(err, biddingerrors.ErrBelowThreshold):
		return http.StatusConflict, "bid below buy-now price"
	case errors.Is(err, biddingerrors.ErrNotWinner):
		return http.StatusConflict, "bidder did not win the auction"
	case errors.Is(err, biddingerrors.ErrInvalidTransition):
		return http.StatusConflict, "auction cannot change to that status"
	case errors.Is(err, biddingerrors.ErrAuctionExists):
		return http.StatusConflict, "auction already exists"
	case errors.Is(err, biddingerrors.ErrAdmissionTimeout):
		return http.StatusServiceUnavailable, "auction is busy, retry later"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusOK, "no bids found for auction"
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusOK, "no bids found for user"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError maps err, writes the error envelope and logs the failure
func RespondError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["handler"] = handlerName
	ctx["error"] = err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		utils.Error(handlerName+": request failed", ctx)
		return
	}
	utils.Warn(handlerName+": request refused", ctx)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
