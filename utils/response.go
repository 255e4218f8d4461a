package utils

import (
	"errors"

	"github.com/gin-gonic/gin"

	"auction-engine/internal/biddingerrors"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. Rejected bids also carry
// their machine-readable reason.
func JSONError(c *gin.Context, status int, err error, message string) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	var rej *biddingerrors.Rejection
	if errors.As(err, &rej) {
		body["reason"] = rej.Reason
	}
	c.JSON(status, body)
}
