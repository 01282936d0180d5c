package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing/internal/http/middleware"
)

func (a API) LoyaltyAccount(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	view, err := a.loyaltyService(reqID).AccountWithHistory(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "loyalty": view})
}

func (a API) RedeemPoints(c *gin.Context) {
	var req struct {
		Points int64 `json:"points" binding:"required"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	result, err := a.loyaltyService(reqID).RedeemPoints(c.Request.Context(), middleware.GetUserID(c), req.Points)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "redemption": result})
}

// ExpirePoints is the operator-only expiry sweep for one user's ledger.
func (a API) ExpirePoints(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	result, err := a.loyaltyService(reqID).CleanExpiredPoints(c.Request.Context(), req.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "expired": result})
}
