package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing/internal/domain/models"
)

// ValidateCoupon prices a coupon against a draft order without consuming a
// usage slot.
func (a API) ValidateCoupon(c *gin.Context) {
	var req struct {
		Code        string              `json:"code" binding:"required"`
		OrderAmount float64             `json:"order_amount" binding:"required"`
		Tickets     models.TicketCounts `json:"tickets"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	result, err := a.discountService().ValidateCoupon(c.Request.Context(), req.Code, req.OrderAmount, req.Tickets)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "coupon": result})
}
