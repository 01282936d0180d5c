package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketing/internal/http/middleware"
)

// ScanTicket records a check-in from a QR scan. A repeat scan of the same
// ticket returns 200 with already_checked_in set instead of an error.
func (a API) ScanTicket(c *gin.Context) {
	var req struct {
		Payload string `json:"payload" binding:"required"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	result, err := a.checkinService(reqID).CheckIn(c.Request.Context(), req.Payload)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyCheckedIn {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"success": true, "checkin": result})
}

func (a API) ManualCheckIn(c *gin.Context) {
	var req struct {
		BookingID    string `json:"booking_id" binding:"required"`
		AttendeeName string `json:"attendee_name" binding:"required"`
		EventID      string `json:"event_id" binding:"required"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	result, err := a.checkinService(reqID).ManualCheckIn(c.Request.Context(), req.BookingID, req.AttendeeName, req.EventID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyCheckedIn {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"success": true, "checkin": result})
}

func (a API) UndoCheckIn(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	if err := a.checkinService(reqID).UndoCheckIn(c.Request.Context(), c.Param("ticket")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a API) CheckInStats(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("recent", "10"))

	reqID := middleware.GetRequestID(c)
	stats, err := a.checkinService(reqID).Stats(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
