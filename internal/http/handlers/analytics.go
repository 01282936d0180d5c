package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing/internal/http/middleware"
	"ticketing/internal/utils"
)

func (a API) AnalyticsRows(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	rows, err := a.analyticsService(reqID).EventRows(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if rows == nil {
		rows = []utils.EventAnalyticsRow{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analytics": rows})
}

func (a API) AnalyticsCSV(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	rows, err := a.analyticsService(reqID).EventRows(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := utils.WriteAnalyticsCSV(&buf, rows); err != nil {
		RespondError(c, http.StatusInternalServerError, "csv render failed", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="analytics.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (a API) EventSummary(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	summary, err := a.analyticsService(reqID).EventSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

// AttendeesCSV exports one event's attendee list for the door staff.
func (a API) AttendeesCSV(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	eventID := c.Param("id")

	bookings, err := a.analyticsService(reqID).AttendeesForExport(c.Request.Context(), eventID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := utils.WriteAttendeesCSV(&buf, bookings); err != nil {
		RespondError(c, http.StatusInternalServerError, "csv render failed", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendees-`+eventID+`.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
