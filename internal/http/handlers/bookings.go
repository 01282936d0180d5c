package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing/internal/domain/models"
	"ticketing/internal/http/middleware"
	"ticketing/internal/services"
)

func (a API) CreateBooking(c *gin.Context) {
	var req services.CreateBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.UserID = middleware.GetUserID(c)

	reqID := middleware.GetRequestID(c)
	result, err := a.bookingService(reqID).CreateBooking(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "booking": result})
}

func (a API) ListMyBookings(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	bookings, err := a.store(reqID).ListByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings})
}

func (a API) GetBooking(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	booking, err := a.store(reqID).GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if booking.UserID != middleware.GetUserID(c) {
		RespondError(c, http.StatusNotFound, "booking not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking})
}

func (a API) CancelBooking(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// An empty body is a plain cancellation without a reason.
	_ = c.ShouldBindJSON(&req)

	reqID := middleware.GetRequestID(c)
	result, err := a.bookingService(reqID).CancelBooking(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"booking":           result.Booking,
		"refund":            result.Refund,
		"already_cancelled": result.AlreadyCancelled,
	})
}

// DownloadTicketPDF re-renders the ticket artifact for the booking owner.
func (a API) DownloadTicketPDF(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	pdf, err := a.bookingService(reqID).RebuildTicketPDF(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="ticket-`+c.Param("id")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ListAllBookings is the organizer view across every event.
func (a API) ListAllBookings(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	bookings, err := a.store(reqID).ListAll(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings})
}

// UpdateBookingStatus lets an organizer flip a booking between the known
// statuses, for example confirming a pending payment after manual review.
func (a API) UpdateBookingStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	switch req.Status {
	case models.BookingStatusConfirmed, models.BookingStatusPending, models.BookingStatusCancelled:
	default:
		RespondError(c, http.StatusBadRequest, "unknown booking status", nil)
		return
	}

	reqID := middleware.GetRequestID(c)
	if err := a.store(reqID).UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking_id": c.Param("id"), "status": req.Status})
}

// RecordModification appends an audit entry for a booking field change.
func (a API) RecordModification(c *gin.Context) {
	var req struct {
		Field          string  `json:"field" binding:"required"`
		OldValue       string  `json:"old_value"`
		NewValue       string  `json:"new_value"`
		AdditionalCost float64 `json:"additional_cost"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	bookingID := c.Param("id")
	userID := middleware.GetUserID(c)

	booking, err := a.store(reqID).GetByID(c.Request.Context(), bookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if booking.UserID != userID {
		RespondError(c, http.StatusNotFound, "booking not found", nil)
		return
	}

	mod := models.BookingModification{
		BookingID:      bookingID,
		Field:          req.Field,
		OldValue:       req.OldValue,
		NewValue:       req.NewValue,
		AdditionalCost: req.AdditionalCost,
	}
	if err := a.loyaltyService(reqID).ModifyBooking(c.Request.Context(), mod); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "modification": mod})
}

func (a API) ListModifications(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	bookingID := c.Param("id")

	booking, err := a.store(reqID).GetByID(c.Request.Context(), bookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if booking.UserID != middleware.GetUserID(c) {
		RespondError(c, http.StatusNotFound, "booking not found", nil)
		return
	}

	mods, err := a.Loyalty.Modifications(c.Request.Context(), bookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if mods == nil {
		mods = []models.BookingModification{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "modifications": mods})
}
