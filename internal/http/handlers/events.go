package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketing/internal/domain/models"
	"ticketing/internal/http/middleware"
	"ticketing/internal/utils"
)

func (a API) ListEvents(c *gin.Context) {
	events, err := a.Events.List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": events})
}

func (a API) GetEvent(c *gin.Context) {
	event, err := a.Events.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "event": event})
}

type eventRequest struct {
	Title         string  `json:"title" binding:"required"`
	Description   string  `json:"description"`
	Date          string  `json:"date" binding:"required"`
	Time          string  `json:"time" binding:"required"`
	Venue         string  `json:"venue" binding:"required"`
	StandardPrice float64 `json:"standard_price"`
	VIPPrice      float64 `json:"vip_price"`
	Capacity      int     `json:"capacity"`
}

func (r eventRequest) validate(c *gin.Context) bool {
	if _, err := utils.ParseDate(r.Date); err != nil {
		RespondError(c, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return false
	}
	if r.StandardPrice < 0 || r.VIPPrice < 0 {
		RespondError(c, http.StatusBadRequest, "prices must not be negative", nil)
		return false
	}
	return true
}

func (a API) CreateEvent(c *gin.Context) {
	var req eventRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if !req.validate(c) {
		return
	}

	event := models.Event{
		EventID:       "EVT-" + strings.ToUpper(uuid.NewString()[:8]),
		OrganizerID:   middleware.GetUserID(c),
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		Time:          req.Time,
		Venue:         req.Venue,
		StandardPrice: req.StandardPrice,
		VIPPrice:      req.VIPPrice,
		Capacity:      req.Capacity,
		CreatedAt:     utils.NowUTC(),
	}
	if err := a.Events.Create(c.Request.Context(), event); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "event": event})
}

func (a API) UpdateEvent(c *gin.Context) {
	var req eventRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if !req.validate(c) {
		return
	}

	event := models.Event{
		EventID:       c.Param("id"),
		OrganizerID:   middleware.GetUserID(c),
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		Time:          req.Time,
		Venue:         req.Venue,
		StandardPrice: req.StandardPrice,
		VIPPrice:      req.VIPPrice,
		Capacity:      req.Capacity,
	}
	if err := a.Events.Update(c.Request.Context(), event); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "event": event})
}

func (a API) ListOrganizerEvents(c *gin.Context) {
	events, err := a.Events.ListByOrganizer(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": events})
}
