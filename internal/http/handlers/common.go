package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"ticketing/internal/config"
	"ticketing/internal/http/middleware"
	"ticketing/internal/notify"
	"ticketing/internal/repositories"
	"ticketing/internal/services"
)

// API carries the wired dependencies. Handlers build their services per
// request so every log line carries the request id.
type API struct {
	Env        config.Env
	DB         *sql.DB
	Relational repositories.BookingMySQLRepo
	Document   repositories.BookingMongoRepo
	Events     repositories.EventRepo
	Coupons    repositories.CouponRepo
	Loyalty    repositories.LoyaltyRepo
	CheckIns   repositories.CheckInRedisStore
	Gateway    services.PaymentGateway
	Mailer     notify.EmailPublisher
}

func (a API) store(reqID string) repositories.BookingStore {
	return repositories.BookingStore{
		Relational: a.Relational,
		Document:   a.Document,
		Timeout:    a.Env.StoreTimeout,
		RequestID:  reqID,
	}
}

func (a API) loyaltyService(reqID string) services.LoyaltyService {
	return services.LoyaltyService{Store: a.Loyalty, RequestID: reqID}
}

func (a API) discountService() services.DiscountService {
	return services.DiscountService{Coupons: a.Coupons}
}

func (a API) bookingService(reqID string) services.BookingService {
	return services.BookingService{
		Events:    a.Events,
		Store:     a.store(reqID),
		Gateway:   a.Gateway,
		Tickets:   services.TicketService{},
		Discounts: a.discountService(),
		Loyalty:   a.loyaltyService(reqID),
		Mailer:    a.Mailer,
		RequestID: reqID,
	}
}

func (a API) checkinService(reqID string) services.CheckInService {
	return services.CheckInService{
		Store:     a.CheckIns,
		Bookings:  a.store(reqID),
		RequestID: reqID,
	}
}

func (a API) analyticsService(reqID string) services.AnalyticsService {
	return services.AnalyticsService{
		Bookings: a.store(reqID),
		CheckIns: a.CheckIns,
	}
}

// RespondError sends the standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	payload := gin.H{
		"error":      message,
		"request_id": middleware.GetRequestID(c),
	}
	if err != nil {
		payload["details"] = err.Error()
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		RespondError(c, http.StatusBadRequest, "request body is required", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request payload", err)
		return false
	}
	return true
}
