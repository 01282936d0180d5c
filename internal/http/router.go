package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	h "ticketing/internal/http/handlers"
	"ticketing/internal/http/middleware"
)

func NewRouter(api h.API) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(api.Env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	root := r.Group("/api")
	{
		root.GET("/health", api.Health)
		root.GET("/db-check", api.DBCheck)

		// Public catalog
		root.GET("/events", api.ListEvents)
		root.GET("/events/:id", api.GetEvent)
		root.POST("/coupons/validate", api.ValidateCoupon)

		authed := root.Group("")
		authed.Use(middleware.RequireAuth(api.Env.JWTSecret))
		{
			bookings := authed.Group("/bookings")
			bookings.POST("", api.CreateBooking)
			bookings.GET("", api.ListMyBookings)
			bookings.GET("/:id", api.GetBooking)
			bookings.POST("/:id/cancel", api.CancelBooking)
			bookings.GET("/:id/ticket", api.DownloadTicketPDF)
			bookings.POST("/:id/modifications", api.RecordModification)
			bookings.GET("/:id/modifications", api.ListModifications)

			loyalty := authed.Group("/loyalty")
			loyalty.GET("", api.LoyaltyAccount)
			loyalty.POST("/redeem", api.RedeemPoints)
		}

		organizer := root.Group("/organizer")
		organizer.Use(middleware.RequireAuth(api.Env.JWTSecret), middleware.RequireRole("organizer"))
		{
			organizer.POST("/events", api.CreateEvent)
			organizer.PUT("/events/:id", api.UpdateEvent)
			organizer.GET("/events", api.ListOrganizerEvents)
			organizer.GET("/events/:id/summary", api.EventSummary)
			organizer.GET("/events/:id/attendees.csv", api.AttendeesCSV)
			organizer.GET("/events/:id/checkins", api.CheckInStats)
			organizer.GET("/bookings", api.ListAllBookings)
			organizer.PUT("/bookings/:id", api.UpdateBookingStatus)
			organizer.GET("/analytics", api.AnalyticsRows)
			organizer.GET("/analytics.csv", api.AnalyticsCSV)

			checkin := organizer.Group("/checkin")
			checkin.POST("/scan", api.ScanTicket)
			checkin.POST("/manual", api.ManualCheckIn)
			checkin.DELETE("/:ticket", api.UndoCheckIn)
		}

		// Maintenance endpoints sit behind the pre-shared operator key, not
		// user auth.
		admin := root.Group("/admin")
		admin.Use(middleware.RequireOperatorKey(api.Env.OperatorKeyHash))
		{
			admin.POST("/loyalty/expire", api.ExpirePoints)
		}
	}

	return r
}
