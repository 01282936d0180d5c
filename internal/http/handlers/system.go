package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ticketing"})
}

// DBCheck verifies the relational store is reachable. The document store is
// optional at runtime, so its absence is reported, not failed.
func (a API) DBCheck(c *gin.Context) {
	if a.DB == nil {
		RespondError(c, http.StatusInternalServerError, "database not connected", nil)
		return
	}
	var count int
	if err := a.DB.QueryRowContext(c.Request.Context(), "SELECT COUNT(*) FROM bookings").Scan(&count); err != nil {
		RespondError(c, http.StatusInternalServerError, "database query failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "database connection OK",
		"bookings_in_db": count,
		"document_store": a.Document.Collection != nil,
	})
}
