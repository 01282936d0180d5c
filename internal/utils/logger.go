package utils

import (
	"log"
	"strings"
)

// LogEvent writes one line per domain event. Messages should be key=value
// summaries; never log attendee contact data or QR payloads.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] %s request_id=%s %s", strings.ToUpper(module), action, req, message)
}
