package repositories

import (
	"encoding/base64"
	"strings"

	"ticketing/internal/domain/models"
)

// The relational store keeps attendees and QR payloads as delimited text
// columns. Fields are pipe-separated, records double-semicolon-separated.
const (
	fieldSep  = "|"
	recordSep = ";;"
)

func encodeAttendees(attendees []models.Attendee) string {
	recs := make([]string, 0, len(attendees))
	for _, a := range attendees {
		recs = append(recs, strings.Join([]string{
			sanitizeField(a.Name),
			sanitizeField(a.Email),
			sanitizeField(a.Phone),
			sanitizeField(a.Gender),
			sanitizeField(a.TicketType),
		}, fieldSep))
	}
	return strings.Join(recs, recordSep)
}

func parseAttendees(raw string) []models.Attendee {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []models.Attendee
	for _, rec := range strings.Split(raw, recordSep) {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		parts := strings.Split(rec, fieldSep)
		for len(parts) < 5 {
			parts = append(parts, "")
		}
		out = append(out, models.Attendee{
			Name:       parts[0],
			Email:      parts[1],
			Phone:      parts[2],
			Gender:     parts[3],
			TicketType: parts[4],
		})
	}
	return out
}

// QR payloads are free-form JSON that may itself contain the separators, so
// each payload is base64-wrapped before joining.
func encodeQRCodes(codes []string) string {
	recs := make([]string, 0, len(codes))
	for _, c := range codes {
		recs = append(recs, base64.StdEncoding.EncodeToString([]byte(c)))
	}
	return strings.Join(recs, recordSep)
}

func parseQRCodes(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(raw, recordSep) {
		if c == "" {
			continue
		}
		// Rows written before the wrapping hold plain JSON; keep those as-is.
		if decoded, err := base64.StdEncoding.DecodeString(c); err == nil {
			out = append(out, string(decoded))
			continue
		}
		out = append(out, c)
	}
	return out
}

// sanitizeField strips the delimiters so a crafted attendee name cannot
// shift neighbouring columns on re-parse.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, recordSep, " ")
	return strings.ReplaceAll(s, fieldSep, "/")
}
