package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// TicketService builds the QR payloads and the PDF ticket artifact for a
// booking. Both are deterministic for a given booking so a re-download
// reproduces the original purchase artifact.
type TicketService struct{}

// TicketNumber is embedded in the QR payload and keyed on at check-in. It
// carries the booking id so manual check-ins can be correlated.
func TicketNumber(bookingID string, seq int) string {
	return fmt.Sprintf("TKT-%s-%03d", bookingID, seq)
}

// BuildQRPayloads returns one JSON payload per attendee.
func (s TicketService) BuildQRPayloads(b models.Booking) ([]string, error) {
	out := make([]string, 0, len(b.Attendees))
	for i, a := range b.Attendees {
		payload := models.TicketPayload{
			TicketNumber: TicketNumber(b.BookingID, i+1),
			BookingID:    b.BookingID,
			AttendeeName: a.Name,
			EventID:      b.EventID,
			EventTitle:   b.EventTitle,
			EventDate:    b.EventDate,
			EventTime:    b.EventTime,
			TicketType:   a.TicketType,
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.InternalError{Msg: "qr payload encode failed", Err: err}
		}
		out = append(out, string(raw))
	}
	return out, nil
}

// GeneratePDF renders one page per attendee: event block, attendee block,
// QR raster, instructions footer.
func (s TicketService) GeneratePDF(b models.Booking, qrPayloads []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.BookingID, false)

	for i, a := range b.Attendees {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 20)
		pdf.Cell(0, 12, b.EventTitle)
		pdf.Ln(14)

		pdf.SetFont("Helvetica", "", 12)
		for _, line := range []string{
			fmt.Sprintf("Date        : %s", b.EventDate),
			fmt.Sprintf("Time        : %s", b.EventTime),
			fmt.Sprintf("Venue       : %s", b.EventVenue),
			fmt.Sprintf("Booking ID  : %s", b.BookingID),
		} {
			pdf.Cell(0, 7, line)
			pdf.Ln(7)
		}
		pdf.Ln(4)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Attendee")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 12)
		for _, line := range []string{
			fmt.Sprintf("Name        : %s", a.Name),
			fmt.Sprintf("Ticket Type : %s", a.TicketType),
			fmt.Sprintf("Ticket No   : %s", TicketNumber(b.BookingID, i+1)),
		} {
			pdf.Cell(0, 7, line)
			pdf.Ln(7)
		}

		if i < len(qrPayloads) {
			png, err := qrcode.Encode(qrPayloads[i], qrcode.Medium, 256)
			if err != nil {
				return nil, domain.InternalError{Msg: "qr encode failed", Err: err}
			}
			name := fmt.Sprintf("qr-%s-%d", b.BookingID, i+1)
			pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
			pdf.ImageOptions(name, 140, 40, 50, 50, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}

		pdf.Ln(10)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6,
			"Present this QR code at the venue entrance. Each ticket admits one attendee and can be scanned once. "+
				"Doors open 30 minutes before the event.", "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.InternalError{Msg: "pdf render failed", Err: err}
	}
	return buf.Bytes(), nil
}
