package models

import (
	"fmt"
	"time"
)

// Status value written to and matched against the ledger's status column.
// Matching is case-insensitive on the read side.
const StatusConfirmed = "confirmada"

// DateLayout is the wire format for appointment dates.
const DateLayout = "2006-01-02"

// HourLayout is the wire format for appointment hours.
const HourLayout = "15:04"

// Booking is a single appointment request as submitted by a visitor.
// It is not persisted by this service; the spreadsheet ledger is the
// system of record.
type Booking struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	Date             string    `json:"date"` // YYYY-MM-DD
	Hour             string    `json:"hour"` // HH:MM
	PropertyInterest string    `json:"property_interest,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	RequesterID      string    `json:"requester_id,omitempty"`
	Source           string    `json:"source,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// StartTime resolves the booking's date and hour in the given location.
// Both fields must already be shape-validated.
func (b *Booking) StartTime(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+HourLayout, b.Date+" "+b.Hour, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve booking time: %w", err)
	}
	return t, nil
}

// Outcome is the result of a single write against one external target.
type Outcome struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"` // event id or written range
	Link      string `json:"link,omitempty"`      // calendar event link
	Reason    string `json:"reason,omitempty"`    // failure reason
}

// SuccessOutcome builds a successful outcome with a target reference.
func SuccessOutcome(reference string) Outcome {
	return Outcome{Success: true, Reference: reference}
}

// FailureOutcome builds a failed outcome with a reason.
func FailureOutcome(reason string) Outcome {
	return Outcome{Success: false, Reason: reason}
}

// BookingResult is the assembled result of one dual-write booking attempt.
// Accepted follows the ledger outcome: the spreadsheet is what availability
// reads and staff follow-up depend on, so a calendar failure degrades the
// response without rejecting the booking.
type BookingResult struct {
	Accepted  bool    `json:"accepted"`
	BookingID string  `json:"booking_id"`
	Calendar  Outcome `json:"calendar"`
	Ledger    Outcome `json:"ledger"`
	Message   string  `json:"message"`
}

// HourLabel formats an hour of day as a canonical "HH:00" slot label.
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
