package notify

import (
	"strings"
	"testing"

	"citas/internal/models"
)

func TestFormatAccepted(t *testing.T) {
	b := &models.Booking{
		Name:             "Ana García",
		Phone:            "5551234567",
		Email:            "ana@x.com",
		Date:             "2026-09-15",
		Hour:             "10:00",
		PropertyInterest: "Modelo Encino",
	}
	res := &models.BookingResult{
		Accepted: true,
		Calendar: models.Outcome{Success: true, Reference: "evt-1", Link: "https://cal/evt-1"},
		Ledger:   models.SuccessOutcome("Citas!A5:J5"),
	}

	text := formatAccepted(b, res)

	for _, want := range []string{"2026-09-15", "10:00", "Ana García", "5551234567", "Modelo Encino", "https://cal/evt-1"} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Notas:") {
		t.Error("empty notes must be omitted")
	}
}

func TestFormatAcceptedCalendarFailure(t *testing.T) {
	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2026-09-15", Hour: "10:00"}
	res := &models.BookingResult{
		Accepted: true,
		Calendar: models.FailureOutcome("unreachable"),
		Ledger:   models.SuccessOutcome("Citas!A6:J6"),
	}

	text := formatAccepted(b, res)

	if !strings.Contains(text, "contactar al cliente manualmente") {
		t.Errorf("expected manual follow-up warning:\n%s", text)
	}
}
