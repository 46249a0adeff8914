package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"citas/internal/models"
)

// ValidationKind identifies which rule a booking request broke. Kinds are
// part of the HTTP contract.
type ValidationKind string

const (
	KindMissingField ValidationKind = "missing-field"
	KindBadEmail     ValidationKind = "bad-email"
	KindBadDate      ValidationKind = "bad-date"
	KindBadTime      ValidationKind = "bad-time"
	KindBadPhone     ValidationKind = "bad-phone"
	KindPastDate     ValidationKind = "past-date"
)

// ValidationError is returned before any gateway I/O; the caller can fix
// the input and resubmit.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe     = regexp.MustCompile(`^\d{2}:\d{2}$`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

const minPhoneDigits = 10

// Validator checks booking requests against shape and business rules.
type Validator struct {
	tz  *time.Location
	now func() time.Time
}

func NewValidator(tz *time.Location) *Validator {
	return &Validator{tz: tz, now: time.Now}
}

// Validate runs the rules in a fixed order and stops at the first failure.
// It performs no I/O.
func (v *Validator) Validate(b *models.Booking) error {
	required := []struct {
		field string
		value string
	}{
		{"name", b.Name},
		{"phone", b.Phone},
		{"email", b.Email},
		{"date", b.Date},
		{"hour", b.Hour},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{
				Kind:    KindMissingField,
				Field:   r.field,
				Message: fmt.Sprintf("Campo requerido faltante: %s", r.field),
			}
		}
	}

	if !emailRe.MatchString(b.Email) {
		return &ValidationError{Kind: KindBadEmail, Field: "email", Message: "Email inválido"}
	}

	if !dateRe.MatchString(b.Date) {
		return &ValidationError{Kind: KindBadDate, Field: "date", Message: "Formato de fecha inválido. Usa YYYY-MM-DD"}
	}

	if !timeRe.MatchString(b.Hour) {
		return &ValidationError{Kind: KindBadTime, Field: "hour", Message: "Formato de hora inválido. Usa HH:MM"}
	}
	if _, err := time.Parse(models.HourLayout, b.Hour); err != nil {
		return &ValidationError{Kind: KindBadTime, Field: "hour", Message: "Hora fuera de rango"}
	}

	digits := nonDigitRe.ReplaceAllString(b.Phone, "")
	if len(digits) < minPhoneDigits {
		return &ValidationError{
			Kind:    KindBadPhone,
			Field:   "phone",
			Message: fmt.Sprintf("Teléfono inválido. Debe tener al menos %d dígitos", minPhoneDigits),
		}
	}

	start, err := b.StartTime(v.tz)
	if err != nil {
		// Shape matched but the values are out of range, e.g. month 13.
		return &ValidationError{Kind: KindBadDate, Field: "date", Message: "Fecha u hora fuera de rango"}
	}
	if !start.After(v.now().In(v.tz)) {
		return &ValidationError{
			Kind:    KindPastDate,
			Field:   "date",
			Message: "La fecha y hora de la cita debe ser en el futuro",
		}
	}

	return nil
}
