package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	googlegw "citas/internal/google"
	"citas/internal/metrics"
	"citas/internal/models"
)

// CalendarWriter is the calendar-side write contract.
type CalendarWriter interface {
	CreateEvent(ctx context.Context, b *models.Booking) (eventID, link string, err error)
}

// LedgerWriter is the ledger-side write contract.
type LedgerWriter interface {
	AppendRow(ctx context.Context, b *models.Booking) (ref string, err error)
}

// AvailabilityChecker re-checks a slot against the merged occupancy views.
type AvailabilityChecker interface {
	SlotFree(ctx context.Context, date, hour string) (bool, error)
}

// Notifier tells sales staff about an accepted booking. Best effort.
type Notifier interface {
	BookingAccepted(b *models.Booking, res *models.BookingResult)
}

// Coordinator runs one booking attempt: validate, optionally re-check the
// slot under a per-slot lock, then write to both external targets
// concurrently. The two writes are independent; one side failing never
// aborts or cancels the other. Acceptance follows the ledger outcome.
type Coordinator struct {
	validator *Validator
	calendar  CalendarWriter
	ledger    LedgerWriter
	checker   AvailabilityChecker
	notifier  Notifier
	locks     *slotLocks
	timeout   time.Duration
	tz        *time.Location
	logger    *zerolog.Logger

	onAccepted func(date string)
}

func NewCoordinator(validator *Validator, calendarW CalendarWriter, ledgerW LedgerWriter, timeout time.Duration, tz *time.Location, logger *zerolog.Logger) *Coordinator {
	return &Coordinator{
		validator: validator,
		calendar:  calendarW,
		ledger:    ledgerW,
		timeout:   timeout,
		tz:        tz,
		logger:    logger,
	}
}

// EnforceCapacity switches from advisory to enforced capacity: booking
// attempts for the same slot are serialized in-process and re-checked
// against availability before the dual write. Without it two concurrent
// requests for the last slot may both succeed, which is the documented
// behavior of the advisory model.
func (c *Coordinator) EnforceCapacity(checker AvailabilityChecker) {
	c.locks = newSlotLocks()
	c.checker = checker
}

// UseNotifier enables staff notifications for accepted bookings.
func (c *Coordinator) UseNotifier(n Notifier) {
	c.notifier = n
}

// OnAccepted registers a hook invoked with the booking date after each
// accepted booking. Used to drop cached availability.
func (c *Coordinator) OnAccepted(fn func(date string)) {
	c.onAccepted = fn
}

// ErrSlotTaken is returned in enforced-capacity mode when the re-check
// finds the slot no longer free.
type ErrSlotTaken struct {
	Date string
	Hour string
}

func (e *ErrSlotTaken) Error() string {
	return fmt.Sprintf("slot %s %s is no longer available", e.Date, e.Hour)
}

// Book validates the request and performs the dual write. Validation
// failures return before any I/O. The returned result always carries one
// outcome per target; partial failure is surfaced, never collapsed.
func (c *Coordinator) Book(ctx context.Context, b *models.Booking) (*models.BookingResult, error) {
	if err := c.validator.Validate(b); err != nil {
		metrics.IncBookingResult("validation_failed")
		return nil, err
	}

	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().In(c.tz)

	if c.locks != nil {
		release := c.locks.Acquire(b.Date, b.Hour)
		defer release()

		free, err := c.checker.SlotFree(ctx, b.Date, b.Hour)
		if err != nil {
			c.logger.Warn().Err(err).Msg("slot re-check failed, proceeding with write")
		} else if !free {
			metrics.IncBookingResult("slot_taken")
			return nil, &ErrSlotTaken{Date: b.Date, Hour: b.Hour}
		}
	}

	calOut, ledOut := c.dualWrite(ctx, b)

	res := &models.BookingResult{
		Accepted:  ledOut.Success,
		BookingID: b.ID,
		Calendar:  calOut,
		Ledger:    ledOut,
	}
	res.Message = resultMessage(b, res)

	if res.Accepted {
		metrics.IncBookingResult("accepted")
		if c.onAccepted != nil {
			c.onAccepted(b.Date)
		}
		if c.notifier != nil {
			go c.notifier.BookingAccepted(b, res)
		}
	} else {
		metrics.IncBookingResult("rejected")
	}

	c.logger.Info().
		Str("booking_id", b.ID).
		Str("date", b.Date).
		Str("hour", b.Hour).
		Bool("accepted", res.Accepted).
		Bool("calendar_ok", calOut.Success).
		Bool("ledger_ok", ledOut.Success).
		Msg("booking attempt completed")

	return res, nil
}

// dualWrite issues both target writes concurrently and joins on both. Each
// branch converts its error into a failure outcome so a rejected branch
// cannot abort its sibling.
func (c *Coordinator) dualWrite(ctx context.Context, b *models.Booking) (calOut, ledOut models.Outcome) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eventID, link, err := c.calendar.CreateEvent(ctx, b)
		if err != nil {
			metrics.IncGatewayFailure("calendar", googlegw.FailureKind(err))
			c.logger.Error().Err(err).Str("booking_id", b.ID).Msg("calendar write failed")
			calOut = models.FailureOutcome(err.Error())
			return
		}
		calOut = models.SuccessOutcome(eventID)
		calOut.Link = link
	}()
	go func() {
		defer wg.Done()
		ref, err := c.ledger.AppendRow(ctx, b)
		if err != nil {
			metrics.IncGatewayFailure("ledger", googlegw.FailureKind(err))
			c.logger.Error().Err(err).Str("booking_id", b.ID).Msg("ledger write failed")
			ledOut = models.FailureOutcome(err.Error())
			return
		}
		ledOut = models.SuccessOutcome(ref)
	}()
	wg.Wait()

	return calOut, ledOut
}

// resultMessage states only what actually happened; it never claims an
// invitation was sent when the calendar write failed.
func resultMessage(b *models.Booking, res *models.BookingResult) string {
	switch {
	case res.Ledger.Success && res.Calendar.Success:
		return fmt.Sprintf("Cita agendada exitosamente para el %s a las %s. Recibirás una invitación por email.", b.Date, b.Hour)
	case res.Ledger.Success:
		return fmt.Sprintf("Cita registrada para el %s a las %s. No fue posible crear el evento de calendario; no se envió invitación por email.", b.Date, b.Hour)
	case res.Calendar.Success:
		return "El evento de calendario fue creado, pero la cita no pudo registrarse. Por favor intenta de nuevo."
	default:
		return "No fue posible agendar la cita. Por favor intenta de nuevo más tarde."
	}
}
