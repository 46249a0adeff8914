package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"citas/internal/models"
)

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) CreateEvent(ctx context.Context, b *models.Booking) (string, string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.String(1), args.Error(2)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) AppendRow(ctx context.Context, b *models.Booking) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) SlotFree(ctx context.Context, date, hour string) (bool, error) {
	args := m.Called(ctx, date, hour)
	return args.Bool(0), args.Error(1)
}

func newTestCoordinator(t *testing.T, cal CalendarWriter, led LedgerWriter) *Coordinator {
	t.Helper()
	tz, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	logger := zerolog.New(io.Discard)
	return NewCoordinator(NewValidator(tz), cal, led, 5*time.Second, tz, &logger)
}

func TestBookBothTargetsSucceed(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	c := newTestCoordinator(t, cal, led)
	ctx := context.Background()

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("evt-1", "https://cal/evt-1", nil).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("Citas!A5:J5", nil).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(ctx, b)

	assert.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Calendar.Success)
	assert.Equal(t, "evt-1", res.Calendar.Reference)
	assert.Equal(t, "https://cal/evt-1", res.Calendar.Link)
	assert.True(t, res.Ledger.Success)
	assert.Equal(t, "Citas!A5:J5", res.Ledger.Reference)
	assert.NotEmpty(t, res.BookingID)
	assert.Contains(t, res.Message, "invitación")
	cal.AssertExpectations(t)
	led.AssertExpectations(t)
}

func TestBookLedgerFailureRejects(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	c := newTestCoordinator(t, cal, led)

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("evt-2", "https://cal/evt-2", nil).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(context.Background(), b)

	assert.NoError(t, err)
	// The ledger is the system of record: without it the booking is not accepted.
	assert.False(t, res.Accepted)
	assert.True(t, res.Calendar.Success)
	assert.False(t, res.Ledger.Success)
	assert.Equal(t, "quota exceeded", res.Ledger.Reason)
	cal.AssertExpectations(t)
	led.AssertExpectations(t)
}

func TestBookCalendarFailureStillAccepted(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	c := newTestCoordinator(t, cal, led)

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("", "", errors.New("calendar unreachable")).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("Citas!A6:J6", nil).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(context.Background(), b)

	assert.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.False(t, res.Calendar.Success)
	assert.True(t, res.Ledger.Success)
	// The message must not promise an email invitation that was never sent.
	assert.NotContains(t, res.Message, "invitación por email.")
	assert.Contains(t, res.Message, "No fue posible crear el evento")
}

func TestBookBothTargetsFail(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	c := newTestCoordinator(t, cal, led)

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("", "", errors.New("boom")).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(context.Background(), b)

	assert.NoError(t, err, "total failure is surfaced in the result, not as an error")
	assert.False(t, res.Accepted)
	assert.False(t, res.Calendar.Success)
	assert.False(t, res.Ledger.Success)
}

func TestBookValidationFailureSkipsGateways(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	c := newTestCoordinator(t, cal, led)

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "not-an-email", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(context.Background(), b)

	assert.Nil(t, res)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, KindBadEmail, verr.Kind)
	cal.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	led.AssertNotCalled(t, "AppendRow", mock.Anything, mock.Anything)
}

func TestBookEnforcedCapacityRejectsTakenSlot(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	checker := new(mockChecker)
	c := newTestCoordinator(t, cal, led)
	c.EnforceCapacity(checker)

	checker.On("SlotFree", mock.Anything, "2099-01-01", "10:00").Return(false, nil).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(context.Background(), b)

	assert.Nil(t, res)
	var taken *ErrSlotTaken
	assert.ErrorAs(t, err, &taken)
	cal.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	led.AssertNotCalled(t, "AppendRow", mock.Anything, mock.Anything)
}

func TestBookEnforcedCapacitySingleAcceptance(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	checker := new(mockChecker)
	c := newTestCoordinator(t, cal, led)
	c.EnforceCapacity(checker)

	// The first attempt sees the slot free; once written, the re-check
	// reports it taken for the second attempt.
	checker.On("SlotFree", mock.Anything, "2099-01-01", "10:00").Return(true, nil).Once()
	checker.On("SlotFree", mock.Anything, "2099-01-01", "10:00").Return(false, nil).Once()
	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("evt-9", "link", nil).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("Citas!A9:J9", nil).Once()

	request := func() *models.Booking {
		return &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	}

	first, err := c.Book(context.Background(), request())
	assert.NoError(t, err)
	assert.True(t, first.Accepted)

	second, err := c.Book(context.Background(), request())
	assert.Nil(t, second)
	var taken *ErrSlotTaken
	assert.ErrorAs(t, err, &taken)

	checker.AssertExpectations(t)
	led.AssertExpectations(t)
}

func TestBookEnforcedCapacityCheckerErrorProceeds(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	checker := new(mockChecker)
	c := newTestCoordinator(t, cal, led)
	c.EnforceCapacity(checker)

	checker.On("SlotFree", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("sources down")).Once()
	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("evt-3", "link", nil).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("Citas!A7:J7", nil).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	res, err := c.Book(context.Background(), b)

	// A failed re-check falls back to the advisory model instead of
	// blocking the booking.
	assert.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestBookInvokesAcceptedHook(t *testing.T) {
	cal := new(mockCalendar)
	led := new(mockLedger)
	c := newTestCoordinator(t, cal, led)

	var invalidated string
	c.OnAccepted(func(date string) { invalidated = date })

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("evt-4", "link", nil).Once()
	led.On("AppendRow", mock.Anything, mock.Anything).Return("Citas!A8:J8", nil).Once()

	b := &models.Booking{Name: "Ana", Phone: "5551234567", Email: "ana@x.com", Date: "2099-01-01", Hour: "10:00"}
	_, err := c.Book(context.Background(), b)

	assert.NoError(t, err)
	assert.Equal(t, "2099-01-01", invalidated)
}
