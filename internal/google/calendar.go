package google

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	oauth2google "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"citas/internal/models"
)

// CalendarConfig holds the calendar gateway settings.
type CalendarConfig struct {
	CalendarID    string
	EventDuration time.Duration
	Location      string // free-text venue put on created events
}

// CalendarService is the occupancy gateway backed by Google Calendar.
// With no credentials it is constructed disabled: reads return empty
// occupancy, writes fail with ErrNoCredentials.
type CalendarService struct {
	svc    *calendar.Service
	cfg    CalendarConfig
	tz     *time.Location
	logger *zerolog.Logger
}

func NewCalendarService(ctx context.Context, creds *oauth2google.Credentials, cfg CalendarConfig, tz *time.Location, logger *zerolog.Logger) (*CalendarService, error) {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.EventDuration <= 0 {
		cfg.EventDuration = 2 * time.Hour
	}

	s := &CalendarService{cfg: cfg, tz: tz, logger: logger}
	if creds == nil {
		logger.Warn().Msg("calendar gateway running without credentials")
		return s, nil
	}

	svc, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	s.svc = svc
	return s, nil
}

// ListOccupancy lists events whose start falls in [from, to] and reduces
// them to occupied start hours per date, truncated to the hour. It fails
// soft: on any error the mapping is empty and the error signals a degraded
// read to the caller.
func (s *CalendarService) ListOccupancy(ctx context.Context, from, to time.Time) (map[string][]int, error) {
	if s.svc == nil {
		return map[string][]int{}, ErrNoCredentials
	}

	res, err := s.svc.Events.List(s.cfg.CalendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		TimeZone(s.tz.String()).
		Context(ctx).Do()
	if err != nil {
		return map[string][]int{}, fmt.Errorf("list calendar events: %w", err)
	}

	return s.eventsOccupancy(res.Items), nil
}

// eventsOccupancy reduces events to a date -> occupied hours mapping.
// All-day events carry no start time and do not occupy a slot.
func (s *CalendarService) eventsOccupancy(events []*calendar.Event) map[string][]int {
	out := make(map[string][]int)
	for _, ev := range events {
		if ev.Start == nil || ev.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			continue
		}
		start = start.In(s.tz)
		date := start.Format(models.DateLayout)
		out[date] = append(out[date], start.Hour())
	}
	return out
}

// CreateEvent inserts a calendar event for the booking, inviting the
// visitor and preset reminders, and returns the event id and link.
func (s *CalendarService) CreateEvent(ctx context.Context, b *models.Booking) (eventID, link string, err error) {
	if s.svc == nil {
		return "", "", ErrNoCredentials
	}

	start, err := b.StartTime(s.tz)
	if err != nil {
		return "", "", err
	}

	ev := s.eventFromBooking(b, start, start.Add(s.cfg.EventDuration))
	created, err := s.svc.Events.Insert(s.cfg.CalendarID, ev).
		SendUpdates("all").
		Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("insert calendar event: %w", err)
	}

	return created.Id, created.HtmlLink, nil
}

func (s *CalendarService) eventFromBooking(b *models.Booking, start, end time.Time) *calendar.Event {
	ev := &calendar.Event{
		Summary:     fmt.Sprintf("Cita - %s", b.Name),
		Description: eventDescription(b),
		Location:    s.cfg.Location,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: s.tz.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: s.tz.String(),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		ColorId: "9",
	}
	if b.Email != "" {
		ev.Attendees = []*calendar.EventAttendee{{Email: b.Email}}
	}
	return ev
}

func eventDescription(b *models.Booking) string {
	desc := fmt.Sprintf("Cliente: %s\nTeléfono: %s\nEmail: %s\n", b.Name, b.Phone, b.Email)
	if b.PropertyInterest != "" {
		desc += fmt.Sprintf("Prototipo de interés: %s\n", b.PropertyInterest)
	}
	if b.Notes != "" {
		desc += fmt.Sprintf("\nNotas adicionales:\n%s\n", b.Notes)
	}
	return desc
}
