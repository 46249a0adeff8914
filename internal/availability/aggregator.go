package availability

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"citas/internal/metrics"
	"citas/internal/models"
	"citas/internal/slots"
)

// PastDateMessage is returned instead of slots when the requested date is
// already over.
const PastDateMessage = "No se pueden agendar citas en fechas pasadas"

var weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

// Source is one occupancy view over a date range: date -> occupied hours.
// Sources fail soft; an error means the view degraded to empty, not that
// the request must fail.
type Source interface {
	ListOccupancy(ctx context.Context, from, to time.Time) (map[string][]int, error)
}

// SlotAvailability is the per-slot output of the aggregation.
type SlotAvailability struct {
	Hour      string `json:"hour"`
	Occupied  bool   `json:"occupied"`
	Remaining int    `json:"remaining"`
}

// DayAvailability is the occupied/available hour partition for one date.
type DayAvailability struct {
	Date           string   `json:"date"`
	Weekday        string   `json:"weekday"`
	OccupiedHours  []string `json:"occupied_hours"`
	AvailableHours []string `json:"available_hours"`
}

// WindowAvailability is the multi-day view.
type WindowAvailability struct {
	From     string                     `json:"from"`
	To       string                     `json:"to"`
	ByDate   map[string]DayAvailability `json:"by_date"`
	Degraded bool                       `json:"degraded,omitempty"`
}

// DaySlots is the single-day view with remaining capacity per slot.
type DaySlots struct {
	Date      string             `json:"date"`
	Weekday   string             `json:"weekday"`
	Available []SlotAvailability `json:"available_slots"`
	Occupied  []string           `json:"occupied_hours"`
	Message   string             `json:"message,omitempty"`
	Degraded  bool               `json:"degraded,omitempty"`
}

// Aggregator merges the calendar and ledger occupancy views with the
// canonical slot set. The two sources are read concurrently; a failed
// source contributes nothing and flags the result as degraded.
type Aggregator struct {
	calendar Source
	ledger   Source
	window   slots.Window
	capacity int
	tz       *time.Location
	timeout  time.Duration
	cache    *Cache
	logger   *zerolog.Logger

	now func() time.Time
}

func New(calendarSrc, ledgerSrc Source, window slots.Window, capacity int, tz *time.Location, timeout time.Duration, logger *zerolog.Logger) *Aggregator {
	if capacity <= 0 {
		capacity = 1
	}
	return &Aggregator{
		calendar: calendarSrc,
		ledger:   ledgerSrc,
		window:   window,
		capacity: capacity,
		tz:       tz,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// UseCache enables Redis-backed response caching.
func (a *Aggregator) UseCache(c *Cache) {
	a.cache = c
}

func (a *Aggregator) today() time.Time {
	return a.now().In(a.tz)
}

// fetchCounts reads both sources concurrently and merges them into
// additive per-hour counts. Counts from the two sources are summed, never
// deduplicated: a double-booking recorded in both systems takes two units
// of capacity, trading false "fully booked" readings for never offering a
// taken slot.
func (a *Aggregator) fetchCounts(ctx context.Context, from, to time.Time) (map[string]map[int]int, bool) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var (
		wg             sync.WaitGroup
		calOcc, ledOcc map[string][]int
		calErr, ledErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		calOcc, calErr = a.calendar.ListOccupancy(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		ledOcc, ledErr = a.ledger.ListOccupancy(ctx, from, to)
	}()
	wg.Wait()

	degraded := false
	if calErr != nil {
		degraded = true
		metrics.IncDegradedRead("calendar")
		a.logger.Warn().Err(calErr).Msg("calendar occupancy degraded to empty")
	}
	if ledErr != nil {
		degraded = true
		metrics.IncDegradedRead("ledger")
		a.logger.Warn().Err(ledErr).Msg("ledger occupancy degraded to empty")
	}

	counts := make(map[string]map[int]int)
	for _, occ := range []map[string][]int{calOcc, ledOcc} {
		for date, hours := range occ {
			if counts[date] == nil {
				counts[date] = make(map[int]int)
			}
			for _, h := range hours {
				counts[date][h]++
			}
		}
	}
	return counts, degraded
}

// Window computes the availability partition for the next `days` days
// starting today.
func (a *Aggregator) Window(ctx context.Context, days int) (*WindowAvailability, error) {
	if days <= 0 {
		return nil, fmt.Errorf("window must cover at least one day, got %d", days)
	}

	cacheKey := windowKey(days)
	var cached WindowAvailability
	if a.cache.get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	today := a.today()
	from := startOfDay(today)
	to := endOfDay(from.AddDate(0, 0, days-1))

	counts, degraded := a.fetchCounts(ctx, from, to)

	out := &WindowAvailability{
		From:     from.Format(models.DateLayout),
		To:       to.Format(models.DateLayout),
		ByDate:   make(map[string]DayAvailability, days),
		Degraded: degraded,
	}
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		date := day.Format(models.DateLayout)
		out.ByDate[date] = a.buildDay(day, counts[date], i == 0, today.Hour())
	}

	// Degraded results would poison the cache with empty occupancy.
	if !degraded {
		a.cache.set(ctx, cacheKey, out)
	}
	return out, nil
}

// buildDay partitions one day's canonical hours. For today, past hours are
// removed from the available list but not added to the occupied one.
func (a *Aggregator) buildDay(day time.Time, hourCounts map[int]int, isToday bool, currentHour int) DayAvailability {
	occupied := make([]string, 0)
	available := make([]string, 0)
	for _, h := range a.window.Hours() {
		if hourCounts[h] >= a.capacity {
			occupied = append(occupied, models.HourLabel(h))
			continue
		}
		if isToday && h <= currentHour {
			continue
		}
		available = append(available, models.HourLabel(h))
	}
	return DayAvailability{
		Date:           day.Format(models.DateLayout),
		Weekday:        weekdays[day.Weekday()],
		OccupiedHours:  occupied,
		AvailableHours: available,
	}
}

// Day computes the slot partition for a single date with remaining
// capacity per slot. A date strictly before today yields an empty set with
// an explanatory message, not an error.
func (a *Aggregator) Day(ctx context.Context, date string) (*DaySlots, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, a.tz)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	today := a.today()
	if date < today.Format(models.DateLayout) {
		return &DaySlots{
			Date:      date,
			Weekday:   weekdays[day.Weekday()],
			Available: []SlotAvailability{},
			Occupied:  []string{},
			Message:   PastDateMessage,
		}, nil
	}

	cacheKey := dayKey(date)
	var cached DaySlots
	if a.cache.get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	counts, degraded := a.fetchCounts(ctx, startOfDay(day), endOfDay(day))
	hourCounts := counts[date]

	isToday := date == today.Format(models.DateLayout)
	out := &DaySlots{
		Date:      date,
		Weekday:   weekdays[day.Weekday()],
		Available: make([]SlotAvailability, 0),
		Occupied:  make([]string, 0),
		Degraded:  degraded,
	}
	for _, s := range a.window.Generate(date, a.capacity) {
		count := hourCounts[s.Hour]
		remaining := s.Capacity - count
		if remaining <= 0 {
			out.Occupied = append(out.Occupied, models.HourLabel(s.Hour))
			continue
		}
		if isToday && s.Hour <= today.Hour() {
			continue
		}
		out.Available = append(out.Available, SlotAvailability{
			Hour:      models.HourLabel(s.Hour),
			Remaining: remaining,
		})
	}
	sort.Slice(out.Available, func(i, j int) bool { return out.Available[i].Hour < out.Available[j].Hour })

	if !degraded {
		a.cache.set(ctx, cacheKey, out)
	}
	return out, nil
}

// SlotFree re-checks a single (date, hour) against the merged occupancy.
// Used by the coordinator when capacity enforcement is enabled.
func (a *Aggregator) SlotFree(ctx context.Context, date, hour string) (bool, error) {
	h, err := strconv.Atoi(strings.SplitN(hour, ":", 2)[0])
	if err != nil {
		return false, fmt.Errorf("invalid hour %q: %w", hour, err)
	}

	day, err := a.Day(ctx, date)
	if err != nil {
		return false, err
	}
	if day.Message != "" {
		return false, nil
	}

	label := models.HourLabel(h)
	for _, s := range day.Available {
		if s.Hour == label {
			return true, nil
		}
	}
	return false, nil
}

// InvalidateDate drops cached availability covering the date. Called after
// an accepted booking so the next read reflects it.
func (a *Aggregator) InvalidateDate(ctx context.Context, date string) {
	a.cache.invalidate(ctx, dayKey(date))
	a.cache.invalidatePattern(ctx, "availability:window:*")
}

func windowKey(days int) string {
	return fmt.Sprintf("availability:window:%d", days)
}

func dayKey(date string) string {
	return "availability:day:" + date
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
