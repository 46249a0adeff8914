package google

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	oauth2google "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"citas/internal/models"
)

// Ledger column layout. Append and read sides share this order; changing it
// breaks every existing spreadsheet.
const (
	colRegisteredAt = iota
	colDate
	colHour
	colName
	colPhone
	colEmail
	colProperty
	colNotes
	colSource
	colStatus

	ledgerColumns
)

var ledgerHeaders = []string{
	"Fecha Registro",
	"Fecha Cita",
	"Hora",
	"Nombre",
	"Teléfono",
	"Email",
	"Prototipo",
	"Notas",
	"Origen",
	"Estado",
}

// LedgerHeaders returns the canonical ledger column titles in order.
func LedgerHeaders() []string {
	return append([]string(nil), ledgerHeaders...)
}

var meridiemRe = regexp.MustCompile(`(?i)\s*(AM|PM)\s*`)

// SheetsConfig holds the ledger gateway settings.
type SheetsConfig struct {
	SpreadsheetID string
	SheetName     string
}

// SheetsService is the occupancy gateway and audit ledger backed by a
// Google Sheets spreadsheet. With no credentials it is constructed
// disabled, like CalendarService.
type SheetsService struct {
	svc    *sheets.Service
	cfg    SheetsConfig
	tz     *time.Location
	logger *zerolog.Logger
}

func NewSheetsService(ctx context.Context, creds *oauth2google.Credentials, cfg SheetsConfig, tz *time.Location, logger *zerolog.Logger) (*SheetsService, error) {
	if cfg.SheetName == "" {
		cfg.SheetName = "Citas"
	}

	s := &SheetsService{cfg: cfg, tz: tz, logger: logger}
	if creds == nil {
		logger.Warn().Msg("ledger gateway running without credentials")
		return s, nil
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	s.svc = svc
	return s, nil
}

func (s *SheetsService) dataRange() string {
	return fmt.Sprintf("%s!A:J", s.cfg.SheetName)
}

func (s *SheetsService) headerRange() string {
	return fmt.Sprintf("%s!A1:J1", s.cfg.SheetName)
}

// ListOccupancy scans the ledger and reduces confirmed rows to occupied
// hours per date within [from, to]. Malformed rows are skipped. Fails soft
// like the calendar gateway.
func (s *SheetsService) ListOccupancy(ctx context.Context, from, to time.Time) (map[string][]int, error) {
	if s.svc == nil {
		return map[string][]int{}, ErrNoCredentials
	}
	if s.cfg.SpreadsheetID == "" {
		return map[string][]int{}, fmt.Errorf("ledger spreadsheet id is not configured")
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return map[string][]int{}, fmt.Errorf("read ledger rows: %w", err)
	}

	return rowsOccupancy(resp.Values, from.Format(models.DateLayout), to.Format(models.DateLayout)), nil
}

// rowsOccupancy reduces raw sheet rows to a date -> occupied hours mapping.
// The first row is the header. Only rows whose status equals the confirmed
// marker (case-insensitive) count.
func rowsOccupancy(rows [][]interface{}, from, to string) map[string][]int {
	out := make(map[string][]int)
	for i, row := range rows {
		if i == 0 || len(row) < ledgerColumns {
			continue
		}

		date := strings.TrimSpace(cellString(row[colDate]))
		status := strings.ToLower(strings.TrimSpace(cellString(row[colStatus])))
		if date == "" || status != models.StatusConfirmed {
			continue
		}
		if date < from || date > to {
			continue
		}

		hour, ok := parseLedgerHour(cellString(row[colHour]))
		if !ok {
			continue
		}
		out[date] = append(out[date], hour)
	}
	return out
}

// parseLedgerHour normalizes a free-text time cell ("10:00", "10:00 AM",
// "9:30") to its hour of day by stripping meridiem markers and taking the
// leading integer.
func parseLedgerHour(raw string) (int, bool) {
	cleaned := meridiemRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return 0, false
	}
	head := strings.SplitN(cleaned, ":", 2)[0]
	h, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func cellString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// EnsureHeaders writes the header row if the sheet has none. The outcome is
// classified: a present header is success, an unreadable sheet is a real
// error, nothing is blanket-ignored.
func (s *SheetsService) EnsureHeaders(ctx context.Context) error {
	if s.svc == nil {
		return ErrNoCredentials
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.headerRange()).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ledger header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]interface{}, len(ledgerHeaders))
	for i, h := range ledgerHeaders {
		header[i] = h
	}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.cfg.SpreadsheetID, s.headerRange(), &sheets.ValueRange{Values: [][]interface{}{header}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	return nil
}

// AppendRow ensures the header exists and appends one confirmed booking
// row, returning the written range reference.
func (s *SheetsService) AppendRow(ctx context.Context, b *models.Booking) (string, error) {
	if s.svc == nil {
		return "", ErrNoCredentials
	}
	if s.cfg.SpreadsheetID == "" {
		return "", fmt.Errorf("ledger spreadsheet id is not configured")
	}

	if err := s.EnsureHeaders(ctx); err != nil {
		return "", err
	}

	values := bookingRowValues(b, time.Now().In(s.tz))
	resp, err := s.svc.Spreadsheets.Values.
		Append(s.cfg.SpreadsheetID, s.dataRange(), &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append ledger row: %w", err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// bookingRowValues renders a booking as one ledger row in the fixed
// column order.
func bookingRowValues(b *models.Booking, registeredAt time.Time) []interface{} {
	source := b.Source
	if source == "" {
		source = "web"
	}
	return []interface{}{
		registeredAt.Format("2006-01-02 15:04:05"),
		b.Date,
		b.Hour,
		b.Name,
		b.Phone,
		b.Email,
		b.PropertyInterest,
		b.Notes,
		source,
		models.StatusConfirmed,
	}
}

// Rows returns every ledger row, header included, for report export.
func (s *SheetsService) Rows(ctx context.Context) ([][]string, error) {
	if s.svc == nil {
		return nil, ErrNoCredentials
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ledger rows: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = cellString(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
