package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"citas/internal/availability"
	"citas/internal/models"
)

// AvailabilityProvider is the read side consumed by the HTTP boundary.
type AvailabilityProvider interface {
	Window(ctx context.Context, days int) (*availability.WindowAvailability, error)
	Day(ctx context.Context, date string) (*availability.DaySlots, error)
}

// Booker is the write side consumed by the HTTP boundary.
type Booker interface {
	Book(ctx context.Context, b *models.Booking) (*models.BookingResult, error)
}

// LedgerExporter renders the full ledger as an XLSX report.
type LedgerExporter interface {
	Export(ctx context.Context) (data []byte, filename string, err error)
}

// Server is the thin HTTP boundary: request/response mapping only, all
// business rules live behind the injected interfaces.
type Server struct {
	availability AvailabilityProvider
	booker       Booker
	exporter     LedgerExporter
	limiter      *rate.Limiter
	windowDays   int
	adminKey     string
	logger       *zerolog.Logger
}

func NewServer(av AvailabilityProvider, booker Booker, windowDays int, bookRate float64, bookBurst int, logger *zerolog.Logger) *Server {
	return &Server{
		availability: av,
		booker:       booker,
		limiter:      rate.NewLimiter(rate.Limit(bookRate), bookBurst),
		windowDays:   windowDays,
		logger:       logger,
	}
}

// UseExporter enables the admin ledger export endpoint, guarded by an API key.
func (s *Server) UseExporter(e LedgerExporter, adminKey string) {
	s.exporter = e
	s.adminKey = adminKey
}

// Handler builds the route table. All endpoints are CORS-open; the site
// frontend and the conversational widget call them cross-origin.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/book", s.handleBook)
	mux.HandleFunc("/api/admin/export", s.handleExport)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
