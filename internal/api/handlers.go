package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"citas/internal/availability"
	"citas/internal/booking"
	"citas/internal/metrics"
	"citas/internal/models"
)

const maxWindowDays = 31

// handleAvailability serves the multi-day occupied/available partition.
// Degraded source reads are reflected in the payload, never as an error.
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	days := s.windowDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxWindowDays {
			writeError(w, http.StatusBadRequest, "days debe ser un entero entre 1 y 31")
			return
		}
		days = n
	}

	win, err := s.availability.Window(r.Context(), days)
	if err != nil {
		s.logger.Error().Err(err).Msg("availability window failed")
		writeError(w, http.StatusInternalServerError, "No fue posible consultar la disponibilidad")
		return
	}
	writeJSON(w, http.StatusOK, win)
}

// handleSlots serves the per-slot view for a single date.
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "El parámetro date es requerido")
		return
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "Formato de fecha inválido, usa YYYY-MM-DD")
		return
	}

	day, err := s.availability.Day(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("day slots failed")
		writeError(w, http.StatusInternalServerError, "No fue posible consultar la disponibilidad")
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{DaySlots: *day, Total: len(day.Available)})
}

// slotsResponse decorates the day view with the slot count the widget shows.
type slotsResponse struct {
	availability.DaySlots
	Total int `json:"total"`
}

// bookRequest is the booking submission payload. A separate type keeps
// server-assigned fields (id, created_at) out of the decoder.
type bookRequest struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Date             string `json:"date"`
	Hour             string `json:"hour"`
	PropertyInterest string `json:"property_interest"`
	Notes            string `json:"notes"`
	RequesterID      string `json:"requester_id"`
	Source           string `json:"source"`
}

// handleBook runs one booking attempt. Validation failures map to 400 with
// the failure kind; a taken slot maps to 409. A completed attempt is always
// 200, with per-target outcomes in the body even when one write failed.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "Demasiadas solicitudes, intenta de nuevo en un momento")
		return
	}

	var req bookRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}

	b := &models.Booking{
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		Date:             req.Date,
		Hour:             req.Hour,
		PropertyInterest: req.PropertyInterest,
		Notes:            req.Notes,
		RequesterID:      req.RequesterID,
		Source:           req.Source,
	}

	res, err := s.booker.Book(r.Context(), b)
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Message,
				"kind":  string(verr.Kind),
				"field": verr.Field,
			})
			return
		}
		var taken *booking.ErrSlotTaken
		if errors.As(err, &taken) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "El horario seleccionado ya no está disponible",
			})
			return
		}
		s.logger.Error().Err(err).Msg("booking failed")
		writeError(w, http.StatusInternalServerError, "No fue posible procesar la solicitud")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleExport streams the full ledger as an XLSX workbook. Staff only.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export disabled")
		return
	}
	if s.adminKey == "" || r.Header.Get("X-Api-Key") != s.adminKey {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, filename, err := s.exporter.Export(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("ledger export failed")
		writeError(w, http.StatusInternalServerError, "No fue posible generar el reporte")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
