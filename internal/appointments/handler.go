package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odontoapp/turnos-api/internal/http/middleware"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

// Handler handles HTTP requests for availability and bookings.
type Handler struct {
	engine  *AvailabilityEngine
	booking *BookingService
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler.
func NewHandler(engine *AvailabilityEngine, booking *BookingService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:  engine,
		booking: booking,
		logger:  logger,
	}
}

// DatesResponse is the payload for GET /api/dates.
type DatesResponse struct {
	Dates    []DateOption `json:"dates"`
	Count    int          `json:"count"`
	Schedule WorkSchedule `json:"work_schedule"`
}

// Dates handles GET /api/dates requests.
func (h *Handler) Dates(w http.ResponseWriter, r *http.Request) {
	dates := h.engine.AvailableDates()
	writeJSON(w, http.StatusOK, DatesResponse{
		Dates:    dates,
		Count:    len(dates),
		Schedule: h.engine.WorkSchedule(),
	})
}

// Hours handles GET /api/hours?date=YYYY-MM-DD requests.
func (h *Handler) Hours(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSONError(w, http.StatusBadRequest, "missing date parameter")
		return
	}
	grid, err := h.engine.AvailableHours(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// ListResponse is the payload for GET /api/appointments.
type ListResponse struct {
	Appointments []Appointment `json:"appointments"`
	Count        int           `json:"count"`
}

// List handles GET /api/appointments requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing subject")
		return
	}
	appts, err := h.booking.ListForSubject(r.Context(), subjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

// Create handles POST /api/appointments requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing subject")
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.booking.Create(r.Context(), subjectID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Cancel handles DELETE /api/appointments/{id} requests.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := middleware.SubjectIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing subject")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "missing appointment id")
		return
	}
	result, err := h.booking.Cancel(r.Context(), subjectID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError maps the booking error taxonomy onto HTTP statuses. Conflicts
// are 409 regardless of which system detected them; a missing credential is
// 401 because reconnecting the Google account is the fix. Cutoff and conflict
// rejections carry their detail as structured fields so clients can render
// the remaining hours and the contested slot without parsing prose.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *ValidationError
		dateErr       *InvalidDateError
		conflictErr   *ConflictError
		tooLateErr    *TooLateError
		upstreamErr   *UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &dateErr):
		writeJSONError(w, http.StatusBadRequest, dateErr.Error())
	case errors.As(err, &tooLateErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":                  tooLateErr.Error(),
			"hours_remaining":        tooLateErr.HoursRemaining,
			"minimum_required_hours": tooLateErr.MinimumHours,
		})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSubjectNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSubjectBlocked):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		body := map[string]any{
			"error":  conflictErr.Error(),
			"source": conflictErr.Source,
		}
		if !conflictErr.StartAt.IsZero() {
			body["slot_start"] = conflictErr.StartAt.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, ErrUpstreamUnavailable):
		writeJSONError(w, http.StatusUnauthorized, "google calendar not connected")
	case errors.As(err, &upstreamErr):
		h.logger.Error("calendar upstream failure", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadGateway, "calendar temporarily unavailable")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
