package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/appointments"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

type appointmentService interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// AdminAppointmentsHandler lets admins inspect a doctor's agenda and cancel
// appointments on the patient's behalf.
type AdminAppointmentsHandler struct {
	appts  appointmentService
	logger *logging.Logger
}

type AdminAppointmentsConfig struct {
	Appointments appointmentService
	Logger       *logging.Logger
}

func NewAdminAppointmentsHandler(cfg AdminAppointmentsConfig) *AdminAppointmentsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminAppointmentsHandler{appts: cfg.Appointments, logger: cfg.Logger}
}

// ListByDoctor returns appointments in a date range, defaulting to the next
// 30 days when no range is given.
// Route: GET /admin/doctors/{id}/appointments?from=2026-08-01&to=2026-09-01
func (h *AdminAppointmentsHandler) ListByDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 0, 30)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		// Inclusive end date.
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		writeError(w, http.StatusBadRequest, "to must be after from")
		return
	}

	appts, err := h.appts.ListByDoctor(r.Context(), doctorID, from, to)
	if err != nil {
		if errors.Is(err, doctors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("list appointments failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if appts == nil {
		appts = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Get returns a single appointment.
// Route: GET /admin/appointments/{id}
func (h *AdminAppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	appt, err := h.appts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("get appointment failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel marks an appointment cancelled, freeing its slot.
// Route: DELETE /admin/appointments/{id}
func (h *AdminAppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.appts.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("cancel appointment failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to cancel appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
