package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/schedule"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

type doctorService interface {
	Create(ctx context.Context, input doctors.CreateInput) (*doctors.Doctor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
	List(ctx context.Context) ([]doctors.Doctor, error)
	Update(ctx context.Context, id uuid.UUID, input doctors.UpdateInput) (*doctors.Doctor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type slotPreviewer interface {
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Slot, error)
}

// AdminDoctorsHandler exposes CRUD over doctors plus a per-day slot preview
// so admins can verify a schedule before patients see it.
type AdminDoctorsHandler struct {
	doctors doctorService
	slots   slotPreviewer
	logger  *logging.Logger
}

type AdminDoctorsConfig struct {
	Doctors doctorService
	Slots   slotPreviewer
	Logger  *logging.Logger
}

func NewAdminDoctorsHandler(cfg AdminDoctorsConfig) *AdminDoctorsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminDoctorsHandler{doctors: cfg.Doctors, slots: cfg.Slots, logger: cfg.Logger}
}

// Create registers a new doctor.
// Route: POST /admin/doctors
func (h *AdminDoctorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input doctors.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	doc, err := h.doctors.Create(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, doctors.ErrDuplicatePhone):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, doctors.ErrInvalidName), errors.Is(err, doctors.ErrInvalidPhone),
			errors.Is(err, schedule.ErrInvalidSlotDuration), errors.Is(err, schedule.ErrInvalidWindow):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("create doctor failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create doctor")
		}
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// List returns every registered doctor.
// Route: GET /admin/doctors
func (h *AdminDoctorsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.doctors.List(r.Context())
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	if docs == nil {
		docs = []doctors.Doctor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": docs})
}

// Get returns a single doctor by id.
// Route: GET /admin/doctors/{id}
func (h *AdminDoctorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	doc, err := h.doctors.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, doctors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("get doctor failed", "error", err, "doctor_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Update applies a partial update to a doctor.
// Route: PATCH /admin/doctors/{id}
func (h *AdminDoctorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var input doctors.UpdateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	doc, err := h.doctors.Update(r.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, doctors.ErrNotFound):
			writeError(w, http.StatusNotFound, "doctor not found")
		case errors.Is(err, doctors.ErrInvalidSubscriptionStatus),
			errors.Is(err, schedule.ErrInvalidSlotDuration), errors.Is(err, schedule.ErrInvalidWindow):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("update doctor failed", "error", err, "doctor_id", id)
			writeError(w, http.StatusInternalServerError, "failed to update doctor")
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete removes a doctor and cascades to their data.
// Route: DELETE /admin/doctors/{id}
func (h *AdminDoctorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.doctors.Delete(r.Context(), id); err != nil {
		if errors.Is(err, doctors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("delete doctor failed", "error", err, "doctor_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete doctor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Slots previews the availability grid for one day.
// Route: GET /admin/doctors/{id}/slots?date=2026-08-31
func (h *AdminDoctorsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required (YYYY-MM-DD)")
		return
	}
	date, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	slots, err := h.slots.AvailableSlots(r.Context(), id, date)
	if err != nil {
		if errors.Is(err, doctors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("slot preview failed", "error", err, "doctor_id", id)
		writeError(w, http.StatusInternalServerError, "failed to compute slots")
		return
	}
	if slots == nil {
		slots = []schedule.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": dateParam, "slots": slots})
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
