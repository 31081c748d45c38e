package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/patients"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

type patientLister interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]patients.Patient, error)
}

// AdminPatientsHandler surfaces the patients a doctor has talked to.
type AdminPatientsHandler struct {
	patients patientLister
	logger   *logging.Logger
}

type AdminPatientsConfig struct {
	Patients patientLister
	Logger   *logging.Logger
}

func NewAdminPatientsHandler(cfg AdminPatientsConfig) *AdminPatientsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminPatientsHandler{patients: cfg.Patients, logger: cfg.Logger}
}

// ListByDoctor returns the patients registered under a doctor.
// Route: GET /admin/doctors/{id}/patients
func (h *AdminPatientsHandler) ListByDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	list, err := h.patients.ListByDoctor(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("list patients failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to list patients")
		return
	}
	if list == nil {
		list = []patients.Patient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": list})
}
