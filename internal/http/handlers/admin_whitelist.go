package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/whitelist"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

type whitelistRepository interface {
	Add(ctx context.Context, e *whitelist.Entry) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]whitelist.Entry, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// AdminWhitelistHandler manages the per-doctor allowed phone list used when
// a doctor runs in whitelist-only mode.
type AdminWhitelistHandler struct {
	whitelist whitelistRepository
	logger    *logging.Logger
}

type AdminWhitelistConfig struct {
	Whitelist whitelistRepository
	Logger    *logging.Logger
}

func NewAdminWhitelistHandler(cfg AdminWhitelistConfig) *AdminWhitelistHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AdminWhitelistHandler{whitelist: cfg.Whitelist, logger: cfg.Logger}
}

type addWhitelistRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	PatientName string `json:"patientName"`
	Notes       string `json:"notes"`
}

// Add registers a phone number in the doctor's whitelist.
// Route: POST /admin/doctors/{id}/whitelist
func (h *AdminWhitelistHandler) Add(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req addWhitelistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entry := &whitelist.Entry{
		DoctorID:    doctorID,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		PatientName: strings.TrimSpace(req.PatientName),
		Notes:       strings.TrimSpace(req.Notes),
	}
	if err := h.whitelist.Add(r.Context(), entry); err != nil {
		switch {
		case errors.Is(err, whitelist.ErrMissingPhone):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, whitelist.ErrDuplicate):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("whitelist add failed", "error", err, "doctor_id", doctorID)
			writeError(w, http.StatusInternalServerError, "failed to add whitelist entry")
		}
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// List returns the doctor's whitelist entries.
// Route: GET /admin/doctors/{id}/whitelist
func (h *AdminWhitelistHandler) List(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	entries, err := h.whitelist.ListByDoctor(r.Context(), doctorID)
	if err != nil {
		h.logger.Error("whitelist list failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to list whitelist")
		return
	}
	if entries == nil {
		entries = []whitelist.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Remove deletes one whitelist entry.
// Route: DELETE /admin/doctors/{id}/whitelist/{entryID}
func (h *AdminWhitelistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "entryID must be a UUID")
		return
	}
	if err := h.whitelist.Remove(r.Context(), entryID); err != nil {
		if errors.Is(err, whitelist.ErrNotFound) {
			writeError(w, http.StatusNotFound, "whitelist entry not found")
			return
		}
		h.logger.Error("whitelist remove failed", "error", err, "entry_id", entryID)
		writeError(w, http.StatusInternalServerError, "failed to remove whitelist entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
