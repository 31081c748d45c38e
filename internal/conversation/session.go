package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/schedule"
)

// Step identifies where a patient is inside the booking dialogue.
type Step string

const (
	StepAskingName     Step = "asking_name"
	StepShowingSlots   Step = "showing_slots"
	StepConfirmingSlot Step = "confirming_slot"
	StepCompleted      Step = "completed"
)

// ErrSessionNotFound is returned when no active session exists for a phone.
var ErrSessionNotFound = errors.New("conversation: session not found")

// Session tracks one patient's progress through the booking flow. The patient
// phone is the key; a patient holds at most one session at a time.
type Session struct {
	PatientPhone   string          `json:"patient_phone"`
	DoctorID       uuid.UUID       `json:"doctor_id"`
	Step           Step            `json:"step"`
	PatientID      uuid.UUID       `json:"patient_id,omitempty"`
	PatientName    string          `json:"patient_name,omitempty"`
	CandidateSlots []schedule.Slot `json:"candidate_slots,omitempty"`
	SelectedSlot   *schedule.Slot  `json:"selected_slot,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	LastActiveAt   time.Time       `json:"last_active_at"`
}

// SessionStore persists in-flight booking sessions with a TTL so abandoned
// dialogues expire on their own.
type SessionStore interface {
	Get(ctx context.Context, patientPhone string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, patientPhone string) error
}
