package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/schedule"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

var apptTracer = otel.Tracer("turnofacil.internal.appointments")

const (
	defaultLookaheadDays = 7
	defaultSlotCap       = 10
)

// Store is the persistence surface the lifecycle manager needs.
type Store interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	BookedStarts(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	FindPendingReminders(ctx context.Context, now time.Time, threshold time.Duration) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

// DoctorSource resolves the schedule configuration for a doctor.
type DoctorSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
}

// Service owns the appointment lifecycle: slot queries, booking, cancellation,
// and reminder eligibility.
type Service struct {
	store     Store
	docs      DoctorSource
	logger    *logging.Logger
	now       func() time.Time
	lookahead int
	slotCap   int
}

// Option customizes service behavior.
type Option func(*Service)

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLookahead sets the multi-day aggregation horizon and slot cap.
func WithLookahead(days, cap int) Option {
	return func(s *Service) {
		if days > 0 {
			s.lookahead = days
		}
		if cap > 0 {
			s.slotCap = cap
		}
	}
}

// NewService constructs the lifecycle manager.
func NewService(store Store, docs DoctorSource, logger *logging.Logger, opts ...Option) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if docs == nil {
		panic("appointments: doctor source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:     store,
		docs:      docs,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		lookahead: defaultLookaheadDays,
		slotCap:   defaultSlotCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableSlots computes the candidate slots for one calendar date, marking
// slots whose start is already booked by a non-cancelled appointment.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Slot, error) {
	doctor, err := s.docs.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	starts, err := s.store.BookedStarts(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	local := make([]time.Time, len(starts))
	for i, t := range starts {
		local[i] = t.In(date.Location())
	}
	return schedule.ComputeSlots(doctor.Schedule, dayStart, schedule.BookedSet(local))
}

// UpcomingAvailable aggregates available slots from today forward, capped at
// the configured slot count and day horizon. Slots whose start has already
// passed are excluded, which only affects the current day.
func (s *Service) UpcomingAvailable(ctx context.Context, doctorID uuid.UUID) ([]schedule.Slot, error) {
	now := s.now()
	var collected []schedule.Slot
	for day := 0; day < s.lookahead && len(collected) < s.slotCap; day++ {
		date := now.AddDate(0, 0, day)
		slots, err := s.AvailableSlots(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if !slot.Available || !slot.Start.After(now) {
				continue
			}
			collected = append(collected, slot)
			if len(collected) == s.slotCap {
				break
			}
		}
	}
	return collected, nil
}

// Book creates a pending appointment. The storage-level slot constraint turns
// a lost booking race into ErrSlotTaken.
func (s *Service) Book(ctx context.Context, input BookInput) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("turnofacil.doctor_id", input.DoctorID.String()),
		attribute.String("turnofacil.patient_id", input.PatientID.String()),
	)

	appt := &Appointment{
		DoctorID:    input.DoctorID,
		PatientID:   input.PatientID,
		ScheduledAt: input.ScheduledAt,
		Status:      StatusPending,
		Notes:       input.Notes,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", input.DoctorID,
		"scheduled_at", input.ScheduledAt.Format(time.RFC3339),
	)
	return appt, nil
}

// GetByID loads an appointment by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// ListByDoctor returns a doctor's appointments in [from, to).
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.store.ListByDoctorRange(ctx, doctorID, from, to)
}

// ListByPatient returns a patient's appointment history.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.store.ListByPatient(ctx, patientID)
}

// Cancel marks an appointment cancelled; repeat cancellations succeed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Cancel(ctx, id); err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}

// PendingReminders returns appointments due a reminder within thresholdMinutes.
func (s *Service) PendingReminders(ctx context.Context, thresholdMinutes int) ([]Appointment, error) {
	return s.store.FindPendingReminders(ctx, s.now(), time.Duration(thresholdMinutes)*time.Minute)
}

// MarkReminderSent stamps the reminder timestamp on an appointment.
func (s *Service) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkReminderSent(ctx, id)
}
