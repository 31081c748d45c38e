package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turnofacil/turnofacil/internal/appointments"
	"github.com/turnofacil/turnofacil/internal/conversation"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/observability/metrics"
	"github.com/turnofacil/turnofacil/internal/patients"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

var sweepTracer = otel.Tracer("turnofacil.internal.reminders")

// AppointmentSource exposes the reminder queries of the appointment lifecycle.
type AppointmentSource interface {
	PendingReminders(ctx context.Context, thresholdMinutes int) ([]appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

// DoctorSource resolves doctors for reminder copy.
type DoctorSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
}

// PatientSource resolves patients for reminder delivery.
type PatientSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// Messenger delivers reminder texts.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}

// Worker sends day-before reminders for upcoming appointments.
type Worker struct {
	appts            AppointmentSource
	doctorSrc        DoctorSource
	patientSrc       PatientSource
	messenger        Messenger
	metrics          *metrics.BookingMetrics
	logger           *logging.Logger
	thresholdMinutes int
}

func NewWorker(
	appts AppointmentSource,
	doctorSrc DoctorSource,
	patientSrc PatientSource,
	messenger Messenger,
	thresholdMinutes int,
	logger *logging.Logger,
) *Worker {
	if appts == nil || doctorSrc == nil || patientSrc == nil || messenger == nil {
		panic("reminders: all worker dependencies are required")
	}
	if thresholdMinutes <= 0 {
		thresholdMinutes = 24 * 60
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		appts:            appts,
		doctorSrc:        doctorSrc,
		patientSrc:       patientSrc,
		messenger:        messenger,
		logger:           logger,
		thresholdMinutes: thresholdMinutes,
	}
}

// WithMetrics attaches sweep metrics.
func (w *Worker) WithMetrics(m *metrics.BookingMetrics) *Worker {
	w.metrics = m
	return w
}

// ProcessDue sends reminders for every eligible appointment and marks them
// sent. Per-appointment failures are logged and skipped so one broken record
// never stalls the sweep. Returns the number of reminders sent.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	ctx, span := sweepTracer.Start(ctx, "reminders.process_due")
	defer span.End()

	due, err := w.appts.PendingReminders(ctx, w.thresholdMinutes)
	if err != nil {
		return 0, fmt.Errorf("reminders: list due: %w", err)
	}
	span.SetAttributes(attribute.Int("turnofacil.due_count", len(due)))

	if len(due) == 0 {
		w.metrics.ObserveSweep(0)
		return 0, nil
	}

	w.logger.Info("reminder sweep: processing due appointments", "count", len(due))

	sent := 0
	for i := range due {
		appt := &due[i]
		if err := w.processOne(ctx, appt); err != nil {
			w.logger.Error("reminder sweep: failed to process appointment",
				"appointment_id", appt.ID, "error", err)
			continue
		}
		sent++
	}

	w.metrics.ObserveSweep(sent)
	return sent, nil
}

func (w *Worker) processOne(ctx context.Context, appt *appointments.Appointment) error {
	patient, err := w.patientSrc.GetByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	doctor, err := w.doctorSrc.GetByID(ctx, appt.DoctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}

	body := conversation.ReminderMessage(patient.Name, appt.ScheduledAt, doctor.Name)
	if err := w.messenger.SendText(ctx, patient.PhoneNumber, body); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	if err := w.appts.MarkReminderSent(ctx, appt.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	w.logger.Info("reminder sent",
		"appointment_id", appt.ID,
		"scheduled_at", appt.ScheduledAt,
	)
	return nil
}

// Start runs the sweep on an interval. Blocks until ctx is cancelled. The
// first sweep runs immediately on startup.
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	w.logger.Info("starting reminder sweep", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder sweep shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	sent, err := w.ProcessDue(ctx)
	if err != nil {
		w.logger.Error("reminder sweep failed", "error", err)
		return
	}
	if sent > 0 {
		w.logger.Info("reminder sweep finished", "sent", sent)
	}
}
