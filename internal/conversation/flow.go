package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turnofacil/turnofacil/internal/appointments"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/observability/metrics"
	"github.com/turnofacil/turnofacil/internal/patients"
	"github.com/turnofacil/turnofacil/internal/schedule"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

var flowTracer = otel.Tracer("turnofacil.internal.conversation.flow")

// DoctorDirectory resolves the practice a patient is texting.
type DoctorDirectory interface {
	GetByPhone(ctx context.Context, phone string) (*doctors.Doctor, error)
}

// PatientRegistry creates and resolves patient records.
type PatientRegistry interface {
	Upsert(ctx context.Context, doctorID uuid.UUID, phone, name string) (*patients.Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// Booker exposes slot queries and booking from the appointment lifecycle.
type Booker interface {
	UpcomingAvailable(ctx context.Context, doctorID uuid.UUID) ([]schedule.Slot, error)
	Book(ctx context.Context, input appointments.BookInput) (*appointments.Appointment, error)
}

// WhitelistChecker decides whether a phone may talk to a whitelist-only doctor.
type WhitelistChecker interface {
	Allowed(ctx context.Context, doctorID uuid.UUID, phone string) (bool, error)
}

// Messenger delivers outbound texts to patients.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}

// BookingObserver is notified after a booking lands. Failures are logged, not
// surfaced to the patient.
type BookingObserver interface {
	AppointmentBooked(ctx context.Context, doctor *doctors.Doctor, patient *patients.Patient, appt *appointments.Appointment) error
}

// Flow drives the booking dialogue for inbound patient messages.
type Flow struct {
	doctors   DoctorDirectory
	patients  PatientRegistry
	booking   Booker
	whitelist WhitelistChecker
	sessions  SessionStore
	messenger Messenger
	observer  BookingObserver
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// FlowOption customizes flow behavior.
type FlowOption func(*Flow)

// WithFlowClock injects a deterministic clock for tests.
func WithFlowClock(now func() time.Time) FlowOption {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithFlowMetrics attaches booking and outbound delivery counters.
func WithFlowMetrics(m *metrics.BookingMetrics) FlowOption {
	return func(f *Flow) {
		f.metrics = m
	}
}

// WithBookingObserver wires a hook that runs after each successful booking.
func WithBookingObserver(observer BookingObserver) FlowOption {
	return func(f *Flow) {
		f.observer = observer
	}
}

func NewFlow(
	doctorDir DoctorDirectory,
	patientReg PatientRegistry,
	booking Booker,
	whitelist WhitelistChecker,
	sessions SessionStore,
	messenger Messenger,
	logger *logging.Logger,
	opts ...FlowOption,
) *Flow {
	if doctorDir == nil || patientReg == nil || booking == nil || whitelist == nil || sessions == nil || messenger == nil {
		panic("conversation: all flow dependencies are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	f := &Flow{
		doctors:   doctorDir,
		patients:  patientReg,
		booking:   booking,
		whitelist: whitelist,
		sessions:  sessions,
		messenger: messenger,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle processes one inbound patient message end to end. It returns an error
// only for infrastructure failures worth retrying; dialogue-level problems are
// answered over WhatsApp and swallowed.
func (f *Flow) Handle(ctx context.Context, msg InboundMessage) error {
	ctx, span := flowTracer.Start(ctx, "conversation.flow.handle")
	defer span.End()
	span.SetAttributes(attribute.String("turnofacil.doctor_phone", msg.DoctorPhone))

	doctor, err := f.doctors.GetByPhone(ctx, msg.DoctorPhone)
	if err != nil {
		if errors.Is(err, doctors.ErrNotFound) {
			f.logger.Error("doctor not found for inbound message", "doctor_phone", msg.DoctorPhone)
			return nil
		}
		return fmt.Errorf("conversation: resolve doctor: %w", err)
	}

	if doctor.WhitelistOnly {
		allowed, err := f.whitelist.Allowed(ctx, doctor.ID, msg.From)
		if err != nil {
			return fmt.Errorf("conversation: whitelist check: %w", err)
		}
		if !allowed {
			f.logger.Info("dropping message from non-whitelisted phone", "doctor_id", doctor.ID)
			return nil
		}
	}

	if !doctor.SubscriptionActiveAt(f.now()) {
		return f.send(ctx, msg.From, msgServiceUnavailable)
	}

	normalized := strings.ToLower(strings.TrimSpace(msg.Body))

	switch normalized {
	case "turno", "quiero un turno", "reservar":
		return f.startBooking(ctx, msg.From, doctor)
	case "cancelar":
		return f.send(ctx, msg.From, msgCancellationUnsupported)
	case "ayuda", "help":
		return f.send(ctx, msg.From, helpMessage(doctor.Name))
	}

	session, err := f.sessions.Get(ctx, msg.From)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("conversation: load session: %w", err)
	}
	if session != nil {
		return f.handleStep(ctx, session, msg, doctor)
	}

	return f.send(ctx, msg.From, welcomeMessage(doctor.WelcomeMessage))
}

func (f *Flow) startBooking(ctx context.Context, from string, doctor *doctors.Doctor) error {
	now := f.now()
	session := &Session{
		PatientPhone: from,
		DoctorID:     doctor.ID,
		Step:         StepAskingName,
		StartedAt:    now,
		LastActiveAt: now,
	}
	if err := f.sessions.Put(ctx, session); err != nil {
		return fmt.Errorf("conversation: start session: %w", err)
	}
	return f.send(ctx, from, bookingStartMessage(doctor.Name))
}

func (f *Flow) handleStep(ctx context.Context, session *Session, msg InboundMessage, doctor *doctors.Doctor) error {
	session.LastActiveAt = f.now()

	switch session.Step {
	case StepAskingName:
		return f.handleNameInput(ctx, session, msg, doctor)
	case StepShowingSlots:
		return f.handleSlotSelection(ctx, session, msg)
	case StepConfirmingSlot:
		return f.handleSlotConfirmation(ctx, session, msg, doctor)
	default:
		if err := f.sessions.Delete(ctx, session.PatientPhone); err != nil {
			f.logger.Warn("failed to clear stale session", "error", err)
		}
		return f.send(ctx, msg.From, welcomeMessage(doctor.WelcomeMessage))
	}
}

func (f *Flow) handleNameInput(ctx context.Context, session *Session, msg InboundMessage, doctor *doctors.Doctor) error {
	name := strings.TrimSpace(msg.Body)

	patient, err := f.patients.Upsert(ctx, doctor.ID, msg.From, name)
	if err != nil {
		return fmt.Errorf("conversation: upsert patient: %w", err)
	}

	slots, err := f.booking.UpcomingAvailable(ctx, doctor.ID)
	if err != nil {
		return fmt.Errorf("conversation: list slots: %w", err)
	}
	if len(slots) == 0 {
		if err := f.sessions.Delete(ctx, session.PatientPhone); err != nil {
			f.logger.Warn("failed to clear session", "error", err)
		}
		return f.send(ctx, msg.From, msgNoSlots)
	}

	session.Step = StepShowingSlots
	session.PatientID = patient.ID
	session.PatientName = name
	session.CandidateSlots = slots
	if err := f.sessions.Put(ctx, session); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return f.send(ctx, msg.From, slotListMessage(name, slots))
}

func (f *Flow) handleSlotSelection(ctx context.Context, session *Session, msg InboundMessage) error {
	choice, err := strconv.Atoi(strings.TrimSpace(msg.Body))
	if err != nil || choice < 1 || choice > len(session.CandidateSlots) {
		return f.send(ctx, msg.From, msgInvalidSlotNumber)
	}

	selected := session.CandidateSlots[choice-1]
	session.Step = StepConfirmingSlot
	session.SelectedSlot = &selected
	if err := f.sessions.Put(ctx, session); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return f.send(ctx, msg.From, confirmSlotMessage(selected.Start))
}

func (f *Flow) handleSlotConfirmation(ctx context.Context, session *Session, msg InboundMessage, doctor *doctors.Doctor) error {
	switch strings.ToLower(strings.TrimSpace(msg.Body)) {
	case "si", "sí":
		return f.confirmBooking(ctx, session, msg, doctor)
	case "no":
		return f.relistSlots(ctx, session, msg.From, doctor, "")
	default:
		return f.send(ctx, msg.From, msgConfirmOrRetry)
	}
}

func (f *Flow) confirmBooking(ctx context.Context, session *Session, msg InboundMessage, doctor *doctors.Doctor) error {
	if session.PatientID == uuid.Nil || session.SelectedSlot == nil {
		if err := f.sessions.Delete(ctx, session.PatientPhone); err != nil {
			f.logger.Warn("failed to clear session", "error", err)
		}
		return f.send(ctx, msg.From, msgSessionError)
	}

	appt, err := f.booking.Book(ctx, appointments.BookInput{
		DoctorID:    doctor.ID,
		PatientID:   session.PatientID,
		ScheduledAt: session.SelectedSlot.Start,
	})
	if err != nil {
		if errors.Is(err, appointments.ErrSlotTaken) {
			// Someone else grabbed it between selection and confirmation.
			f.metrics.ObserveBooking("slot_taken")
			return f.relistSlots(ctx, session, msg.From, doctor, msgSlotTaken)
		}
		f.metrics.ObserveBooking("error")
		return fmt.Errorf("conversation: book appointment: %w", err)
	}
	f.metrics.ObserveBooking("confirmed")

	patient, err := f.patients.GetByID(ctx, session.PatientID)
	if err != nil {
		f.logger.Error("booked but failed to load patient", "error", err, "appointment_id", appt.ID)
	}

	if patient != nil {
		paymentText := msgPayAtOffice
		if doctor.PaymentLink != "" {
			paymentText = paymentMessage(doctor.PaymentLink)
		}
		if err := f.send(ctx, msg.From, paymentText); err != nil {
			f.logger.Error("failed to send payment info", "error", err, "appointment_id", appt.ID)
		}
		if err := f.send(ctx, msg.From, confirmationMessage(appt.ScheduledAt, doctor.Name)); err != nil {
			f.logger.Error("failed to send confirmation", "error", err, "appointment_id", appt.ID)
		}
		if f.observer != nil {
			if err := f.observer.AppointmentBooked(ctx, doctor, patient, appt); err != nil {
				f.logger.Warn("booking observer failed", "error", err, "appointment_id", appt.ID)
			}
		}
	}

	session.Step = StepCompleted
	if err := f.sessions.Delete(ctx, session.PatientPhone); err != nil {
		f.logger.Warn("failed to clear completed session", "error", err)
	}
	f.logger.Info("appointment booked via whatsapp",
		"appointment_id", appt.ID,
		"doctor_id", doctor.ID,
		"scheduled_at", appt.ScheduledAt,
	)
	return nil
}

func (f *Flow) relistSlots(ctx context.Context, session *Session, from string, doctor *doctors.Doctor, prefix string) error {
	slots, err := f.booking.UpcomingAvailable(ctx, doctor.ID)
	if err != nil {
		return fmt.Errorf("conversation: list slots: %w", err)
	}
	if len(slots) == 0 {
		if err := f.sessions.Delete(ctx, session.PatientPhone); err != nil {
			f.logger.Warn("failed to clear session", "error", err)
		}
		return f.send(ctx, from, msgNoSlots)
	}

	session.Step = StepShowingSlots
	session.SelectedSlot = nil
	session.CandidateSlots = slots
	if err := f.sessions.Put(ctx, session); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}

	body := slotRelistMessage(slots)
	if prefix != "" {
		body = prefix + "\n\n" + body
	}
	return f.send(ctx, from, body)
}

func (f *Flow) send(ctx context.Context, to, body string) error {
	if err := f.messenger.SendText(ctx, to, body); err != nil {
		f.metrics.ObserveOutbound("error")
		return fmt.Errorf("conversation: send message: %w", err)
	}
	f.metrics.ObserveOutbound("sent")
	return nil
}
