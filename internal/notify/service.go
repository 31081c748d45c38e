package notify

import (
	"context"
	"fmt"

	"github.com/turnofacil/turnofacil/internal/appointments"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/patients"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

// Service notifies doctors about bookings made through the bot. It is nil-safe
// end to end so wiring it is optional.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

// NewService creates a notification service. email may be nil.
func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger}
}

// AppointmentBooked emails the doctor when a patient books a slot. Doctors
// without a notification email are skipped.
func (s *Service) AppointmentBooked(ctx context.Context, doctor *doctors.Doctor, patient *patients.Patient, appt *appointments.Appointment) error {
	if s == nil || s.email == nil {
		return nil
	}
	if doctor.NotificationEmail == "" {
		s.logger.Debug("doctor has no notification email, skipping", "doctor_id", doctor.ID)
		return nil
	}

	subject := fmt.Sprintf("Nuevo turno: %s", patient.Name)
	body := fmt.Sprintf(`Se reservó un nuevo turno a través de WhatsApp.

Paciente: %s
Teléfono: %s
Fecha y hora: %s
Estado: %s

— TurnoFácil`,
		patient.Name,
		patient.PhoneNumber,
		appt.ScheduledAt.Format("02/01/2006 15:04"),
		appt.Status,
	)

	msg := EmailMessage{
		To:      doctor.NotificationEmail,
		ToName:  doctor.Name,
		Subject: subject,
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}
	s.logger.Info("booking notification sent", "doctor_id", doctor.ID, "appointment_id", appt.ID)
	return nil
}
