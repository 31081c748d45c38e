package doctors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/pkg/logging"
)

// Service owns doctor onboarding and configuration rules.
type Service struct {
	repo   *Repository
	logger *logging.Logger
}

// NewService constructs a doctors service.
func NewService(repo *Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("doctors: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create onboards a doctor, rejecting duplicate phone numbers and invalid schedules.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Doctor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	phone := strings.TrimSpace(input.PhoneNumber)
	if phone == "" {
		return nil, ErrInvalidPhone
	}
	if len(input.Schedule.WorkingHours) > 0 || input.Schedule.SlotMinutes != 0 {
		if err := input.Schedule.Validate(); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return nil, ErrDuplicatePhone
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	welcome := strings.TrimSpace(input.WelcomeMessage)
	if welcome == "" {
		welcome = fmt.Sprintf(DefaultWelcomeMessage, name)
	}

	doctor := &Doctor{
		Name:               name,
		PhoneNumber:        phone,
		SecondaryPhone:     strings.TrimSpace(input.SecondaryPhone),
		Specialty:          strings.TrimSpace(input.Specialty),
		WelcomeMessage:     welcome,
		PaymentLink:        strings.TrimSpace(input.PaymentLink),
		NotificationEmail:  strings.TrimSpace(input.NotificationEmail),
		Schedule:           input.Schedule,
		SubscriptionStatus: SubscriptionTrial,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}

	s.logger.Info("doctor onboarded", "doctor_id", doctor.ID, "phone", doctor.PhoneNumber)
	return doctor, nil
}

// GetByID loads a doctor by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every doctor.
func (s *Service) List(ctx context.Context) ([]Doctor, error) {
	return s.repo.List(ctx)
}

// GetByPhone resolves the doctor behind an inbound channel number.
func (s *Service) GetByPhone(ctx context.Context, phone string) (*Doctor, error) {
	return s.repo.GetByPhone(ctx, strings.TrimSpace(phone))
}

// Update applies a partial update, validating any replacement schedule first.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Doctor, error) {
	if input.Schedule != nil {
		if err := input.Schedule.Validate(); err != nil {
			return nil, err
		}
	}
	if input.SubscriptionStatus != nil && !input.SubscriptionStatus.Valid() {
		return nil, ErrInvalidSubscriptionStatus
	}
	return s.repo.Update(ctx, id, input)
}

// Delete removes a doctor account and all dependent records.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("doctor account removed", "doctor_id", id)
	return nil
}

// SubscriptionActive reports whether the doctor can engage the booking flow now.
func (s *Service) SubscriptionActive(d *Doctor) bool {
	return d.SubscriptionActiveAt(time.Now().UTC())
}
