package doctors

import (
	"time"

	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/schedule"
)

// SubscriptionStatus tracks whether a doctor may use the booking bot.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionTrial    SubscriptionStatus = "trial"
)

// Valid reports whether the status is one of the known enum values.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionInactive, SubscriptionTrial:
		return true
	}
	return false
}

// DefaultWelcomeMessage greets patients who message outside a booking flow.
const DefaultWelcomeMessage = "¡Hola! Soy el asistente virtual del Dr./Dra. %s. ¿En qué puedo ayudarte?"

// Doctor owns a WhatsApp number, a weekly schedule, and the patients booked against it.
type Doctor struct {
	ID                    uuid.UUID          `json:"id"`
	Name                  string             `json:"name"`
	PhoneNumber           string             `json:"phoneNumber"`
	SecondaryPhone        string             `json:"secondaryPhone,omitempty"`
	Specialty             string             `json:"specialty,omitempty"`
	WelcomeMessage        string             `json:"welcomeMessage"`
	PaymentLink           string             `json:"paymentLink,omitempty"`
	NotificationEmail     string             `json:"notificationEmail,omitempty"`
	WhitelistOnly         bool               `json:"whitelistOnly"`
	Schedule              schedule.Weekly    `json:"schedule"`
	SubscriptionStatus    SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time         `json:"subscriptionExpiresAt,omitempty"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

// SubscriptionActiveAt reports whether the doctor may engage the booking flow.
// Trial doctors are always active; active doctors expire once
// subscription_expires_at passes, when set.
func (d *Doctor) SubscriptionActiveAt(now time.Time) bool {
	switch d.SubscriptionStatus {
	case SubscriptionTrial:
		return true
	case SubscriptionActive:
		if d.SubscriptionExpiresAt == nil {
			return true
		}
		return d.SubscriptionExpiresAt.After(now)
	default:
		return false
	}
}

// CreateInput carries the fields accepted at doctor onboarding.
type CreateInput struct {
	Name              string          `json:"name"`
	PhoneNumber       string          `json:"phoneNumber"`
	SecondaryPhone    string          `json:"secondaryPhone"`
	Specialty         string          `json:"specialty"`
	WelcomeMessage    string          `json:"welcomeMessage"`
	PaymentLink       string          `json:"paymentLink"`
	NotificationEmail string          `json:"notificationEmail"`
	Schedule          schedule.Weekly `json:"schedule"`
}

// UpdateInput carries optional field updates; nil pointers leave fields untouched.
type UpdateInput struct {
	Name                  *string             `json:"name"`
	SecondaryPhone        *string             `json:"secondaryPhone"`
	Specialty             *string             `json:"specialty"`
	WelcomeMessage        *string             `json:"welcomeMessage"`
	PaymentLink           *string             `json:"paymentLink"`
	NotificationEmail     *string             `json:"notificationEmail"`
	WhitelistOnly         *bool               `json:"whitelistOnly"`
	Schedule              *schedule.Weekly    `json:"schedule"`
	SubscriptionStatus    *SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time          `json:"subscriptionExpiresAt"`
}
