package messaging

import (
	"context"
	"strings"

	"github.com/turnofacil/turnofacil/pkg/logging"
)

// Messenger delivers a single outbound text to a phone number.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}

// LogMessenger writes outbound texts to the log instead of delivering them.
// Used in development and when WhatsApp credentials are absent.
type LogMessenger struct {
	logger *logging.Logger
}

func NewLogMessenger(logger *logging.Logger) *LogMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) SendText(_ context.Context, to, body string) error {
	m.logger.Info("outbound message (log only)", "to", to, "body", body)
	return nil
}

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
