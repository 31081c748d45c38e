package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/turnofacil/turnofacil/internal/conversation"
	"github.com/turnofacil/turnofacil/internal/observability/metrics"
	"github.com/turnofacil/turnofacil/pkg/logging"
)

var errInvalidPayload = errors.New("handlers: invalid webhook payload")

type inboundPublisher interface {
	Publish(ctx context.Context, msg conversation.InboundMessage) error
}

// WhatsAppWebhookHandler ingests inbound WhatsApp webhooks, normalizes them
// and enqueues them for the conversation worker. The provider gets a 200
// before any processing happens.
type WhatsAppWebhookHandler struct {
	publisher   inboundPublisher
	verifyToken string
	logger      *logging.Logger
	metrics     *metrics.BookingMetrics
}

type WhatsAppWebhookConfig struct {
	Publisher   inboundPublisher
	VerifyToken string
	Logger      *logging.Logger
	Metrics     *metrics.BookingMetrics
}

func NewWhatsAppWebhookHandler(cfg WhatsAppWebhookConfig) *WhatsAppWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		publisher:   cfg.Publisher,
		verifyToken: cfg.VerifyToken,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// HandleVerify answers the Meta webhook subscription handshake.
// Route: GET /webhooks/whatsapp/{doctorPhone}
func (h *WhatsAppWebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.verifyToken == "" || q.Get("hub.verify_token") != h.verifyToken {
		writeError(w, http.StatusForbidden, "verification failed")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

// HandleInbound accepts both the WhatsApp Cloud API envelope and the
// simplified {from, message} payload used by integration tests and
// lighter-weight gateways.
// Route: POST /webhooks/whatsapp/{doctorPhone}
func (h *WhatsAppWebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "queue not configured")
		return
	}
	start := time.Now()
	doctorPhone := strings.TrimSpace(chi.URLParam(r, "doctorPhone"))
	if doctorPhone == "" {
		h.metrics.ObserveInbound("rejected")
		writeError(w, http.StatusBadRequest, "missing doctorPhone")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.metrics.ObserveInbound("rejected")
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	msgs, err := parseInboundPayload(body, doctorPhone)
	if err != nil {
		h.metrics.ObserveInbound("rejected")
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(msgs) == 0 {
		// Status callbacks and other non-message events are acknowledged
		// without queueing anything.
		h.metrics.ObserveInbound("ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	for _, msg := range msgs {
		if err := h.publisher.Publish(r.Context(), msg); err != nil {
			h.logger.Error("failed to enqueue inbound message", "error", err, "message_id", msg.MessageID)
			h.metrics.ObserveInbound("error")
			writeError(w, http.StatusInternalServerError, "enqueue failed")
			return
		}
	}

	h.metrics.ObserveInbound("accepted")
	h.metrics.ObserveWebhookLatency(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cloudEnvelope mirrors the subset of the WhatsApp Cloud API webhook
// payload the bot cares about.
type cloudEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID   string `json:"id"`
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type simplePayload struct {
	MessageID   string `json:"message_id"`
	From        string `json:"from"`
	PhoneNumber string `json:"phone_number"`
	Sender      string `json:"sender"`
	Message     string `json:"message"`
	Body        string `json:"body"`
	Text        string `json:"text"`
}

func parseInboundPayload(body []byte, doctorPhone string) ([]conversation.InboundMessage, error) {
	var envelope cloudEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Entry) > 0 {
		var out []conversation.InboundMessage
		for _, entry := range envelope.Entry {
			for _, change := range entry.Changes {
				for _, m := range change.Value.Messages {
					if m.Type != "" && m.Type != "text" {
						continue
					}
					if m.From == "" || strings.TrimSpace(m.Text.Body) == "" {
						continue
					}
					out = append(out, conversation.InboundMessage{
						MessageID:   m.ID,
						DoctorPhone: doctorPhone,
						From:        m.From,
						Body:        m.Text.Body,
						ReceivedAt:  time.Now().UTC(),
					})
				}
			}
		}
		return out, nil
	}

	var simple simplePayload
	if err := json.Unmarshal(body, &simple); err != nil {
		return nil, err
	}
	from := firstNonEmpty(simple.From, simple.PhoneNumber, simple.Sender)
	text := firstNonEmpty(simple.Message, simple.Body, simple.Text)
	if from == "" || strings.TrimSpace(text) == "" {
		return nil, errInvalidPayload
	}
	id := simple.MessageID
	if id == "" {
		id = uuid.NewString()
	}
	return []conversation.InboundMessage{{
		MessageID:   id,
		DoctorPhone: doctorPhone,
		From:        from,
		Body:        text,
		ReceivedAt:  time.Now().UTC(),
	}}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
