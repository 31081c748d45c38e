package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Queue lets callers hold either queue implementation behind one name.
type Queue = queueClient

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// InboundMessage is one patient text as received from the webhook.
type InboundMessage struct {
	MessageID   string    `json:"message_id"`
	DoctorPhone string    `json:"doctor_phone"`
	From        string    `json:"from"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
}

type queuePayload struct {
	ID      string         `json:"id"`
	Inbound InboundMessage `json:"inbound"`
}

// Publisher enqueues inbound messages for the worker pool.
type Publisher struct {
	queue queueClient
}

func NewPublisher(queue queueClient) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	return &Publisher{queue: queue}
}

// Publish places an inbound message on the queue. The webhook handler calls
// this and returns immediately so the provider never waits on processing.
func (p *Publisher) Publish(ctx context.Context, msg InboundMessage) error {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	payload := queuePayload{ID: uuid.NewString(), Inbound: msg}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("conversation: encode payload: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("conversation: enqueue inbound message: %w", err)
	}
	return nil
}
