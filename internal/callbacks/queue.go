// Package callbacks moves callback tickets from the booking path to the
// notification worker through a message queue.
package callbacks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/practice-booking/internal/booking"
)

// Queue is the transport between publisher and worker.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is one received queue entry.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// EventCallbackRequested is the envelope kind for callback tickets.
const EventCallbackRequested = "callback_requested.v1"

// Envelope is the JSON body placed on the queue.
type Envelope struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	Callback   booking.CallbackTicket `json:"callback"`
	EnqueuedAt time.Time              `json:"enqueued_at"`
}

func encodeEnvelope(env Envelope) (string, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("callbacks: encode envelope: %w", err)
	}
	return string(body), nil
}

func decodeEnvelope(body string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return Envelope{}, fmt.Errorf("callbacks: decode envelope: %w", err)
	}
	if env.Kind != EventCallbackRequested {
		return Envelope{}, fmt.Errorf("callbacks: unexpected envelope kind %q", env.Kind)
	}
	if env.Callback.ID == "" || env.Callback.PracticeID == "" {
		return Envelope{}, fmt.Errorf("callbacks: envelope %s missing callback ticket", env.ID)
	}
	return env, nil
}

// Publisher enqueues callback tickets.
type Publisher struct {
	queue Queue
	now   func() time.Time
}

// NewPublisher wraps queue.
func NewPublisher(queue Queue) *Publisher {
	if queue == nil {
		panic("callbacks: queue required")
	}
	return &Publisher{queue: queue, now: time.Now}
}

// Enqueue publishes c as a callback_requested.v1 envelope.
func (p *Publisher) Enqueue(ctx context.Context, c *booking.CallbackTicket) error {
	if c == nil {
		return fmt.Errorf("callbacks: nil callback ticket")
	}
	body, err := encodeEnvelope(Envelope{
		Kind:       EventCallbackRequested,
		Callback:   *c,
		EnqueuedAt: p.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("callbacks: enqueue %s: %w", c.ID, err)
	}
	return nil
}

var _ booking.CallbackPublisher = (*Publisher)(nil)
