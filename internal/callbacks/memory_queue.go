package callbacks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDeliveryLimit is returned by Release once a message has been handed out
// MaxMemoryDeliveries times. The message is dropped.
var ErrDeliveryLimit = errors.New("callbacks: delivery limit reached")

// MaxMemoryDeliveries bounds redelivery of a released message.
const MaxMemoryDeliveries = 5

type memoryEntry struct {
	msg        Message
	deliveries int
}

// MemoryQueue is a Queue backed by a buffered channel. Received messages stay
// in flight until deleted or released.
type MemoryQueue struct {
	ch chan memoryEntry

	mu       sync.Mutex
	inflight map[string]memoryEntry
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch:       make(chan memoryEntry, buffer),
		inflight: make(map[string]memoryEntry),
	}
}

// Send enqueues a payload or blocks until ctx is done.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	return q.push(ctx, memoryEntry{msg: Message{ID: uuid.NewString(), Body: body}})
}

// Receive blocks until a message is available, ctx is done, or waitSeconds elapses.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var timeout <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, nil
	case entry := <-q.ch:
		return q.collect(entry, maxMessages), nil
	}
}

// Delete acknowledges an in-flight message.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	delete(q.inflight, receiptHandle)
	q.mu.Unlock()
	return nil
}

// Release puts an in-flight message back on the queue for another attempt.
// Unknown handles are ignored.
func (q *MemoryQueue) Release(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	entry, ok := q.inflight[receiptHandle]
	delete(q.inflight, receiptHandle)
	q.mu.Unlock()
	if !ok {
		return nil
	}
	if entry.deliveries >= MaxMemoryDeliveries {
		return ErrDeliveryLimit
	}
	return q.push(ctx, entry)
}

// Len reports the number of buffered messages.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// InFlight reports the number of received but unacknowledged messages.
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

func (q *MemoryQueue) push(ctx context.Context, entry memoryEntry) error {
	select {
	case q.ch <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) collect(first memoryEntry, max int) []Message {
	messages := make([]Message, 0, max)
	messages = append(messages, q.track(first))
	for len(messages) < max {
		select {
		case entry := <-q.ch:
			messages = append(messages, q.track(entry))
		default:
			return messages
		}
	}
	return messages
}

func (q *MemoryQueue) track(entry memoryEntry) Message {
	entry.deliveries++
	entry.msg.ReceiptHandle = uuid.NewString()
	q.mu.Lock()
	q.inflight[entry.msg.ReceiptHandle] = entry
	q.mu.Unlock()
	return entry.msg
}
