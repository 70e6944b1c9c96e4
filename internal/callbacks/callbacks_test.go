package callbacks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/internal/practice"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

func callbackTicket(id string) *booking.CallbackTicket {
	return &booking.CallbackTicket{
		ID:           id,
		PracticeID:   practice.KrebsNottuln,
		PatientName:  "Anna",
		PatientPhone: "+4925021234",
		Reason:       booking.ReasonHouseVisit,
		Status:       booking.StatusCallback,
		CreatedAt:    time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublisherEnqueue(t *testing.T) {
	q := NewMemoryQueue(4)
	p := NewPublisher(q)
	p.now = func() time.Time { return time.Date(2025, 1, 7, 9, 1, 0, 0, time.UTC) }

	if err := p.Enqueue(context.Background(), callbackTicket("cb-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs, err := q.Receive(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	var env Envelope
	if err := json.Unmarshal([]byte(msgs[0].Body), &env); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if env.ID == "" || env.Kind != EventCallbackRequested {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.Callback.ID != "cb-1" || env.Callback.Reason != booking.ReasonHouseVisit {
		t.Fatalf("callback not carried: %+v", env.Callback)
	}
	if !env.EnqueuedAt.Equal(time.Date(2025, 1, 7, 9, 1, 0, 0, time.UTC)) {
		t.Fatalf("enqueued_at = %s", env.EnqueuedAt)
	}
}

func TestPublisherNil(t *testing.T) {
	if err := NewPublisher(NewMemoryQueue(1)).Enqueue(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil ticket")
	}
}

func TestDecodeEnvelope(t *testing.T) {
	if _, err := decodeEnvelope("not json"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := decodeEnvelope(`{"id":"1","kind":"other.v1"}`); err == nil {
		t.Fatalf("expected kind error")
	}
	if _, err := decodeEnvelope(`{"id":"1","kind":"callback_requested.v1","callback":{}}`); err == nil {
		t.Fatalf("expected missing ticket error")
	}
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msgs, err := q.Receive(ctx, 1, 1)
	if err != nil || msgs != nil {
		t.Fatalf("expected empty poll, got %v %v", msgs, err)
	}
}

func TestMemoryQueueBatches(t *testing.T) {
	q := NewMemoryQueue(8)
	for i := 0; i < 3; i++ {
		if err := q.Send(context.Background(), "m"); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	msgs, err := q.Receive(context.Background(), 2, 0)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("expected batch of 2, got %d %v", len(msgs), err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 left, got %d", q.Len())
	}
}

func TestMemoryQueueReleaseLimit(t *testing.T) {
	q := NewMemoryQueue(2)
	if err := q.Send(context.Background(), "m"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for i := 1; i <= MaxMemoryDeliveries; i++ {
		msgs, err := q.Receive(context.Background(), 1, 1)
		if err != nil || len(msgs) != 1 {
			t.Fatalf("delivery %d: got %d messages, err %v", i, len(msgs), err)
		}
		err = q.Release(context.Background(), msgs[0].ReceiptHandle)
		if i < MaxMemoryDeliveries && err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
		if i == MaxMemoryDeliveries && !errors.Is(err, ErrDeliveryLimit) {
			t.Fatalf("expected delivery limit, got %v", err)
		}
	}
	if q.Len() != 0 || q.InFlight() != 0 {
		t.Fatalf("expected queue drained, len=%d inflight=%d", q.Len(), q.InFlight())
	}
}

func TestWorkerRequeuesFailedNotification(t *testing.T) {
	q := NewMemoryQueue(4)
	n := &recordingNotifier{fail: true}
	w := NewWorker(q, n, logging.New("error"))

	if err := NewPublisher(q).Enqueue(context.Background(), callbackTicket("cb-7")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs, err := q.Receive(context.Background(), 1, 1)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Receive: %d %v", len(msgs), err)
	}
	w.handleMessage(context.Background(), msgs[0])
	if q.Len() != 1 || q.InFlight() != 0 {
		t.Fatalf("failed notification should be requeued, len=%d inflight=%d", q.Len(), q.InFlight())
	}

	n.fail = false
	msgs, err = q.Receive(context.Background(), 1, 1)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Receive retry: %d %v", len(msgs), err)
	}
	w.handleMessage(context.Background(), msgs[0])
	if q.Len() != 0 || q.InFlight() != 0 {
		t.Fatalf("delivered message should be gone, len=%d inflight=%d", q.Len(), q.InFlight())
	}
	if len(n.ids) != 2 || n.ids[1] != "cb-7" {
		t.Fatalf("expected a retried notification, got %v", n.ids)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	ids  []string
	fail bool
	done chan struct{}
}

func (n *recordingNotifier) NotifyCallback(_ context.Context, c *booking.CallbackTicket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, c.ID)
	if n.done != nil {
		n.done <- struct{}{}
	}
	if n.fail {
		return errors.New("smtp down")
	}
	return nil
}

type deleteTrackingQueue struct {
	*MemoryQueue
	mu      sync.Mutex
	deleted []string
}

func (q *deleteTrackingQueue) Delete(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, handle)
	return nil
}

func TestWorkerHandleMessage(t *testing.T) {
	q := &deleteTrackingQueue{MemoryQueue: NewMemoryQueue(4)}
	n := &recordingNotifier{}
	w := NewWorker(q, n, logging.New("error"))

	body, err := encodeEnvelope(Envelope{Kind: EventCallbackRequested, Callback: *callbackTicket("cb-1")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.handleMessage(context.Background(), Message{ID: "1", Body: body, ReceiptHandle: "rh-1"})
	w.handleMessage(context.Background(), Message{ID: "2", Body: "garbage", ReceiptHandle: "rh-2"})

	n.fail = true
	w.handleMessage(context.Background(), Message{ID: "3", Body: body, ReceiptHandle: "rh-3"})

	if len(n.ids) != 2 {
		t.Fatalf("expected 2 notifications, got %v", n.ids)
	}
	if len(q.deleted) != 2 || q.deleted[0] != "rh-1" || q.deleted[1] != "rh-2" {
		t.Fatalf("expected handled and undecodable messages deleted, got %v", q.deleted)
	}
}

func TestWorkerRun(t *testing.T) {
	q := NewMemoryQueue(4)
	n := &recordingNotifier{done: make(chan struct{}, 2)}
	w := NewWorker(q, n, logging.New("error"), WithReceiveWaitSeconds(1), WithWorkerCount(2))

	p := NewPublisher(q)
	if err := p.Enqueue(context.Background(), callbackTicket("cb-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := p.Enqueue(context.Background(), callbackTicket("cb-2")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-n.done:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for notification %d", i+1)
		}
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

type fakeSQS struct {
	sent     []string
	deleted  []string
	messages []sqstypes.Message
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if in.MaxNumberOfMessages != 5 || in.WaitTimeSeconds != 20 {
		return nil, errors.New("unexpected receive params")
	}
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSQueue(t *testing.T) {
	api := &fakeSQS{messages: []sqstypes.Message{{
		MessageId:     aws.String("m-1"),
		Body:          aws.String("payload"),
		ReceiptHandle: aws.String("rh-1"),
	}}}
	q := NewSQSQueue(api, "https://sqs.eu-central-1.amazonaws.com/123/callbacks")
	ctx := context.Background()

	if err := q.Send(ctx, "payload"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs, err := q.Receive(ctx, 5, 20)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "payload" || msgs[0].ReceiptHandle != "rh-1" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if err := q.Delete(ctx, ""); err != nil {
		t.Fatalf("Delete empty: %v", err)
	}
	if err := q.Delete(ctx, "rh-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.sent) != 1 || len(api.deleted) != 1 {
		t.Fatalf("unexpected calls sent=%v deleted=%v", api.sent, api.deleted)
	}
}
