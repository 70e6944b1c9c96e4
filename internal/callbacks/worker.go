package callbacks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/practice-booking/internal/booking"
	"github.com/wolfman30/practice-booking/pkg/logging"
)

const maxReceiveBatchSize = 10

// Notifier delivers a callback ticket to the practice.
type Notifier interface {
	NotifyCallback(ctx context.Context, c *booking.CallbackTicket) error
}

type workerConfig struct {
	workers          int
	receiveBatchSize int
	receiveWaitSecs  int
}

// WorkerOption customises a Worker.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of polling goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// Worker drains the callback queue and hands each ticket to a Notifier.
type Worker struct {
	queue    Queue
	notifier Notifier
	cfg      workerConfig
	logger   *logging.Logger
	wg       sync.WaitGroup
}

// NewWorker creates a worker; Start launches it.
func NewWorker(queue Queue, notifier Notifier, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("callbacks: queue required")
	}
	if notifier == nil {
		panic("callbacks: notifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{workers: 1, receiveBatchSize: 5, receiveWaitSecs: 20}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{queue: queue, notifier: notifier, cfg: cfg, logger: logger.Component("callback-worker")}
}

// Start launches the polling goroutines; they stop when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Run starts the worker and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	w.Start(ctx)
	w.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("callback worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("callback worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("failed to receive callback messages", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage deletes a message once it is notified or undecodable.
// Notification failures leave it on the queue for redelivery.
func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	env, err := decodeEnvelope(msg.Body)
	if err != nil {
		w.logger.Error("failed to decode callback message", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	cb := env.Callback
	if err := w.notifier.NotifyCallback(ctx, &cb); err != nil {
		w.logger.Error("callback notification failed",
			"error", err,
			"ticket_id", cb.ID,
			"practice_id", cb.PracticeID,
		)
		w.releaseMessage(context.Background(), msg.ReceiptHandle)
		return
	}
	w.logger.Info("callback notified", "ticket_id", cb.ID, "practice_id", cb.PracticeID, "envelope_id", env.ID)
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

// releaser is implemented by queues that need an explicit nack to redeliver.
// SQS redelivers on its own once the visibility timeout lapses.
type releaser interface {
	Release(ctx context.Context, receiptHandle string) error
}

func (w *Worker) releaseMessage(ctx context.Context, receiptHandle string) {
	r, ok := w.queue.(releaser)
	if !ok {
		return
	}
	if err := r.Release(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to release callback message", "error", err)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete callback message", "error", err)
	}
}
