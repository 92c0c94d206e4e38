// Package rabbitmq provides the inbound broker adapter: a queue listener with
// prefetch 1, manual acknowledgement, bounded local retry, and
// reject-without-requeue so failed deliveries reach the dead-letter queue.
package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultMaxAttempts = 3

// MessageHandler processes one delivery body. A nil return acknowledges the
// delivery; an error triggers a local retry and, once attempts are exhausted,
// a reject without requeue.
type MessageHandler interface {
	Handle(ctx context.Context, body []byte) error
}

// consumeChannel is the slice of *amqp.Channel the listener needs.
type consumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(
		queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table,
	) (<-chan amqp.Delivery, error)
}

// Listener consumes one queue with a single blocking worker. Prefetch is 1 so
// the broker never hands this consumer more than one unacknowledged delivery;
// ordering within the queue is preserved.
type Listener struct {
	ch          consumeChannel
	queue       string
	handler     MessageHandler
	logger      *slog.Logger
	maxAttempts int
	grace       time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener creates a listener for the given queue. The grace duration
// bounds how long Stop waits for the in-flight delivery to finish.
func NewListener(
	ch consumeChannel,
	queue string,
	handler MessageHandler,
	grace time.Duration,
	logger *slog.Logger,
) *Listener {
	return &Listener{
		ch:          ch,
		queue:       queue,
		handler:     handler,
		logger:      logger.With("component", "rabbitmq_listener", "queue", queue),
		maxAttempts: defaultMaxAttempts,
		grace:       grace,
		done:        make(chan struct{}),
	}
}

// Start registers the consumer and launches the worker goroutine. Returns an
// error if Qos or consumer registration fails; afterwards the worker runs
// until Stop is called or the delivery channel closes.
func (l *Listener) Start(ctx context.Context) error {
	if err := l.ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := l.ch.Consume(l.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go l.work(workerCtx, deliveries)
	return nil
}

// Stop cancels consumption and waits up to the grace window for the in-flight
// delivery to finish. Returns false if the worker did not stop in time.
func (l *Listener) Stop() bool {
	if l.cancel != nil {
		l.cancel()
	}

	select {
	case <-l.done:
		return true
	case <-time.After(l.grace):
		l.logger.Warn("Worker did not stop within grace window")
		return false
	}
}

func (l *Listener) work(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			l.process(ctx, delivery)
		}
	}
}

// process runs the handler with bounded local retries. Success acks the
// delivery; exhausted attempts reject it exactly once without requeue, which
// routes it to the dead-letter queue via the queue's x-dead-letter arguments.
func (l *Listener) process(ctx context.Context, delivery amqp.Delivery) {
	var err error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err = l.handler.Handle(ctx, delivery.Body)
		if err == nil {
			if ackErr := delivery.Ack(false); ackErr != nil {
				l.logger.ErrorContext(ctx, "Failed to ack delivery",
					"messageId", delivery.MessageId, "error", ackErr)
			}
			return
		}

		l.logger.WarnContext(ctx, "Handler failed",
			"messageId", delivery.MessageId, "attempt", attempt, "error", err)
	}

	l.logger.ErrorContext(ctx, "Handler failed after all attempts, dead-lettering",
		"messageId", delivery.MessageId, "error", err)

	if rejectErr := delivery.Reject(false); rejectErr != nil {
		l.logger.ErrorContext(ctx, "Failed to reject delivery",
			"messageId", delivery.MessageId, "error", rejectErr)
	}
}
