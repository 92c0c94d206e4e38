package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"orderflow/internal/messaging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// LogPublisher ships structured log entries to the centralized logging topic
// exchange under the routing key "<level>.<service>". Shipping is best
// effort: when the publish fails the entry is written to the local logger
// instead, never dropped silently and never blocking the caller on retries.
type LogPublisher struct {
	ch       publishChannel
	exchange string
	service  string
	logger   *slog.Logger
}

// NewLogPublisher creates a log publisher for the given service name.
func NewLogPublisher(ch publishChannel, cfg Config, service string, logger *slog.Logger) *LogPublisher {
	return &LogPublisher{
		ch:       ch,
		exchange: cfg.LoggingExchange,
		service:  service,
		logger:   logger.With("component", "log_publisher"),
	}
}

// Info ships an info-level entry.
func (l *LogPublisher) Info(ctx context.Context, message string, data map[string]any) {
	l.publish(ctx, "INFO", message, data)
}

// Warning ships a warning-level entry.
func (l *LogPublisher) Warning(ctx context.Context, message string, data map[string]any) {
	l.publish(ctx, "WARNING", message, data)
}

// Error ships an error-level entry. A non-nil err is folded into the entry's
// data under "error".
func (l *LogPublisher) Error(ctx context.Context, message string, data map[string]any, err error) {
	if err != nil {
		if data == nil {
			data = make(map[string]any)
		}
		data["error"] = err.Error()
	}

	l.publish(ctx, "ERROR", message, data)
}

func (l *LogPublisher) publish(ctx context.Context, level, message string, data map[string]any) {
	entry := messaging.LogEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Service:   l.service,
		Data:      data,
	}

	body, err := json.Marshal(entry)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to marshal log entry", "error", err)
		return
	}

	routingKey := strings.ToLower(level) + "." + strings.ToLower(l.service)

	err = l.ch.PublishWithContext(ctx, l.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   entry.ID,
		Timestamp:   entry.Timestamp,
		Body:        body,
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to publish log entry to broker", "error", err)
		l.logger.InfoContext(ctx, "Log entry that failed to publish",
			"level", level, "message", message)
	}
}
