// Package rabbitmq provides the outbound broker adapter: topology
// declaration, the retrying publisher for order messages, and the centralized
// log publisher. All identifiers (exchanges, queues, routing keys) come from
// configuration; the ".dead" routing-key suffix is a fixed contract between
// the work queues and the dead-letter queue.
package rabbitmq

import (
	"fmt"

	"orderflow/internal/pkg/errs"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadSuffix is appended to a queue's routing key to form the dead-letter
// routing key under which its rejected messages reach the dead-letter queue.
const DeadSuffix = ".dead"

// Config names every broker object the service declares and uses.
type Config struct {
	CommandExchange    string
	EventExchange      string
	BroadcastExchange  string
	DeadLetterExchange string
	LoggingExchange    string

	CommandQueue    string
	EventQueue      string
	BroadcastQueue  string
	DeadLetterQueue string

	CommandRoutingKey   string
	EventRoutingKey     string
	BroadcastRoutingKey string
}

// DefaultConfig returns the topology names used when the environment does not
// override them.
func DefaultConfig() Config {
	return Config{
		CommandExchange:    "order.commands",
		EventExchange:      "order.events",
		BroadcastExchange:  "order.broadcast",
		DeadLetterExchange: "order.deadletter",
		LoggingExchange:    "logs",

		CommandQueue:    "orders.command.queue",
		EventQueue:      "orders.event.queue",
		BroadcastQueue:  "orders.broadcast.queue",
		DeadLetterQueue: "orders.deadletter.queue",

		CommandRoutingKey:   "orders.command",
		EventRoutingKey:     "orders.event",
		BroadcastRoutingKey: "orders.broadcast",
	}
}

// Validate reports the first missing identifier.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"CommandExchange", c.CommandExchange},
		{"EventExchange", c.EventExchange},
		{"BroadcastExchange", c.BroadcastExchange},
		{"DeadLetterExchange", c.DeadLetterExchange},
		{"LoggingExchange", c.LoggingExchange},
		{"CommandQueue", c.CommandQueue},
		{"EventQueue", c.EventQueue},
		{"BroadcastQueue", c.BroadcastQueue},
		{"DeadLetterQueue", c.DeadLetterQueue},
		{"CommandRoutingKey", c.CommandRoutingKey},
		{"EventRoutingKey", c.EventRoutingKey},
		{"BroadcastRoutingKey", c.BroadcastRoutingKey},
	}

	for _, field := range fields {
		if field.value == "" {
			return errs.NewValueIsRequiredError(field.name)
		}
	}

	return nil
}

// topologyChannel is the slice of *amqp.Channel the declaration needs.
type topologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTopology declares all exchanges, queues, and bindings the service
// relies on. Declarations are idempotent: redeclaring an existing object with
// identical attributes is a no-op on the broker, so this is safe to run on
// every startup.
//
// The three work queues dead-letter into the dead-letter exchange under
// "<routing key>.dead"; the dead-letter queue is bound to all three keys, so
// every rejected message lands there regardless of origin.
func DeclareTopology(ch topologyChannel, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	exchanges := []struct {
		name string
		kind string
	}{
		{cfg.CommandExchange, "direct"},
		{cfg.EventExchange, "direct"},
		{cfg.BroadcastExchange, "fanout"},
		{cfg.DeadLetterExchange, "direct"},
		{cfg.LoggingExchange, "topic"},
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.DeadLetterQueue, err)
	}

	workQueues := []struct {
		name string
		key  string
	}{
		{cfg.CommandQueue, cfg.CommandRoutingKey},
		{cfg.EventQueue, cfg.EventRoutingKey},
		{cfg.BroadcastQueue, cfg.BroadcastRoutingKey},
	}

	for _, q := range workQueues {
		args := amqp.Table{
			"x-dead-letter-exchange":    cfg.DeadLetterExchange,
			"x-dead-letter-routing-key": q.key + DeadSuffix,
		}
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	bindings := []struct {
		queue    string
		key      string
		exchange string
	}{
		{cfg.CommandQueue, cfg.CommandRoutingKey, cfg.CommandExchange},
		{cfg.EventQueue, cfg.EventRoutingKey, cfg.EventExchange},
		{cfg.BroadcastQueue, "", cfg.BroadcastExchange},
		{cfg.DeadLetterQueue, cfg.CommandRoutingKey + DeadSuffix, cfg.DeadLetterExchange},
		{cfg.DeadLetterQueue, cfg.EventRoutingKey + DeadSuffix, cfg.DeadLetterExchange},
		{cfg.DeadLetterQueue, cfg.BroadcastRoutingKey + DeadSuffix, cfg.DeadLetterExchange},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
