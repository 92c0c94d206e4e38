package messaging

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wrapper every outbound message travels in. It gives the
// payload a unique message id, a correlation id for tracing causal chains
// across hops, a creation timestamp, a type tag for consumer dispatch, the
// producing service name, and a schema version.
//
// Invariant: CorrelationID is never blank. It defaults to MessageID; an
// explicitly supplied correlation id overrides the default only when it is
// non-blank.
type Envelope[T any] struct {
	MessageID     string    `json:"messageId"`
	CorrelationID string    `json:"correlationId"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       T         `json:"payload"`
	EventType     string    `json:"eventType"`
	Source        string    `json:"source"`
	Version       int       `json:"version"`
}

// NewEnvelope wraps payload in a fresh envelope. The correlation id starts a
// new chain: it equals the generated message id.
func NewEnvelope[T any](payload T, eventType, source string) Envelope[T] {
	messageID := uuid.NewString()
	return Envelope[T]{
		MessageID:     messageID,
		CorrelationID: messageID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		EventType:     eventType,
		Source:        source,
		Version:       1,
	}
}

// NewCorrelatedEnvelope wraps payload in a fresh envelope that continues an
// existing causal chain. A blank correlationID is ignored and the envelope
// falls back to its own message id, preserving the non-blank invariant.
func NewCorrelatedEnvelope[T any](payload T, eventType, source, correlationID string) Envelope[T] {
	envelope := NewEnvelope(payload, eventType, source)
	if strings.TrimSpace(correlationID) != "" {
		envelope.CorrelationID = correlationID
	}
	return envelope
}
