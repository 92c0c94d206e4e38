package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"orderflow/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPublisher_RoutingKeyIsLevelDotService(t *testing.T) {
	ch := &fakePublishChannel{}
	lp := NewLogPublisher(ch, DefaultConfig(), "Order-Service", discardLogger())

	lp.Info(context.Background(), "order created", map[string]any{"orderId": "42"})

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, DefaultConfig().LoggingExchange, got.exchange)
	assert.Equal(t, "info.order-service", got.key)
	assert.False(t, got.mandatory, "log shipping is best effort")

	var entry messaging.LogEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "order created", entry.Message)
	assert.Equal(t, "Order-Service", entry.Service)
	assert.Equal(t, "42", entry.Data["orderId"])
	assert.NotEmpty(t, entry.ID)
}

func TestLogPublisher_ErrorFoldsCauseIntoData(t *testing.T) {
	ch := &fakePublishChannel{}
	lp := NewLogPublisher(ch, DefaultConfig(), "order-service", discardLogger())

	lp.Error(context.Background(), "publish failed", nil, errors.New("broken pipe"))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "error.order-service", ch.published[0].key)

	var entry messaging.LogEvent
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "broken pipe", entry.Data["error"])
}

func TestLogPublisher_PublishFailureFallsBackLocally(t *testing.T) {
	ch := &fakePublishChannel{failures: 1, failWith: errors.New("broker down")}
	lp := NewLogPublisher(ch, DefaultConfig(), "order-service", discardLogger())

	// Must not panic or block; the entry is written to the local logger.
	lp.Warning(context.Background(), "health probe failed", nil)

	assert.Empty(t, ch.published)
}
