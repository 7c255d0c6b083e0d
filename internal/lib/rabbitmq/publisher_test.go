package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishesToBoundQueue(t *testing.T) {
	ctx := context.Background()
	amqpURI := amqpURIForTest(ctx, t)

	const exchange = "entitlement.publisher-test"
	pub, err := NewPublisher(ctx, amqpURI, exchange)
	require.NoError(t, err)
	defer func() {
		if err := pub.Close(); err != nil {
			t.Errorf("failed to close publisher: %v", err)
		}
	}()

	conn, err := Connect(ctx, amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := SetupChannel(conn, exchange, []QueueConfig{
		{QueueName: "publisher-test.activated", RoutingKey: "subscription.activated"},
	})
	require.NoError(t, err)

	msg := map[string]any{"user_uid": "u-1", "plan": "PREMIUM"}
	require.NoError(t, pub.Publish(ctx, "subscription.activated", msg))

	deliveries, err := ch.Consume("publisher-test.activated", "test-consumer", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got map[string]any
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, "PREMIUM", got["plan"])
		assert.Equal(t, "application/json", d.ContentType)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message via exchange")
	}

	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{Ch: make(chan int)}

		err := pub.Publish(ctx, "subscription.activated", badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, pub.Publish(cctx, "subscription.activated", msg), context.Canceled)
	})
}
