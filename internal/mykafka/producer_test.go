package mykafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	total := decimal.RequireFromString("25.98")
	ev := NewEvent(TypeOrderPlaced, "sess-1", "reader")
	ev.OrderID = "42"
	ev.Total = &total

	msg, err := newMessage("reader", ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("reader"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, TypeOrderPlaced, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "order_placed", decoded["type"])
	assert.Equal(t, "42", decoded["orderID"])
	assert.Equal(t, "reader", decoded["userName"])
	assert.NotContains(t, decoded, "bookID")
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	var p Publisher = &r
	ctx := context.Background()

	require.NoError(t, p.PublishEvent(ctx, "a", NewEvent(TypeCartUpdated, "s", "")))
	require.NoError(t, p.PublishEvent(ctx, "a", NewEvent(TypeCartCleared, "s", "")))
	assert.Equal(t, []string{TypeCartUpdated, TypeCartCleared}, r.Types())
	assert.Len(t, r.Events(), 2)
	assert.NoError(t, p.Close())
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var p Publisher = Noop{}
	assert.NoError(t, p.PublishEvent(context.Background(), "k", NewEvent(TypeCartUpdated, "", "")))
	assert.NoError(t, p.Close())
}

func TestProducer_DoesNotBlockOnBroker(t *testing.T) {
	t.Parallel()

	p := NewProducer([]string{"127.0.0.1:1"}, "storefront.events", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = p.Close() })
	assert.True(t, p.writer.Async)
	assert.LessOrEqual(t, p.writer.BatchTimeout, 10*time.Millisecond)
	require.NotNil(t, p.writer.Completion)

	// nothing listens on the broker port; the call gives up within queueTimeout
	start := time.Now()
	_ = p.PublishEvent(context.Background(), "sess", NewEvent(TypeCartUpdated, "sess", ""))
	assert.Less(t, time.Since(start), queueTimeout+500*time.Millisecond)
}
