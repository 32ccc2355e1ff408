package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/store/memstore"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCart struct {
	cleared []string
	err     error
}

func (c *recordingCart) ClearCart(ctx context.Context, caller auth.Caller) error {
	if c.err != nil {
		return c.err
	}
	c.cleared = append(c.cleared, caller.ID)
	return nil
}

// sliceSource feeds fixed messages to the handler
type sliceSource struct {
	messages []kafka.Message
	errs     []error
}

func (s *sliceSource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		s.errs = append(s.errs, handler(ctx, msg))
	}
	return nil
}

func (s *sliceSource) Close() error { return nil }

func orderCreatedMessage(t *testing.T, eventID string, cleared bool) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.OrderCreatedEvent{
		BaseEvent:   models.BaseEvent{EventID: eventID, EventType: models.EventTypeOrderCreated},
		OrderID:     "ord-" + eventID,
		ClerkID:     "user_alice",
		CartCleared: cleared,
	})
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestWorkerClearsCartOncePerEvent(t *testing.T) {
	events := memstore.New()
	cart := &recordingCart{}
	src := &sliceSource{messages: []kafka.Message{
		orderCreatedMessage(t, "evt-1", false),
		orderCreatedMessage(t, "evt-1", false),
	}}

	w := newCartCleanupWorker(src, events, cart)
	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, []error{nil, nil}, src.errs)
	assert.Equal(t, []string{"user_alice"}, cart.cleared)

	done, err := events.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestWorkerSkipsClearedOrders(t *testing.T) {
	cart := &recordingCart{}
	src := &sliceSource{messages: []kafka.Message{orderCreatedMessage(t, "evt-2", true)}}

	w := newCartCleanupWorker(src, memstore.New(), cart)
	require.NoError(t, w.Start(context.Background()))

	assert.Empty(t, cart.cleared)
}

func TestWorkerReturnsErrorWhenClearFails(t *testing.T) {
	events := memstore.New()
	cart := &recordingCart{err: errors.New("db unavailable")}
	w := newCartCleanupWorker(&sliceSource{}, events, cart)

	err := w.HandleMessage(context.Background(), orderCreatedMessage(t, "evt-3", false))
	require.Error(t, err)

	done, _ := events.IsEventProcessed(context.Background(), "evt-3")
	assert.False(t, done)
}
