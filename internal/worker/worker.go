package worker

import (
	"context"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventStore records which events were already handled
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// CartClearer empties a caller's cart
type CartClearer interface {
	ClearCart(ctx context.Context, caller auth.Caller) error
}

type messageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// CartCleanupWorker retries the cart clear of orders whose post-order clear failed
type CartCleanupWorker struct {
	consumer     messageSource
	eventHandler *broker.EventHandler
	events       EventStore
	cart         CartClearer
	logger       *zap.Logger
}

// NewCartCleanupWorker creates a new cart cleanup worker
func NewCartCleanupWorker(consumer *broker.Consumer, events EventStore, cart CartClearer) *CartCleanupWorker {
	return newCartCleanupWorker(consumer, events, cart)
}

func newCartCleanupWorker(consumer messageSource, events EventStore, cart CartClearer) *CartCleanupWorker {
	w := &CartCleanupWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		events:       events,
		cart:         cart,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnOrderCreated(w.HandleOrderCreated)
	return w
}

// Start consumes order events until ctx is cancelled
func (w *CartCleanupWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cart cleanup worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// HandleMessage routes one Kafka message
func (w *CartCleanupWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.eventHandler.HandleMessage(ctx, msg)
}

// HandleOrderCreated clears the cart of an order whose clear failed at creation time.
// Each event is handled once; a failed clear returns an error and the consumer retries the message.
func (w *CartCleanupWorker) HandleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "CartCleanupWorker.HandleOrderCreated")
	defer span.End()

	if event.CartCleared {
		util.CartCleanupEventsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	processed, err := w.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		util.CartCleanupEventsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	if err := w.cart.ClearCart(ctx, auth.Caller{ID: event.ClerkID}); err != nil {
		util.CartCleanupEventsTotal.WithLabelValues("failed").Inc()
		util.RecordError(span, err)
		return fmt.Errorf("failed to clear cart for order %s: %w", event.OrderID, err)
	}

	if err := w.events.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	util.CartCleanupEventsTotal.WithLabelValues("cleared").Inc()
	w.logger.Info("Cart cleared after order",
		zap.String("order_id", event.OrderID),
		zap.String("clerk_id", event.ClerkID))
	return nil
}

// Stop stops the worker
func (w *CartCleanupWorker) Stop() error {
	w.logger.Info("Stopping cart cleanup worker")
	return w.consumer.Close()
}
