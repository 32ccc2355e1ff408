package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypePaymentConfirmed   = "PAYMENT_CONFIRMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order and its items are persisted.
// CartCleared is false when the post-order cart clear failed and still has to be retried.
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	ClerkID     string          `json:"clerk_id"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
	CartCleared bool            `json:"cart_cleared"`
}

// OrderStatusChangedEvent published after every successful status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string      `json:"order_id"`
	ClerkID string      `json:"clerk_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

// PaymentConfirmedEvent published when the processor approved a payment
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	ClerkID    string `json:"clerk_id"`
	PaymentKey string `json:"payment_key"`
	Amount     int64  `json:"amount"`
	Method     string `json:"method,omitempty"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
