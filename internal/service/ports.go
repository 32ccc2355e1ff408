package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"
)

// CatalogStore reads products.
type CatalogStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	CountProducts(ctx context.Context, filter models.ProductFilter) (int, error)
}

// CartStore persists cart lines. Every call is scoped to the owning clerk id.
type CartStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetCartItemByProduct(ctx context.Context, clerkID, productID string) (*models.CartItem, error)
	GetCartItemWithProduct(ctx context.Context, id, clerkID string) (*models.CartItemWithProduct, error)
	InsertCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, id, clerkID string, quantity int) error
	DeleteCartItem(ctx context.Context, id, clerkID string) error
	ClearCart(ctx context.Context, clerkID string) error
	ListCartItems(ctx context.Context, clerkID string) ([]models.CartItemWithProduct, error)
	CountCartItems(ctx context.Context, clerkID string) (int, error)
}

// OrderStore persists orders, their items and payments.
type OrderStore interface {
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderForUser(ctx context.Context, id, clerkID string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	ListOrdersByUser(ctx context.Context, clerkID string) ([]models.Order, error)
	TransitionOrderStatus(ctx context.Context, id, clerkID string, from, to models.OrderStatus) (*models.Order, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
}

// EventPublisher emits domain events. Implementations: broker.EventPublisher, broker.NopPublisher.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error
}

// Locker is a best-effort mutual exclusion keyed by name.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// CartCountCache caches the cart badge count per user.
type CartCountCache interface {
	GetCartCount(ctx context.Context, clerkID string) (int, bool, error)
	SetCartCount(ctx context.Context, clerkID string, count int, ttl time.Duration) error
	InvalidateCartCount(ctx context.Context, clerkID string) error
}

// PaymentProcessor finalizes a payment with the hosted processor.
type PaymentProcessor interface {
	ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int64) (*payment.Confirmation, error)
}

type noCache struct{}

func (noCache) GetCartCount(context.Context, string) (int, bool, error) {
	return 0, false, nil
}

func (noCache) SetCartCount(context.Context, string, int, time.Duration) error {
	return nil
}

func (noCache) InvalidateCartCount(context.Context, string) error {
	return nil
}
