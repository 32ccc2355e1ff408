package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (clerk_id, total_amount, status, shipping_address, order_note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.ClerkID, order.TotalAmount, order.Status, order.ShippingAddress, order.OrderNote)
	return normalize(row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt))
}

// CreateOrderItems inserts all lines of an order in one statement
func (s *Store) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
		VALUES (:order_id, :product_id, :product_name, :quantity, :price)`

	_, err := s.db.NamedExecContext(ctx, query, items)
	return normalize(err)
}

// DeleteOrder removes an order row; used to compensate a failed items insert
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	return normalize(err)
}

// GetOrderByID retrieves an order by ID without an owner filter
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, normalize(err)
	}
	return &order, nil
}

// GetOrderForUser retrieves an order only when it belongs to clerkID
func (s *Store) GetOrderForUser(ctx context.Context, id, clerkID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 AND clerk_id = $2", id, clerkID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, normalize(err)
	}
	return &order, nil
}

// ListOrdersByUser retrieves orders for a user, newest first
func (s *Store) ListOrdersByUser(ctx context.Context, clerkID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE clerk_id = $1 ORDER BY created_at DESC", clerkID)
	return orders, normalize(err)
}

// GetOrderItems retrieves all items for an order in creation order
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at ASC, id ASC", orderID)
	return items, normalize(err)
}

// TransitionOrderStatus moves the caller's order from one status to another in a single
// conditional update. ErrConflict means the row exists but was no longer in status from.
func (s *Store) TransitionOrderStatus(ctx context.Context, id, clerkID string, from, to models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND clerk_id = $3 AND status = $4
		RETURNING *`, to, id, clerkID, from)
	if errors.Is(err, sql.ErrNoRows) {
		if _, lookupErr := s.GetOrderForUser(ctx, id, clerkID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, fmt.Errorf("order %s not in status %s: %w", id, from, ErrConflict)
	}
	if err != nil {
		return nil, normalize(err)
	}
	return &order, nil
}

// CreatePayment records an approved payment
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, payment_key, amount, method, status, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query,
		payment.OrderID, payment.PaymentKey, payment.Amount, payment.Method, payment.Status, payment.ApprovedAt)
	return normalize(row.Scan(&payment.ID, &payment.CreatedAt))
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, normalize(err)
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return normalize(err)
}
