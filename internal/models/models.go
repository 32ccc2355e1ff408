package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Product represents a product in the catalog
type Product struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   *string   `db:"description" json:"description"`
	Price         int64     `db:"price" json:"price"`
	Category      *string   `db:"category" json:"category"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is one cart line owned by a single caller
type CartItem struct {
	ID        string    `db:"id" json:"id"`
	ClerkID   string    `db:"clerk_id" json:"clerk_id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CartItemWithProduct joins a cart line with the current product row
type CartItemWithProduct struct {
	CartItem
	Product Product `db:"product" json:"product"`
}

// ShippingAddress is stored as a JSONB snapshot on the order
type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	PostalCode string `json:"postalCode"`
	Address    string `json:"address"`
}

// Complete reports whether every field carries a non-blank value.
func (a ShippingAddress) Complete() bool {
	return strings.TrimSpace(a.Name) != "" &&
		strings.TrimSpace(a.Phone) != "" &&
		strings.TrimSpace(a.PostalCode) != "" &&
		strings.TrimSpace(a.Address) != ""
}

// Value implements driver.Valuer for the JSONB column
func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for the JSONB column
func (a *ShippingAddress) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = ShippingAddress{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported shipping address type %T", src)
	}
}

// Order represents a customer order
type Order struct {
	ID              string          `db:"id" json:"id"`
	ClerkID         string          `db:"clerk_id" json:"clerk_id"`
	TotalAmount     int64           `db:"total_amount" json:"total_amount"`
	Status          OrderStatus     `db:"status" json:"status"`
	ShippingAddress ShippingAddress `db:"shipping_address" json:"shipping_address"`
	OrderNote       *string         `db:"order_note" json:"order_note"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable snapshot of one purchased line
type OrderItem struct {
	ID          string    `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	ProductID   string    `db:"product_id" json:"product_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	Price       int64     `db:"price" json:"price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// OrderWithItems is an order together with its lines in creation order
type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

// Payment records a processor-approved payment for an order
type Payment struct {
	ID         string     `db:"id" json:"id"`
	OrderID    string     `db:"order_id" json:"order_id"`
	PaymentKey string     `db:"payment_key" json:"payment_key"`
	Amount     int64      `db:"amount" json:"amount"`
	Method     string     `db:"method" json:"method"`
	Status     string     `db:"status" json:"status"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Payment statuses
const (
	PaymentStatusDone = "DONE"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
