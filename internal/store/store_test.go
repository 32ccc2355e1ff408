package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"storefront/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProductQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    models.ProductFilter
		wantQuery string
		wantArgs  []interface{}
	}{
		{
			name:      "defaults",
			filter:    models.ProductFilter{},
			wantQuery: "SELECT * FROM products WHERE is_active = TRUE ORDER BY created_at DESC, id ASC",
			wantArgs:  []interface{}{},
		},
		{
			name:      "category with page",
			filter:    models.ProductFilter{Category: "books", SortBy: models.SortByPrice, Ascending: true, Limit: 12, Offset: 24},
			wantQuery: "SELECT * FROM products WHERE is_active = TRUE AND category = $1 ORDER BY price ASC, id ASC LIMIT $2 OFFSET $3",
			wantArgs:  []interface{}{"books", 12, 24},
		},
		{
			name:      "unknown sort falls back to created_at",
			filter:    models.ProductFilter{SortBy: "id; DROP TABLE products", Limit: 5},
			wantQuery: "SELECT * FROM products WHERE is_active = TRUE ORDER BY created_at DESC, id ASC LIMIT $1",
			wantArgs:  []interface{}{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildProductQuery(tt.filter)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestNormalizeDriverErrors(t *testing.T) {
	err := normalize(&pq.Error{Code: "23505", Constraint: "cart_items_clerk_id_product_id_key"})
	assert.True(t, errors.Is(err, ErrConflict))

	malformed := normalize(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})
	assert.True(t, errors.Is(malformed, ErrNotFound))

	other := errors.New("connection reset")
	assert.Equal(t, other, normalize(other))
	assert.NoError(t, normalize(nil))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	s, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProduct(t *testing.T, s *Store, name string, price int64, stock int) string {
	t.Helper()
	var id string
	err := s.db.GetContext(context.Background(), &id,
		"INSERT INTO products (name, price, stock_quantity, category) VALUES ($1, $2, $3, 'books') RETURNING id",
		name, price, stock)
	require.NoError(t, err)
	return id
}

func TestCartUniquePerProduct(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	productID := seedProduct(t, s, "Go in Action", 32000, 10)
	clerkID := "user_store_test_cart"
	t.Cleanup(func() { _ = s.ClearCart(ctx, clerkID) })

	first := &models.CartItem{ClerkID: clerkID, ProductID: productID, Quantity: 1}
	require.NoError(t, s.InsertCartItem(ctx, first))
	assert.NotEmpty(t, first.ID)

	dup := &models.CartItem{ClerkID: clerkID, ProductID: productID, Quantity: 1}
	assert.ErrorIs(t, s.InsertCartItem(ctx, dup), ErrConflict)

	items, err := s.ListCartItems(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Go in Action", items[0].Product.Name)
}

func TestTransitionOrderStatusIsConditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	productID := seedProduct(t, s, "Mechanical Keyboard", 10000, 5)

	order := &models.Order{
		ClerkID:         "user_store_test_order",
		TotalAmount:     20000,
		Status:          models.OrderStatusPending,
		ShippingAddress: models.ShippingAddress{Name: "Kim", Phone: "010", PostalCode: "06236", Address: "Seoul"},
	}
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NoError(t, s.CreateOrderItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: productID, ProductName: "Mechanical Keyboard", Quantity: 2, Price: 10000},
	}))

	updated, err := s.TransitionOrderStatus(ctx, order.ID, order.ClerkID, models.OrderStatusPending, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, order.ShippingAddress, updated.ShippingAddress)

	_, err = s.TransitionOrderStatus(ctx, order.ID, order.ClerkID, models.OrderStatusPending, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.TransitionOrderStatus(ctx, order.ID, "someone_else", models.OrderStatusConfirmed, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)
}
