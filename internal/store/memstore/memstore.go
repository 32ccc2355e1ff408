// Package memstore is an in-memory implementation of the storefront store contract.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/google/uuid"
)

type row[T any] struct {
	seq   int64
	value T
}

type Store struct {
	mu         sync.RWMutex
	seq        int64
	products   map[string]*row[models.Product]
	cartItems  map[string]*row[models.CartItem]
	orders     map[string]*row[models.Order]
	orderItems map[string]*row[models.OrderItem]
	payments   map[string]*row[models.Payment]
	processed  map[string]string
}

func New() *Store {
	return &Store{
		products:   make(map[string]*row[models.Product]),
		cartItems:  make(map[string]*row[models.CartItem]),
		orders:     make(map[string]*row[models.Order]),
		orderItems: make(map[string]*row[models.OrderItem]),
		payments:   make(map[string]*row[models.Payment]),
		processed:  make(map[string]string),
	}
}

func (s *Store) next() (int64, time.Time) {
	s.seq++
	return s.seq, time.Now().UTC()
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// PutProduct inserts or replaces a catalog row and returns its id.
func (s *Store) PutProduct(p models.Product) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	seq, now := s.next()
	if existing, ok := s.products[p.ID]; ok {
		seq = existing.seq
		p.CreatedAt = existing.value.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = &row[models.Product]{seq: seq, value: p}
	return p.ID
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	p := r.value
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Product{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r, ok := s.products[id]; ok {
			out = append(out, r.value)
		}
	}
	return out, nil
}

func (s *Store) activeProducts(category string) []*row[models.Product] {
	rows := []*row[models.Product]{}
	for _, r := range s.products {
		if !r.value.IsActive {
			continue
		}
		if category != "" && (r.value.Category == nil || *r.value.Category != category) {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.activeProducts(filter.Category)
	less := func(a, b *row[models.Product]) int {
		switch filter.SortBy {
		case models.SortByPrice:
			return compareInt64(a.value.Price, b.value.Price)
		case models.SortByName:
			return strings.Compare(a.value.Name, b.value.Name)
		default:
			return compareInt64(a.seq, b.seq)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := less(rows[i], rows[j])
		if c == 0 {
			return rows[i].value.ID < rows[j].value.ID
		}
		if filter.Ascending {
			return c < 0
		}
		return c > 0
	})

	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if filter.Limit > 0 && filter.Limit < end-start {
		end = start + filter.Limit
	}

	out := make([]models.Product, 0, end-start)
	for _, r := range rows[start:end] {
		out = append(out, r.value)
	}
	return out, nil
}

func (s *Store) CountProducts(ctx context.Context, filter models.ProductFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activeProducts(filter.Category)), nil
}

func (s *Store) GetCartItemByProduct(ctx context.Context, clerkID, productID string) (*models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.cartItems {
		if r.value.ClerkID == clerkID && r.value.ProductID == productID {
			item := r.value
			return &item, nil
		}
	}
	return nil, fmt.Errorf("cart item for product %s: %w", productID, store.ErrNotFound)
}

func (s *Store) GetCartItemWithProduct(ctx context.Context, id, clerkID string) (*models.CartItemWithProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.cartItems[id]
	if !ok || r.value.ClerkID != clerkID {
		return nil, fmt.Errorf("cart item %s: %w", id, store.ErrNotFound)
	}
	p, ok := s.products[r.value.ProductID]
	if !ok {
		return nil, fmt.Errorf("cart item %s: %w", id, store.ErrNotFound)
	}
	return &models.CartItemWithProduct{CartItem: r.value, Product: p.value}, nil
}

func (s *Store) InsertCartItem(ctx context.Context, item *models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[item.ProductID]; !ok {
		return fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
	}
	for _, r := range s.cartItems {
		if r.value.ClerkID == item.ClerkID && r.value.ProductID == item.ProductID {
			return fmt.Errorf("%w: cart_items_clerk_id_product_id_key", store.ErrConflict)
		}
	}

	seq, now := s.next()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.cartItems[item.ID] = &row[models.CartItem]{seq: seq, value: *item}
	return nil
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, id, clerkID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.cartItems[id]
	if !ok || r.value.ClerkID != clerkID {
		return fmt.Errorf("cart item %s: %w", id, store.ErrNotFound)
	}
	r.value.Quantity = quantity
	r.value.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteCartItem(ctx context.Context, id, clerkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.cartItems[id]; ok && r.value.ClerkID == clerkID {
		delete(s.cartItems, id)
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, clerkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.cartItems {
		if r.value.ClerkID == clerkID {
			delete(s.cartItems, id)
		}
	}
	return nil
}

func (s *Store) ListCartItems(ctx context.Context, clerkID string) ([]models.CartItemWithProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []*row[models.CartItem]{}
	for _, r := range s.cartItems {
		if r.value.ClerkID == clerkID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]models.CartItemWithProduct, 0, len(rows))
	for _, r := range rows {
		p, ok := s.products[r.value.ProductID]
		if !ok {
			continue
		}
		out = append(out, models.CartItemWithProduct{CartItem: r.value, Product: p.value})
	}
	return out, nil
}

func (s *Store) CountCartItems(ctx context.Context, clerkID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.cartItems {
		if r.value.ClerkID == clerkID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, now := s.next()
	order.ID = uuid.NewString()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = &row[models.Order]{seq: seq, value: cloneOrder(*order)}
	return nil
}

func (s *Store) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if _, ok := s.orders[item.OrderID]; !ok {
			return fmt.Errorf("order %s: %w", item.OrderID, store.ErrNotFound)
		}
	}
	for _, item := range items {
		seq, now := s.next()
		item.ID = uuid.NewString()
		item.CreatedAt = now
		s.orderItems[item.ID] = &row[models.OrderItem]{seq: seq, value: item}
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, id)
	for itemID, r := range s.orderItems {
		if r.value.OrderID == id {
			delete(s.orderItems, itemID)
		}
	}
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	o := cloneOrder(r.value)
	return &o, nil
}

func (s *Store) GetOrderForUser(ctx context.Context, id, clerkID string) (*models.Order, error) {
	o, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.ClerkID != clerkID {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	return o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, clerkID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []*row[models.Order]{}
	for _, r := range s.orders {
		if r.value.ClerkID == clerkID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, cloneOrder(r.value))
	}
	return out, nil
}

func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []*row[models.OrderItem]{}
	for _, r := range s.orderItems {
		if r.value.OrderID == orderID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]models.OrderItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.value)
	}
	return out, nil
}

func (s *Store) TransitionOrderStatus(ctx context.Context, id, clerkID string, from, to models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[id]
	if !ok || r.value.ClerkID != clerkID {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	if r.value.Status != from {
		return nil, fmt.Errorf("order %s not in status %s: %w", id, from, store.ErrConflict)
	}
	r.value.Status = to
	r.value.UpdatedAt = time.Now().UTC()
	o := cloneOrder(r.value)
	return &o, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.payments {
		if r.value.PaymentKey == payment.PaymentKey {
			return fmt.Errorf("%w: payments_payment_key_key", store.ErrConflict)
		}
	}
	seq, now := s.next()
	payment.ID = uuid.NewString()
	payment.CreatedAt = now
	s.payments[payment.ID] = &row[models.Payment]{seq: seq, value: *payment}
	return nil
}

// PaymentsForOrder returns the recorded payments of an order.
func (s *Store) PaymentsForOrder(orderID string) []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Payment{}
	for _, r := range s.payments {
		if r.value.OrderID == orderID {
			out = append(out, r.value)
		}
	}
	return out
}

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[eventID]; !ok {
		s.processed[eventID] = eventType
	}
	return nil
}

func cloneOrder(o models.Order) models.Order {
	if o.OrderNote != nil {
		note := *o.OrderNote
		o.OrderNote = &note
	}
	return o
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
