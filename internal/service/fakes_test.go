package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
)

var errInjected = errors.New("injected failure")

// faultyStore is a memstore whose individual calls can be made to fail.
type faultyStore struct {
	*memstore.Store
	failOrderItems bool
	failClearCart  bool
	failCount      bool
	failTransition bool
}

func (f *faultyStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if f.failOrderItems {
		return errInjected
	}
	return f.Store.CreateOrderItems(ctx, items)
}

func (f *faultyStore) ClearCart(ctx context.Context, clerkID string) error {
	if f.failClearCart {
		return errInjected
	}
	return f.Store.ClearCart(ctx, clerkID)
}

func (f *faultyStore) CountCartItems(ctx context.Context, clerkID string) (int, error) {
	if f.failCount {
		return 0, errInjected
	}
	return f.Store.CountCartItems(ctx, clerkID)
}

func (f *faultyStore) TransitionOrderStatus(ctx context.Context, id, clerkID string, from, to models.OrderStatus) (*models.Order, error) {
	if f.failTransition {
		return nil, store.ErrConflict
	}
	return f.Store.TransitionOrderStatus(ctx, id, clerkID, from, to)
}

type confirmCall struct {
	PaymentKey string
	OrderID    string
	Amount     int64
}

type recordingProcessor struct {
	mu    sync.Mutex
	calls []confirmCall
	err   error
}

func (p *recordingProcessor) ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int64) (*payment.Confirmation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, confirmCall{PaymentKey: paymentKey, OrderID: orderID, Amount: amount})
	if p.err != nil {
		return nil, p.err
	}
	approved := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, _ := json.Marshal(map[string]interface{}{
		"paymentKey":  paymentKey,
		"orderId":     orderID,
		"totalAmount": amount,
		"status":      "DONE",
		"method":      "카드",
	})
	return &payment.Confirmation{
		PaymentKey:  paymentKey,
		OrderID:     orderID,
		Method:      "카드",
		Status:      "DONE",
		TotalAmount: amount,
		ApprovedAt:  &approved,
		Raw:         raw,
	}, nil
}

func (p *recordingProcessor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type recordingPublisher struct {
	mu            sync.Mutex
	created       []*models.OrderCreatedEvent
	statusChanged []*models.OrderStatusChangedEvent
	confirmed     []*models.PaymentConfirmedEvent
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, e *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanged = append(p.statusChanged, e)
	return nil
}

func (p *recordingPublisher) PublishPaymentConfirmed(ctx context.Context, e *models.PaymentConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, e)
	return nil
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	err   error
	calls int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) ReleaseLock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type mapCache struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMapCache() *mapCache {
	return &mapCache{counts: make(map[string]int)}
}

func (c *mapCache) GetCartCount(ctx context.Context, clerkID string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[clerkID]
	return n, ok, nil
}

func (c *mapCache) SetCartCount(ctx context.Context, clerkID string, count int, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[clerkID] = count
	return nil
}

func (c *mapCache) InvalidateCartCount(ctx context.Context, clerkID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, clerkID)
	return nil
}

type fixture struct {
	store     *faultyStore
	cache     *mapCache
	publisher *recordingPublisher
	processor *recordingProcessor
	locker    *memLocker
	cart      *CartService
	orders    *OrderService
	payments  *PaymentService
	products  *ProductService
}

func newFixture() *fixture {
	st := &faultyStore{Store: memstore.New()}
	cache := newMapCache()
	pub := &recordingPublisher{}
	proc := &recordingProcessor{}
	locker := newMemLocker()

	cart := NewCartService(st, cache, time.Minute)
	orders := NewOrderService(st, cart, pub)
	return &fixture{
		store:     st,
		cache:     cache,
		publisher: pub,
		processor: proc,
		locker:    locker,
		cart:      cart,
		orders:    orders,
		payments:  NewPaymentService(st, orders, proc, locker, time.Minute, pub),
		products:  NewProductService(st),
	}
}

func (f *fixture) product(name string, price int64, stock int, active bool) string {
	category := "electronics"
	return f.store.PutProduct(models.Product{
		Name:          name,
		Price:         price,
		Category:      &category,
		StockQuantity: stock,
		IsActive:      active,
	})
}

func validAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Name:       "홍길동",
		Phone:      "010-1234-5678",
		PostalCode: "06236",
		Address:    "서울특별시 강남구 테헤란로 123",
	}
}
