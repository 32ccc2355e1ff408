package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartClearer empties a caller's cart once an order exists.
type CartClearer interface {
	ClearCart(ctx context.Context, caller auth.Caller) error
}

// OrderService handles order business logic
type OrderService struct {
	store     OrderStore
	cart      CartClearer
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, cart CartClearer, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		cart:      cart,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest carries the caller's cart snapshot. Product fields in the
// snapshot are display data only; prices and stock are re-read from the catalog.
type CreateOrderRequest struct {
	CartItems       []models.CartItemWithProduct
	ShippingAddress models.ShippingAddress
	OrderNote       *string
}

// CreateOrderResult separates the authoritative order from the best-effort cart clear.
type CreateOrderResult struct {
	OrderID      string
	TotalAmount  int64
	CartCleared  bool
	CartClearErr error
}

type orderLine struct {
	productID   string
	productName string
	quantity    int
}

// CreateOrder validates the cart against the live catalog and persists the order with its items
func (s *OrderService) CreateOrder(ctx context.Context, caller auth.Caller, req CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if !caller.Authenticated() {
		return nil, errUnauthenticated()
	}
	if len(req.CartItems) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, apperr.New(apperr.EmptyCart, "cart is empty")
	}
	if !req.ShippingAddress.Complete() {
		util.OrdersFailedTotal.WithLabelValues("invalid_address").Inc()
		return nil, apperr.New(apperr.InvalidShippingAddress, "shipping address is incomplete")
	}

	lines := make([]orderLine, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		if item.ProductID == "" || item.Quantity <= 0 {
			return nil, apperr.New(apperr.InvalidInput, "cart line has no product or a non-positive quantity")
		}
		lines = append(lines, orderLine{
			productID:   item.ProductID,
			productName: item.Product.Name,
			quantity:    item.Quantity,
		})
	}

	products, err := s.validateLines(ctx, lines)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	order := &models.Order{
		ClerkID:         caller.ID,
		TotalAmount:     calculateTotal(lines, products),
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		OrderNote:       req.OrderNote,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		util.RecordError(span, err)
		return nil, storeFailure(err, "create order")
	}

	orderItems := make([]models.OrderItem, 0, len(lines))
	eventItems := make([]models.OrderItemData, 0, len(lines))
	for _, line := range lines {
		product := products[line.productID]
		orderItems = append(orderItems, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.quantity,
			Price:       product.Price,
		})
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: product.ID,
			Quantity:  line.quantity,
			UnitPrice: product.Price,
		})
	}

	if err := s.store.CreateOrderItems(ctx, orderItems); err != nil {
		s.compensateOrder(ctx, order.ID)
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		util.RecordError(span, err)
		return nil, storeFailure(err, "create order items")
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("clerk_id", caller.ID),
		zap.Int64("total_amount", order.TotalAmount))

	result := &CreateOrderResult{OrderID: order.ID, TotalAmount: order.TotalAmount}
	if err := s.cart.ClearCart(ctx, caller); err != nil {
		result.CartClearErr = err
		util.CartClearFailedTotal.Inc()
		s.logger.Warn("Failed to clear cart after order creation",
			zap.String("order_id", order.ID),
			zap.String("clerk_id", caller.ID),
			zap.Error(err))
	} else {
		result.CartCleared = true
	}

	event := &models.OrderCreatedEvent{
		OrderID:     order.ID,
		ClerkID:     caller.ID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
		CartCleared: result.CartCleared,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeOrderCreated).Inc()
		s.logger.Error("Failed to publish OrderCreated event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	return result, nil
}

// validateLines re-reads every product and checks the summed quantity per product
// against live stock. A product that no longer exists counts as inactive.
func (s *OrderService) validateLines(ctx context.Context, lines []orderLine) (map[string]*models.Product, error) {
	requested := make(map[string]int, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, seen := requested[line.productID]; !seen {
			ids = append(ids, line.productID)
		}
		requested[line.productID] += line.quantity
	}

	found, err := s.store.GetProductsByIDs(ctx, ids)
	if errors.Is(err, store.ErrNotFound) {
		found = nil
	} else if err != nil {
		return nil, storeFailure(err, "load products")
	}

	products := make(map[string]*models.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	for _, line := range lines {
		product, ok := products[line.productID]
		if !ok {
			name := line.productName
			if name == "" {
				name = line.productID
			}
			return nil, apperr.New(apperr.ProductInactive, "%s is no longer available", name)
		}
		if requested[product.ID] > product.StockQuantity {
			return nil, stockExceeded(product, requested[product.ID])
		}
		if !product.IsActive {
			return nil, apperr.New(apperr.ProductInactive, "%s is no longer available", product.Name)
		}
	}

	return products, nil
}

// calculateTotal sums current unit price times quantity over all lines
func calculateTotal(lines []orderLine, products map[string]*models.Product) int64 {
	var total int64
	for _, line := range lines {
		total += products[line.productID].Price * int64(line.quantity)
	}
	return total
}

// compensateOrder removes an order whose items could not be stored
func (s *OrderService) compensateOrder(ctx context.Context, orderID string) {
	util.OrderCompensationsTotal.Inc()
	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		s.logger.Error("Failed to delete order after items insert failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return
	}
	s.logger.Warn("Order rolled back after items insert failed", zap.String("order_id", orderID))
}

// GetOrderByID returns the caller's order with its items, or nil when the caller has no such order
func (s *OrderService) GetOrderByID(ctx context.Context, caller auth.Caller, orderID string) (*models.OrderWithItems, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrderByID")
	defer span.End()

	if !caller.Authenticated() {
		return nil, errUnauthenticated()
	}

	order, err := s.store.GetOrderForUser(ctx, orderID, caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load order")
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load order items")
	}

	return &models.OrderWithItems{Order: *order, Items: items}, nil
}

// GetUserOrders lists the caller's orders, newest first
func (s *OrderService) GetUserOrders(ctx context.Context, caller auth.Caller) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetUserOrders")
	defer span.End()

	if !caller.Authenticated() {
		return nil, errUnauthenticated()
	}

	orders, err := s.store.ListOrdersByUser(ctx, caller.ID)
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load orders")
	}
	return orders, nil
}

// UpdateOrderStatus moves the caller's order along the status lifecycle
func (s *OrderService) UpdateOrderStatus(ctx context.Context, caller auth.Caller, orderID string, next models.OrderStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if !caller.Authenticated() {
		return nil, errUnauthenticated()
	}
	if !next.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown order status %q", next)
	}

	current, err := s.store.GetOrderForUser(ctx, orderID, caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load order")
	}

	updated, err := s.transition(ctx, current, next)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return updated, nil
}

// transition applies one edge of the lifecycle with a conditional update on the
// current status, so two racing writers cannot both succeed.
func (s *OrderService) transition(ctx context.Context, order *models.Order, next models.OrderStatus) (*models.Order, error) {
	from := order.Status
	if !from.CanTransitionTo(next) {
		return nil, apperr.New(apperr.InvalidState, "cannot change order status from %s to %s", from, next)
	}

	updated, err := s.store.TransitionOrderStatus(ctx, order.ID, order.ClerkID, from, next)
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Wrap(apperr.InvalidState, err, fmt.Sprintf("order is no longer %s", from))
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.New(apperr.NotFound, "order not found")
	case err != nil:
		return nil, storeFailure(err, "update order status")
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(string(from), string(next)).Inc()
	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)))

	event := &models.OrderStatusChangedEvent{
		OrderID: order.ID,
		ClerkID: order.ClerkID,
		From:    from,
		To:      next,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeOrderStatusChanged).Inc()
		s.logger.Error("Failed to publish OrderStatusChanged event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	return updated, nil
}
