package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartService handles cart business logic
type CartService struct {
	store    CartStore
	cache    CartCountCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCartService creates a new cart service. A nil cache disables badge caching.
func NewCartService(store CartStore, cache CartCountCache, cacheTTL time.Duration) *CartService {
	if cache == nil {
		cache = noCache{}
	}
	return &CartService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// AddToCart adds quantity of a product to the caller's cart, merging with an existing line
func (s *CartService) AddToCart(ctx context.Context, caller auth.Caller, productID string, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	if !caller.Authenticated() {
		return nil, errUnauthenticated()
	}
	if quantity <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be greater than zero")
	}
	if productID == "" {
		return nil, apperr.New(apperr.InvalidInput, "product id is required")
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load product")
	}
	if !product.IsActive {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}

	// A concurrent insert of the same line makes the first attempt conflict;
	// the second attempt then sees the row and merges into it.
	var item *models.CartItem
	for attempt := 0; attempt < 2; attempt++ {
		var retry bool
		item, retry, err = s.upsertLine(ctx, caller, product, quantity)
		if !retry || attempt > 0 {
			break
		}
		s.logger.Debug("Retrying cart upsert after concurrent change",
			zap.String("clerk_id", caller.ID),
			zap.String("product_id", productID))
	}
	if err != nil {
		util.CartOperationsTotal.WithLabelValues("add", string(apperr.KindOf(err))).Inc()
		util.RecordError(span, err)
		return nil, err
	}

	s.invalidateCount(ctx, caller.ID)
	util.CartOperationsTotal.WithLabelValues("add", "ok").Inc()
	return item, nil
}

func (s *CartService) upsertLine(ctx context.Context, caller auth.Caller, product *models.Product, quantity int) (*models.CartItem, bool, error) {
	existing, err := s.store.GetCartItemByProduct(ctx, caller.ID, product.ID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if merged > product.StockQuantity {
			return nil, false, stockExceeded(product, merged)
		}
		err = s.store.UpdateCartItemQuantity(ctx, existing.ID, caller.ID, merged)
		if errors.Is(err, store.ErrNotFound) {
			return nil, true, apperr.New(apperr.InvalidState, "cart changed concurrently, please retry")
		}
		if err != nil {
			return nil, false, storeFailure(err, "update cart item")
		}
		existing.Quantity = merged
		return existing, false, nil

	case errors.Is(err, store.ErrNotFound):
		if quantity > product.StockQuantity {
			return nil, false, stockExceeded(product, quantity)
		}
		item := &models.CartItem{ClerkID: caller.ID, ProductID: product.ID, Quantity: quantity}
		err = s.store.InsertCartItem(ctx, item)
		if errors.Is(err, store.ErrConflict) {
			return nil, true, apperr.New(apperr.InvalidState, "cart changed concurrently, please retry")
		}
		if err != nil {
			return nil, false, storeFailure(err, "add cart item")
		}
		return item, false, nil

	default:
		return nil, false, storeFailure(err, "load cart item")
	}
}

// UpdateCartItem overwrites the quantity of one of the caller's lines after re-checking live stock
func (s *CartService) UpdateCartItem(ctx context.Context, caller auth.Caller, cartItemID string, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateCartItem")
	defer span.End()

	if !caller.Authenticated() {
		return nil, errUnauthenticated()
	}
	if quantity <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be greater than zero")
	}

	line, err := s.store.GetCartItemWithProduct(ctx, cartItemID, caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "cart item not found")
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load cart item")
	}

	if quantity > line.Product.StockQuantity {
		util.CartOperationsTotal.WithLabelValues("update", string(apperr.StockExceeded)).Inc()
		return nil, stockExceeded(&line.Product, quantity)
	}

	err = s.store.UpdateCartItemQuantity(ctx, cartItemID, caller.ID, quantity)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "cart item not found")
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "update cart item")
	}

	s.invalidateCount(ctx, caller.ID)
	util.CartOperationsTotal.WithLabelValues("update", "ok").Inc()

	item := line.CartItem
	item.Quantity = quantity
	return &item, nil
}

// RemoveFromCart deletes one of the caller's lines. Removing a missing line succeeds.
func (s *CartService) RemoveFromCart(ctx context.Context, caller auth.Caller, cartItemID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveFromCart")
	defer span.End()

	if !caller.Authenticated() {
		return errUnauthenticated()
	}

	err := s.store.DeleteCartItem(ctx, cartItemID, caller.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		util.RecordError(span, err)
		return storeFailure(err, "remove cart item")
	}

	s.invalidateCount(ctx, caller.ID)
	util.CartOperationsTotal.WithLabelValues("remove", "ok").Inc()
	return nil
}

// ClearCart deletes every line of the caller
func (s *CartService) ClearCart(ctx context.Context, caller auth.Caller) error {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	if !caller.Authenticated() {
		return errUnauthenticated()
	}

	if err := s.store.ClearCart(ctx, caller.ID); err != nil {
		util.RecordError(span, err)
		return storeFailure(err, "clear cart")
	}

	s.invalidateCount(ctx, caller.ID)
	util.CartOperationsTotal.WithLabelValues("clear", "ok").Inc()
	return nil
}

// GetCartItems lists the caller's lines with their current products, newest first.
// Anonymous callers get an empty cart.
func (s *CartService) GetCartItems(ctx context.Context, caller auth.Caller) ([]models.CartItemWithProduct, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCartItems")
	defer span.End()

	if !caller.Authenticated() {
		return []models.CartItemWithProduct{}, nil
	}

	items, err := s.store.ListCartItems(ctx, caller.ID)
	if err != nil {
		util.RecordError(span, err)
		return nil, storeFailure(err, "load cart")
	}
	return items, nil
}

// GetCartItemCount returns the number of lines in the caller's cart for the badge.
// It never fails: anonymous callers and store errors yield 0.
func (s *CartService) GetCartItemCount(ctx context.Context, caller auth.Caller) int {
	ctx, span := util.StartSpan(ctx, "CartService.GetCartItemCount")
	defer span.End()

	if !caller.Authenticated() {
		return 0
	}

	count, ok, err := s.cache.GetCartCount(ctx, caller.ID)
	switch {
	case err != nil:
		util.CartCountCacheTotal.WithLabelValues("error").Inc()
		s.logger.Debug("Cart count cache unavailable", zap.Error(err))
	case ok:
		util.CartCountCacheTotal.WithLabelValues("hit").Inc()
		return count
	default:
		util.CartCountCacheTotal.WithLabelValues("miss").Inc()
	}

	count, err = s.store.CountCartItems(ctx, caller.ID)
	if err != nil {
		s.logger.Warn("Failed to count cart items",
			zap.String("clerk_id", caller.ID),
			zap.Error(err))
		return 0
	}

	if err := s.cache.SetCartCount(ctx, caller.ID, count, s.cacheTTL); err != nil {
		s.logger.Debug("Failed to cache cart count", zap.Error(err))
	}
	return count
}

func (s *CartService) invalidateCount(ctx context.Context, clerkID string) {
	if err := s.cache.InvalidateCartCount(ctx, clerkID); err != nil {
		s.logger.Warn("Failed to invalidate cart count",
			zap.String("clerk_id", clerkID),
			zap.Error(err))
	}
}
