package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ConfirmPaymentRequest is the callback payload of the hosted payment widget
type ConfirmPaymentRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// ConfirmPaymentResponse echoes the confirmed payment with the raw processor payload
type ConfirmPaymentResponse struct {
	Success       bool            `json:"success"`
	OrderID       string          `json:"orderId"`
	PaymentKey    string          `json:"paymentKey"`
	Amount        int64           `json:"amount"`
	PaymentResult json.RawMessage `json:"paymentResult"`
}

// PaymentService confirms payments with the processor and moves orders to confirmed
type PaymentService struct {
	store     OrderStore
	orders    *OrderService
	processor PaymentProcessor
	locker    Locker
	lockTTL   time.Duration
	publisher EventPublisher
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store OrderStore,
	orders *OrderService,
	processor PaymentProcessor,
	locker Locker,
	lockTTL time.Duration,
	publisher EventPublisher,
) *PaymentService {
	return &PaymentService{
		store:     store,
		orders:    orders,
		processor: processor,
		locker:    locker,
		lockTTL:   lockTTL,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

func confirmLockKey(orderID string) string {
	return "payment-confirm:" + orderID
}

// ConfirmPayment re-validates the order against the asserted amount, finalizes the
// payment with the processor and confirms the order. The processor is only called
// for a pending order whose stored total equals req.Amount.
func (ps *PaymentService) ConfirmPayment(ctx context.Context, caller auth.Caller, req ConfirmPaymentRequest) (*ConfirmPaymentResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ConfirmPayment")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()

	if !caller.Authenticated() {
		return nil, ps.reject("unauthenticated", errUnauthenticated())
	}
	if strings.TrimSpace(req.PaymentKey) == "" || strings.TrimSpace(req.OrderID) == "" || req.Amount <= 0 {
		return nil, ps.reject("invalid_input", apperr.New(apperr.InvalidInput, "paymentKey, orderId and a positive amount are required"))
	}

	order, err := ps.store.GetOrderByID(ctx, req.OrderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ps.reject("not_found", apperr.New(apperr.NotFound, "order not found"))
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, ps.reject("store_error", storeFailure(err, "load order"))
	}

	if order.ClerkID != caller.ID {
		ps.logger.Warn("Payment confirmation for another caller's order",
			zap.String("order_id", order.ID),
			zap.String("clerk_id", caller.ID))
		return nil, ps.reject("forbidden", apperr.New(apperr.Forbidden, "order belongs to another user"))
	}
	if order.Status != models.OrderStatusPending {
		return nil, ps.reject("invalid_state", apperr.New(apperr.InvalidState, "order already processed (status: %s)", order.Status))
	}
	if order.TotalAmount != req.Amount {
		ps.logger.Error("Payment amount mismatch",
			zap.String("order_id", order.ID),
			zap.Int64("order_amount", order.TotalAmount),
			zap.Int64("requested_amount", req.Amount))
		return nil, ps.reject("amount_mismatch", apperr.New(apperr.AmountMismatch, "payment amount does not match order total"))
	}

	lockKey := confirmLockKey(order.ID)
	acquired, err := ps.locker.AcquireLock(ctx, lockKey, ps.lockTTL)
	if err != nil {
		util.RecordError(span, err)
		return nil, ps.reject("lock_error", apperr.Wrap(apperr.StoreError, err, "failed to lock order for payment"))
	}
	if !acquired {
		return nil, ps.reject("in_progress", apperr.New(apperr.InvalidState, "payment confirmation already in progress"))
	}
	defer func() {
		if err := ps.locker.ReleaseLock(context.Background(), lockKey); err != nil {
			ps.logger.Warn("Failed to release payment lock", zap.String("order_id", order.ID), zap.Error(err))
		}
	}()

	// Another confirmation may have finished between the first read and the lock.
	order, err = ps.store.GetOrderByID(ctx, order.ID)
	if err != nil {
		util.RecordError(span, err)
		return nil, ps.reject("store_error", storeFailure(err, "reload order"))
	}
	if order.Status != models.OrderStatusPending {
		return nil, ps.reject("invalid_state", apperr.New(apperr.InvalidState, "order already processed (status: %s)", order.Status))
	}

	ps.logger.Info("Confirming payment",
		zap.String("order_id", order.ID),
		zap.Int64("amount", req.Amount))

	start := time.Now()
	confirmation, err := ps.processor.ConfirmPayment(ctx, req.PaymentKey, order.ID, req.Amount)
	util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.RecordError(span, err)
		return nil, ps.reject("processor_error", apperr.Wrap(apperr.PaymentProcessorError, err, "payment processor rejected the confirmation"))
	}

	if _, err := ps.orders.transition(ctx, order, models.OrderStatusConfirmed); err != nil {
		// The processor has charged; keep the payment row for reconciliation.
		ps.logger.Error("Payment confirmed but order status update failed",
			zap.String("order_id", order.ID),
			zap.String("payment_key", req.PaymentKey),
			zap.Error(err))
		util.RecordError(span, err)
		ps.recordPayment(ctx, order, req, confirmation.Method, confirmation.Status, confirmation.ApprovedAt)
		return nil, ps.reject("status_update_failed",
			apperr.Wrap(apperr.PaymentProcessorError, err, "payment was approved but the order could not be confirmed"))
	}

	ps.recordPayment(ctx, order, req, confirmation.Method, confirmation.Status, confirmation.ApprovedAt)

	event := &models.PaymentConfirmedEvent{
		OrderID:    order.ID,
		ClerkID:    order.ClerkID,
		PaymentKey: req.PaymentKey,
		Amount:     req.Amount,
		Method:     confirmation.Method,
	}
	if err := ps.publisher.PublishPaymentConfirmed(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypePaymentConfirmed).Inc()
		ps.logger.Error("Failed to publish PaymentConfirmed event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	util.PaymentSuccessTotal.Inc()
	ps.logger.Info("Payment confirmed", zap.String("order_id", order.ID))

	raw := confirmation.Raw
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return &ConfirmPaymentResponse{
		Success:       true,
		OrderID:       order.ID,
		PaymentKey:    req.PaymentKey,
		Amount:        req.Amount,
		PaymentResult: raw,
	}, nil
}

// recordPayment stores the approved payment. Failure is logged only; the order
// status already reflects the charge.
func (ps *PaymentService) recordPayment(ctx context.Context, order *models.Order, req ConfirmPaymentRequest, method, status string, approvedAt *time.Time) {
	if status == "" {
		status = models.PaymentStatusDone
	}
	payment := &models.Payment{
		OrderID:    order.ID,
		PaymentKey: req.PaymentKey,
		Amount:     req.Amount,
		Method:     method,
		Status:     status,
		ApprovedAt: approvedAt,
	}
	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		ps.logger.Error("Failed to record payment",
			zap.String("order_id", order.ID),
			zap.String("payment_key", req.PaymentKey),
			zap.Error(err))
	}
}

func (ps *PaymentService) reject(reason string, err error) error {
	util.PaymentFailedTotal.WithLabelValues(reason).Inc()
	return err
}
