package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, f *fixture, caller auth.Caller, price int64, qty int) string {
	t.Helper()
	ctx := context.Background()
	productID := f.product("Product A", price, 100, true)
	_, err := f.cart.AddToCart(ctx, caller, productID, qty)
	require.NoError(t, err)
	result, err := f.orders.CreateOrder(ctx, caller, CreateOrderRequest{CartItems: cartOf(t, f, caller), ShippingAddress: validAddress()})
	require.NoError(t, err)
	return result.OrderID
}

func TestConfirmPaymentEndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orderID := placeOrder(t, f, alice, 10000, 2)

	resp, err := f.payments.ConfirmPayment(ctx, alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 20000})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, orderID, resp.OrderID)
	assert.Equal(t, "pk_1", resp.PaymentKey)
	assert.Equal(t, int64(20000), resp.Amount)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.PaymentResult, &result))
	assert.Equal(t, "DONE", result["status"])

	assert.Equal(t, 1, f.processor.Calls())
	assert.Equal(t, confirmCall{PaymentKey: "pk_1", OrderID: orderID, Amount: 20000}, f.processor.calls[0])

	order, err := f.orders.GetOrderByID(ctx, alice, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)

	payments := f.store.PaymentsForOrder(orderID)
	require.Len(t, payments, 1)
	assert.Equal(t, "카드", payments[0].Method)
	require.Len(t, f.publisher.confirmed, 1)

	_, err = f.payments.ConfirmPayment(ctx, alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 20000})
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	assert.Equal(t, 1, f.processor.Calls())
}

func TestConfirmPaymentAmountMismatchSkipsProcessor(t *testing.T) {
	f := newFixture()
	orderID := placeOrder(t, f, alice, 10000, 2)

	for _, amount := range []int64{19999, 20001, 1} {
		_, err := f.payments.ConfirmPayment(context.Background(), alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: amount})
		assert.True(t, apperr.Is(err, apperr.AmountMismatch), "amount %d", amount)
	}
	assert.Equal(t, 0, f.processor.Calls())
}

func TestConfirmPaymentNonPendingSkipsProcessor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orderID := placeOrder(t, f, alice, 10000, 1)
	_, err := f.orders.UpdateOrderStatus(ctx, alice, orderID, models.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = f.payments.ConfirmPayment(ctx, alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 10000})
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	assert.Equal(t, 0, f.processor.Calls())
}

func TestConfirmPaymentValidation(t *testing.T) {
	f := newFixture()
	orderID := placeOrder(t, f, alice, 10000, 1)

	tests := []struct {
		name   string
		caller auth.Caller
		req    ConfirmPaymentRequest
		kind   apperr.Kind
	}{
		{"anonymous", auth.Caller{}, ConfirmPaymentRequest{PaymentKey: "pk", OrderID: orderID, Amount: 10000}, apperr.Unauthenticated},
		{"missing key", alice, ConfirmPaymentRequest{OrderID: orderID, Amount: 10000}, apperr.InvalidInput},
		{"missing order", alice, ConfirmPaymentRequest{PaymentKey: "pk", Amount: 10000}, apperr.InvalidInput},
		{"zero amount", alice, ConfirmPaymentRequest{PaymentKey: "pk", OrderID: orderID}, apperr.InvalidInput},
		{"unknown order", alice, ConfirmPaymentRequest{PaymentKey: "pk", OrderID: "nope", Amount: 10000}, apperr.NotFound},
		{"other owner", auth.Caller{ID: "user_bob"}, ConfirmPaymentRequest{PaymentKey: "pk", OrderID: orderID, Amount: 10000}, apperr.Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.ConfirmPayment(context.Background(), tt.caller, tt.req)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.processor.Calls())
}

func TestConfirmPaymentProcessorFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orderID := placeOrder(t, f, alice, 10000, 1)
	f.processor.err = &payment.ProcessorError{StatusCode: 400, Code: "REJECT_CARD_COMPANY", Message: "카드사 거절"}

	_, err := f.payments.ConfirmPayment(ctx, alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 10000})
	require.True(t, apperr.Is(err, apperr.PaymentProcessorError))
	assert.Contains(t, apperr.PublicMessage(err), "카드사 거절")

	order, err := f.orders.GetOrderByID(ctx, alice, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Empty(t, f.store.PaymentsForOrder(orderID))

	// lock released, a later attempt reaches the processor again
	f.processor.err = nil
	_, err = f.payments.ConfirmPayment(ctx, alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, 2, f.processor.Calls())
}

func TestConfirmPaymentChargedButTransitionLost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orderID := placeOrder(t, f, alice, 10000, 1)
	f.store.failTransition = true

	_, err := f.payments.ConfirmPayment(ctx, alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 10000})
	require.Error(t, err)
	assert.Equal(t, apperr.PaymentProcessorError, apperr.KindOf(err))
	assert.Equal(t, 500, apperr.HTTPStatus(apperr.KindOf(err)))
	assert.Equal(t, 1, f.processor.Calls())
	assert.Len(t, f.store.PaymentsForOrder(orderID), 1)
	assert.Empty(t, f.publisher.confirmed)
}

func TestConfirmPaymentLockFailsClosed(t *testing.T) {
	f := newFixture()
	orderID := placeOrder(t, f, alice, 10000, 1)
	f.locker.err = errors.New("redis down")

	_, err := f.payments.ConfirmPayment(context.Background(), alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 10000})
	assert.True(t, apperr.Is(err, apperr.StoreError))
	assert.Equal(t, 0, f.processor.Calls())
}

func TestConfirmPaymentConcurrentCallsChargeOnce(t *testing.T) {
	f := newFixture()
	orderID := placeOrder(t, f, alice, 10000, 1)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.payments.ConfirmPayment(context.Background(), alice, ConfirmPaymentRequest{PaymentKey: "pk_1", OrderID: orderID, Amount: 10000})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.InvalidState), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.processor.Calls())
}
