// Package apperr defines the structured errors returned by the storefront services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. The HTTP layer derives its status code from it.
type Kind string

const (
	Unauthenticated        Kind = "UNAUTHENTICATED"
	InvalidInput           Kind = "INVALID_INPUT"
	InvalidShippingAddress Kind = "INVALID_SHIPPING_ADDRESS"
	NotFound               Kind = "NOT_FOUND"
	Forbidden              Kind = "FORBIDDEN"
	InvalidState           Kind = "INVALID_STATE"
	StockExceeded          Kind = "STOCK_EXCEEDED"
	ProductInactive        Kind = "PRODUCT_INACTIVE"
	EmptyCart              Kind = "EMPTY_CART"
	AmountMismatch         Kind = "AMOUNT_MISMATCH"
	PaymentProcessorError  Kind = "PAYMENT_PROCESSOR_ERROR"
	StoreError             Kind = "STORE_ERROR"
	Internal               Kind = "INTERNAL"
)

// Error is a classified service error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of err, Internal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidInput, InvalidShippingAddress, InvalidState, StockExceeded,
		ProductInactive, EmptyCart, AmountMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a client. Store and internal
// failures keep their cause out of the response.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	switch appErr.Kind {
	case StoreError, Internal:
		return appErr.Message
	default:
		return appErr.Error()
	}
}
