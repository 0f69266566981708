package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrProductNotFound indicates a cart line references an unknown product.
	ErrProductNotFound = errors.New("order: product not found")
	// ErrProductUnavailable covers inactive products and insufficient stock.
	ErrProductUnavailable = errors.New("order: product unavailable")
	// ErrOrderConflict indicates the order's state does not allow the operation.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderForbidden indicates the caller may not act on the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInternal wraps collaborator failures that are not the caller's fault.
	ErrOrderInternal = errors.New("order: internal")
)

// OrderError pairs one of the sentinel kinds with the message shown to the client.
// errors.Is matches both the kind and the wrapped cause.
type OrderError struct {
	Kind    error
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *OrderError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func orderError(kind error, message string) *OrderError {
	return &OrderError{Kind: kind, Message: message}
}

func internalError(message string, cause error) *OrderError {
	return &OrderError{Kind: ErrOrderInternal, Message: message, Err: cause}
}
