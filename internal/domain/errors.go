package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the order core. Each maps to a distinct caller-facing signal.
var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfStock = errors.New("insufficient stock")
	ErrForbidden  = errors.New("not authorized")
	ErrInvalid    = errors.New("invalid request")
	ErrConflict   = errors.New("conflict")
)

// OrderError carries the operation and, when relevant, the product line that failed.
type OrderError struct {
	Op        string
	ProductID int
	Message   string
	Err       error
}

func (e *OrderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ProductID > 0 {
		return fmt.Sprintf("%s: %s for product %d", e.Op, msg, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func NewOrderError(op string, err error, message string) *OrderError {
	return &OrderError{Op: op, Err: err, Message: message}
}

func NewProductError(op string, productID int, err error) *OrderError {
	return &OrderError{Op: op, ProductID: productID, Err: err}
}

// Invalidf builds an ErrInvalid with a formatted reason.
func Invalidf(op, format string, args ...interface{}) *OrderError {
	return &OrderError{Op: op, Err: ErrInvalid, Message: fmt.Sprintf(format, args...)}
}
