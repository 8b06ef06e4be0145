package domain

import "context"

// IdempotencyStore remembers which order a customer's idempotency key produced.
type IdempotencyStore interface {
	// Claim reserves key for customerID. If the key already completed it returns the order id and
	// claimed=false. A key still in flight yields ErrConflict.
	Claim(ctx context.Context, customerID int, key string) (orderID int, claimed bool, err error)
	Complete(ctx context.Context, customerID int, key string, orderID int) error
	// Forget drops a claim so the request can be retried after a failure.
	Forget(ctx context.Context, customerID int, key string) error
}
