package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int             `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	Stock    int             `json:"stock" yaml:"stock"`
	VendorID int             `json:"vendorId" yaml:"vendorId"`
}

// Reservation is the result of a successful stock decrement for one order line.
// Price and vendor are read in the same atomic step as the decrement.
type Reservation struct {
	ProductID   int
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	VendorID    int
}

// InventoryLedger owns product stock counters. It is the only path that mutates stock.
type InventoryLedger interface {
	// Reserve decrements stock by quantity iff the result stays non-negative.
	// Fails with ErrNotFound or ErrOutOfStock.
	Reserve(ctx context.Context, productID, quantity int) (*Reservation, error)
	// Release adds quantity back. Used for compensation and cancellation.
	Release(ctx context.Context, productID, quantity int) error
}
