// Package memory holds process-local implementations of the storage interfaces,
// used by the memory storage driver and by tests.
package memory

import (
	"context"
	"sync"

	"marketplace/internal/domain"
)

// Ledger guards all stock counters with one mutex; check and decrement happen under the same lock.
type Ledger struct {
	mu       sync.Mutex
	products map[int]domain.Product
}

var _ domain.InventoryLedger = (*Ledger)(nil)

func NewLedger(products ...domain.Product) *Ledger {
	l := &Ledger{products: make(map[int]domain.Product, len(products))}
	for _, p := range products {
		l.products[p.ID] = p
	}
	return l
}

// Put inserts or replaces a product. Catalog management lives outside the order core;
// this exists for seeding.
func (l *Ledger) Put(p domain.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[p.ID] = p
}

func (l *Ledger) Product(id int) (domain.Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[id]
	return p, ok
}

func (l *Ledger) Stock(id int) int {
	p, _ := l.Product(id)
	return p.Stock
}

func (l *Ledger) Reserve(ctx context.Context, productID, quantity int) (*domain.Reservation, error) {
	if quantity <= 0 {
		return nil, domain.Invalidf("reserve", "quantity must be positive, got %d", quantity)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return nil, domain.NewProductError("reserve", productID, domain.ErrNotFound)
	}
	if p.Stock < quantity {
		return nil, domain.NewProductError("reserve", productID, domain.ErrOutOfStock)
	}
	p.Stock -= quantity
	l.products[productID] = p

	return &domain.Reservation{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		VendorID:    p.VendorID,
	}, nil
}

func (l *Ledger) Release(_ context.Context, productID, quantity int) error {
	if quantity <= 0 {
		return domain.Invalidf("release", "quantity must be positive, got %d", quantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return domain.NewProductError("release", productID, domain.ErrNotFound)
	}
	p.Stock += quantity
	l.products[productID] = p
	return nil
}
