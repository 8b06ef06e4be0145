package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
)

// postgresLedger keeps stock in the products table. Each reservation is one conditional UPDATE,
// so concurrent reservations of the same product are serialized by the row lock.
type postgresLedger struct {
	db  *sql.DB
	log *logrus.Logger
}

var _ domain.InventoryLedger = (*postgresLedger)(nil)

func NewPostgresLedger(db *sql.DB, logger *logrus.Logger) domain.InventoryLedger {
	return &postgresLedger{
		db:  db,
		log: logger,
	}
}

func (r *postgresLedger) Reserve(ctx context.Context, productID, quantity int) (*domain.Reservation, error) {
	if quantity <= 0 {
		return nil, domain.Invalidf("reserve", "quantity must be positive, got %d", quantity)
	}

	query := `
        UPDATE products
        SET stock = stock - $1
        WHERE id = $2 AND stock >= $1
        RETURNING name, price, vendor_id`
	res := &domain.Reservation{ProductID: productID, Quantity: quantity}
	err := r.db.QueryRowContext(ctx, query, quantity, productID).Scan(
		&res.ProductName,
		&res.UnitPrice,
		&res.VendorID,
	)
	if err == nil {
		r.log.Debugf("Ledger: Reserved %d of product %d", quantity, productID)
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Ledger: Stock check constraint rejected reservation of %d for product %d", quantity, productID)
			return nil, domain.NewProductError("reserve", productID, domain.ErrOutOfStock)
		}
		r.log.Errorf("Ledger: Failed to reserve %d of product %d: %v", quantity, productID, err)
		return nil, fmt.Errorf("could not reserve stock for product %d: %w", productID, err)
	}

	exists, err := r.productExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		r.log.Warnf("Ledger: Product with ID %d not found", productID)
		return nil, domain.NewProductError("reserve", productID, domain.ErrNotFound)
	}
	r.log.Warnf("Ledger: Insufficient stock for product %d (requested %d)", productID, quantity)
	return nil, domain.NewProductError("reserve", productID, domain.ErrOutOfStock)
}

func (r *postgresLedger) Release(ctx context.Context, productID, quantity int) error {
	if quantity <= 0 {
		return domain.Invalidf("release", "quantity must be positive, got %d", quantity)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE products SET stock = stock + $1 WHERE id = $2`, quantity, productID)
	if err != nil {
		r.log.Errorf("Ledger: Failed to release %d of product %d: %v", quantity, productID, err)
		return fmt.Errorf("could not release stock for product %d: %w", productID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm stock release for product %d: %w", productID, err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Ledger: Product with ID %d not found for release", productID)
		return domain.NewProductError("release", productID, domain.ErrNotFound)
	}

	r.log.Debugf("Ledger: Released %d of product %d", quantity, productID)
	return nil
}

func (r *postgresLedger) productExists(ctx context.Context, productID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		r.log.Errorf("Ledger: Failed to check existence of product %d: %v", productID, err)
		return false, fmt.Errorf("could not check product %d: %w", productID, err)
	}
	return exists, nil
}
