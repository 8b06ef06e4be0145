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

const orderColumns = `id, order_number, customer_id, total_amount, shipping_address, shipping_city,
        shipping_zip, shipping_country, payment_method, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type postgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

var _ domain.OrderRepository = (*postgresOrderRepository)(nil)

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresOrderRepository) Create(ctx context.Context, order *domain.Order) (created *domain.Order, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Failed to begin transaction: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Recovered from panic, rolling back transaction")
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			r.log.Warnf("Rolling back transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.log.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	orderQuery := `
        INSERT INTO orders (order_number, customer_id, total_amount, shipping_address, shipping_city,
            shipping_zip, shipping_country, payment_method, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, orderQuery,
		order.OrderNumber,
		order.CustomerID,
		order.TotalAmount,
		order.Shipping.Address,
		order.Shipping.City,
		order.Shipping.Zip,
		order.Shipping.Country,
		order.PaymentMethod,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.log.Errorf("Failed to insert order for customer %d: %v", order.CustomerID, err)
		return nil, translatePqError("could not create order entry", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO order_items (order_id, product_id, vendor_id, quantity, unit_price)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`)
	if err != nil {
		r.log.Errorf("Failed to prepare order item statement: %v", err)
		return nil, fmt.Errorf("could not prepare item statement: %w", err)
	}
	defer stmt.Close()

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = stmt.QueryRowContext(ctx, order.ID, item.ProductID, item.VendorID, item.Quantity, item.UnitPrice).Scan(&item.ID)
		if err != nil {
			r.log.Errorf("Failed to insert order item (product_id: %d, quantity: %d) for order %d: %v", item.ProductID, item.Quantity, order.ID, err)
			return nil, translatePqError(fmt.Sprintf("could not create order item (product_id: %d)", item.ProductID), err)
		}
	}

	if err = tx.Commit(); err != nil {
		r.log.Errorf("Failed to commit transaction: %v", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Infof("Order %d (%s) created with %d items", order.ID, order.OrderNumber, len(order.Items))
	return order, nil
}

func (r *postgresOrderRepository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Order with ID %d not found", id)
			return nil, domain.NewOrderError("find order", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
		}
		r.log.Errorf("Failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	itemsByOrder, err := r.loadItems(ctx, []int64{int64(id)}, 0)
	if err != nil {
		return nil, err
	}
	order.Items = itemsByOrder[id]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return order, nil
}

func (r *postgresOrderRepository) FindByCustomer(ctx context.Context, customerID int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE customer_id = $1
        ORDER BY created_at DESC, id DESC`
	return r.listOrders(ctx, 0, query, customerID)
}

func (r *postgresOrderRepository) FindByVendor(ctx context.Context, vendorID int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders o
        WHERE EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.vendor_id = $1)
        ORDER BY created_at DESC, id DESC`
	return r.listOrders(ctx, vendorID, query, vendorID)
}

func (r *postgresOrderRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	limit, offset = domain.NormalizePage(limit, offset)
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        ORDER BY created_at DESC, id DESC
        LIMIT $1 OFFSET $2`
	return r.listOrders(ctx, 0, query, limit, offset)
}

func (r *postgresOrderRepository) UpdateStatus(ctx context.Context, id int, from, next domain.OrderStatus) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
        RETURNING ` + orderColumns
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, next, id, from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.statusMismatch(ctx, id, from)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Invalid status value '%s' for order ID %d: %v", next, id, err)
			return nil, domain.Invalidf("update status", "invalid order status provided: %s", next)
		}
		r.log.Errorf("Failed to update status for order ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update order status: %w", err)
	}

	itemsByOrder, err := r.loadItems(ctx, []int64{int64(id)}, 0)
	if err != nil {
		return nil, fmt.Errorf("order status updated, but failed to retrieve items: %w", err)
	}
	order.Items = itemsByOrder[id]

	r.log.Infof("Order %d status changed from '%s' to '%s'", order.ID, from, order.Status)
	return order, nil
}

func (r *postgresOrderRepository) statusMismatch(ctx context.Context, id int, from domain.OrderStatus) error {
	var current domain.OrderStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		r.log.Warnf("Order with ID %d not found for status update", id)
		return domain.NewOrderError("update status", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return fmt.Errorf("could not re-read order status: %w", err)
	}
	r.log.Warnf("Order %d status changed concurrently (expected '%s', found '%s')", id, from, current)
	return domain.NewOrderError("update status", domain.ErrConflict,
		fmt.Sprintf("order %d is now '%s', expected '%s'", id, current, from))
}

// listOrders runs a header query and attaches items with one batched query.
// vendorID > 0 restricts attached items to that vendor.
func (r *postgresOrderRepository) listOrders(ctx context.Context, vendorID int, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Failed to list orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	orderIDs := []int64{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.log.Errorf("Failed to scan order row: %v", err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, *order)
		orderIDs = append(orderIDs, int64(order.ID))
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during orders iteration: %v", err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.loadItems(ctx, orderIDs, vendorID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	r.log.Debugf("Retrieved %d orders", len(orders))
	return orders, nil
}

func (r *postgresOrderRepository) loadItems(ctx context.Context, orderIDs []int64, vendorID int) (map[int][]domain.OrderItem, error) {
	query := `
        SELECT id, order_id, product_id, vendor_id, quantity, unit_price
        FROM order_items
        WHERE order_id = ANY($1::int[]) AND ($2 = 0 OR vendor_id = $2)
        ORDER BY order_id, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(orderIDs), vendorID)
	if err != nil {
		r.log.Errorf("Failed to query items for orders %v: %v", orderIDs, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	itemsMap := make(map[int][]domain.OrderItem)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VendorID, &item.Quantity, &item.UnitPrice); err != nil {
			r.log.Errorf("Failed to scan order item row: %v", err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		itemsMap[item.OrderID] = append(itemsMap[item.OrderID], item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during order items iteration: %v", err)
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return itemsMap, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.TotalAmount,
		&order.Shipping.Address,
		&order.Shipping.City,
		&order.Shipping.Zip,
		&order.Shipping.Country,
		&order.PaymentMethod,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func translatePqError(msg string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return domain.NewOrderError("persist order", domain.ErrConflict, fmt.Sprintf("%s: %s", msg, pqErr.Message))
		case "23514", "23503":
			return domain.NewOrderError("persist order", domain.ErrInvalid, fmt.Sprintf("%s: %s", msg, pqErr.Message))
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
