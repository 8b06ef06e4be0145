package repository

import (
	"context"
	"database/sql"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
	"marketplace/pkg/db"
)

// These tests need a disposable database: TEST_DATABASE_URL=postgres://... go test ./internal/repository/
func setupDatabase(t *testing.T) (*sql.DB, *logrus.Logger) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(ctx, database))
	_, err = database.ExecContext(ctx, `TRUNCATE order_items, orders, products, admin_logs RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return database, logger
}

func insertProduct(t *testing.T, database *sql.DB, name, price string, stock, vendorID int) int {
	t.Helper()
	var id int
	err := database.QueryRow(`INSERT INTO products (name, price, stock, vendor_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, price, stock, vendorID).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestPostgresLedgerReserveRelease(t *testing.T) {
	database, logger := setupDatabase(t)
	ledger := NewPostgresLedger(database, logger)
	ctx := context.Background()

	mug := insertProduct(t, database, "Mug", "10.00", 5, 9)

	res, err := ledger.Reserve(ctx, mug, 2)
	require.NoError(t, err)
	assert.Equal(t, "Mug", res.ProductName)
	assert.Equal(t, 9, res.VendorID)
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(10)))

	_, err = ledger.Reserve(ctx, mug, 4)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	_, err = ledger.Reserve(ctx, 9999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, ledger.Release(ctx, mug, 2))
	assert.ErrorIs(t, ledger.Release(ctx, 9999, 1), domain.ErrNotFound)

	var stock int
	require.NoError(t, database.QueryRow(`SELECT stock FROM products WHERE id = $1`, mug).Scan(&stock))
	assert.Equal(t, 5, stock)
}

func TestPostgresLedgerConcurrentReserve(t *testing.T) {
	database, logger := setupDatabase(t)
	ledger := NewPostgresLedger(database, logger)
	mug := insertProduct(t, database, "Mug", "10.00", 10, 9)

	var wg sync.WaitGroup
	var granted atomic.Int32
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(context.Background(), mug, 1); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, granted.Load())
	var stock int
	require.NoError(t, database.QueryRow(`SELECT stock FROM products WHERE id = $1`, mug).Scan(&stock))
	assert.Zero(t, stock)
}

func TestPostgresOrderRepository(t *testing.T) {
	database, logger := setupDatabase(t)
	repo := NewPostgresOrderRepository(database, logger)
	ctx := context.Background()

	order := &domain.Order{
		OrderNumber:   "ORD-1-AAAAAAAA",
		CustomerID:    100,
		TotalAmount:   decimal.RequireFromString("26.00"),
		Shipping:      domain.ShippingInfo{Address: "1 Main St", City: "Springfield", Zip: "12345", Country: "US"},
		PaymentMethod: "CARD",
		Status:        domain.StatusPending,
		Items: []domain.OrderItem{
			{ProductID: 1, VendorID: 9, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: 2, VendorID: 8, Quantity: 2, UnitPrice: decimal.RequireFromString("3.00")},
		},
	}
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	dup := *order
	dup.ID = 0
	dup.Items = []domain.OrderItem{{ProductID: 1, VendorID: 9, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}}
	_, err = repo.Create(ctx, &dup)
	assert.ErrorIs(t, err, domain.ErrConflict)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("26.00")))

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byCustomer, err := repo.FindByCustomer(ctx, 100)
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Len(t, byCustomer[0].Items, 2)

	byVendor, err := repo.FindByVendor(ctx, 8)
	require.NoError(t, err)
	require.Len(t, byVendor, 1)
	require.Len(t, byVendor[0].Items, 1)
	assert.Equal(t, 8, byVendor[0].Items[0].VendorID)

	second := &domain.Order{
		OrderNumber:   "ORD-2-BBBBBBBB",
		CustomerID:    101,
		TotalAmount:   decimal.RequireFromString("3.00"),
		Shipping:      order.Shipping,
		PaymentMethod: "CARD",
		Status:        domain.StatusPending,
		Items:         []domain.OrderItem{{ProductID: 2, VendorID: 8, Quantity: 1, UnitPrice: decimal.RequireFromString("3.00")}},
	}
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	all, err := repo.FindAll(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Len(t, all[1].Items, 2)

	page, err := repo.FindAll(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, created.ID, page[0].ID)

	updated, err := repo.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, updated.Status)

	_, err = repo.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = repo.UpdateStatus(ctx, 9999, domain.StatusPending, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresAdminLogRepository(t *testing.T) {
	database, logger := setupDatabase(t)
	logs := NewPostgresAdminLogRepository(database, logger)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, logs.Record(ctx, &domain.AdminLog{
			AdminID:    1,
			Action:     domain.ActionOrderStatusUpdated,
			EntityType: domain.EntityOrder,
			EntityID:   i,
			Details:    "Updated order status from PENDING to CANCELLED",
		}))
	}

	entries, err := logs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].EntityID)
}
