package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

func TestLedgerReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(domain.Product{ID: 1, Name: "Mug", Price: decimal.RequireFromString("10.00"), Stock: 5, VendorID: 9})

	res, err := ledger.Reserve(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, res.VendorID)
	assert.True(t, res.UnitPrice.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 3, ledger.Stock(1))

	_, err = ledger.Reserve(ctx, 1, 4)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, 3, ledger.Stock(1))

	_, err = ledger.Reserve(ctx, 2, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ledger.Reserve(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalid)

	require.NoError(t, ledger.Release(ctx, 1, 2))
	assert.Equal(t, 5, ledger.Stock(1))
	assert.ErrorIs(t, ledger.Release(ctx, 2, 1), domain.ErrNotFound)
}

func TestLedgerNeverOversells(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(domain.Product{ID: 1, Price: decimal.NewFromInt(1), Stock: 50, VendorID: 9})

	var wg sync.WaitGroup
	var succeeded, outOfStock int64
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(ctx, 1, 1)
			switch {
			case err == nil:
				atomic.AddInt64(&succeeded, 1)
			case errors.Is(err, domain.ErrOutOfStock):
				atomic.AddInt64(&outOfStock, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), succeeded)
	assert.Equal(t, int64(150), outOfStock)
	assert.Equal(t, 0, ledger.Stock(1))
}

func TestOrderRepositoryVendorView(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Create(ctx, &domain.Order{
		OrderNumber: "ORD-1",
		CustomerID:  10,
		Status:      domain.StatusPending,
		Items: []domain.OrderItem{
			{ProductID: 1, VendorID: 20, Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
			{ProductID: 2, VendorID: 30, Quantity: 1, UnitPrice: decimal.NewFromInt(7)},
		},
	})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &domain.Order{
		OrderNumber: "ORD-2",
		CustomerID:  10,
		Status:      domain.StatusPending,
		Items:       []domain.OrderItem{{ProductID: 1, VendorID: 20, Quantity: 3, UnitPrice: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)

	vendorOrders, err := repo.FindByVendor(ctx, 30)
	require.NoError(t, err)
	require.Len(t, vendorOrders, 1)
	assert.Equal(t, first.ID, vendorOrders[0].ID)
	require.Len(t, vendorOrders[0].Items, 1)
	assert.Equal(t, 30, vendorOrders[0].Items[0].VendorID)

	customerOrders, err := repo.FindByCustomer(ctx, 10)
	require.NoError(t, err)
	require.Len(t, customerOrders, 2)
	assert.Equal(t, second.ID, customerOrders[0].ID, "newest first")
	assert.Len(t, customerOrders[1].Items, 2)

	_, err = repo.Create(ctx, &domain.Order{OrderNumber: "ORD-1", CustomerID: 11})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOrderRepositoryFindAllPages(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var ids []int
	for i := 1; i <= 5; i++ {
		order, err := repo.Create(ctx, &domain.Order{
			OrderNumber: fmt.Sprintf("ORD-%d", i),
			CustomerID:  10 + i,
			Status:      domain.StatusPending,
			Items:       []domain.OrderItem{{ProductID: 1, VendorID: 20 + i, Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}

	all, err := repo.FindAll(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[4].ID)

	page, err := repo.FindAll(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	tail, err := repo.FindAll(ctx, 10, 4)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, ids[0], tail[0].ID)

	past, err := repo.FindAll(ctx, 10, 9)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestOrderRepositoryUpdateStatusIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	order, err := repo.Create(ctx, &domain.Order{OrderNumber: "ORD-1", CustomerID: 10, Status: domain.StatusPending})
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.StatusPending, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, updated.Status)

	_, err = repo.UpdateStatus(ctx, order.ID, domain.StatusPending, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.UpdateStatus(ctx, 999, domain.StatusPending, domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseCatalog(t *testing.T) {
	products, err := ParseCatalog([]byte(`
products:
  - id: 1
    name: Mug
    price: "10.00"
    stock: 5
    vendorId: 9
  - id: 2
    name: Plate
    price: 4.5
    stock: 0
    vendorId: 8
`))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("10")))
	assert.True(t, products[1].Price.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 8, products[1].VendorID)

	_, err = ParseCatalog([]byte("products:\n  - id: 1\n    price: \"-1\"\n    vendorId: 2\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("products:\n  - id: 1\n    price: \"1\"\n    vendorId: 2\n  - id: 1\n    price: \"1\"\n    vendorId: 2\n"))
	assert.Error(t, err)
}
