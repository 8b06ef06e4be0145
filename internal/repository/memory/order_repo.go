package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace/internal/domain"
)

type OrderRepository struct {
	mu         sync.RWMutex
	nextID     int
	nextItemID int
	orders     map[int]*domain.Order
	now        func() time.Time
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[int]*domain.Order),
		now:    time.Now,
	}
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return nil, domain.NewOrderError("persist order", domain.ErrConflict,
				fmt.Sprintf("order number %s already exists", order.OrderNumber))
		}
	}

	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = r.now().UTC()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		r.nextItemID++
		order.Items[i].ID = r.nextItemID
		order.Items[i].OrderID = order.ID
	}
	r.orders[order.ID] = cloneOrder(order, 0)
	return cloneOrder(order, 0), nil
}

func (r *OrderRepository) FindByID(_ context.Context, id int) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.NewOrderError("find order", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
	}
	return cloneOrder(order, 0), nil
}

func (r *OrderRepository) FindByCustomer(_ context.Context, customerID int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []domain.Order{}
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			orders = append(orders, *cloneOrder(order, 0))
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (r *OrderRepository) FindByVendor(_ context.Context, vendorID int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []domain.Order{}
	for _, order := range r.orders {
		if order.HasVendor(vendorID) {
			orders = append(orders, *cloneOrder(order, vendorID))
		}
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (r *OrderRepository) FindAll(_ context.Context, limit, offset int) ([]domain.Order, error) {
	limit, offset = domain.NormalizePage(limit, offset)

	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orders = append(orders, *cloneOrder(order, 0))
	}
	sortNewestFirst(orders)
	if offset >= len(orders) {
		return []domain.Order{}, nil
	}
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end], nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id int, from, next domain.OrderStatus) (*domain.Order, error) {
	if !domain.IsValidStatus(next) {
		return nil, domain.Invalidf("update status", "invalid order status provided: %s", next)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.NewOrderError("update status", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
	}
	if order.Status != from {
		return nil, domain.NewOrderError("update status", domain.ErrConflict,
			fmt.Sprintf("order %d is now '%s', expected '%s'", id, order.Status, from))
	}
	order.Status = next
	order.UpdatedAt = r.now().UTC()
	return cloneOrder(order, 0), nil
}

// cloneOrder deep-copies an order; vendorID > 0 keeps only that vendor's items.
func cloneOrder(order *domain.Order, vendorID int) *domain.Order {
	c := *order
	c.Items = make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if vendorID > 0 && item.VendorID != vendorID {
			continue
		}
		c.Items = append(c.Items, item)
	}
	return &c
}

func sortNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}
