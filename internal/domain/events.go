package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	Type        string          `json:"type"`
	OrderID     int             `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	CustomerID  int             `json:"customerId"`
	VendorIDs   []int           `json:"vendorIds"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ActorID     int             `json:"actorId"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// OrderEventPublisher announces committed order changes. Delivery is best effort.
type OrderEventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

func NewOrderEvent(eventType string, order *Order, actorID int) OrderEvent {
	seen := make(map[int]bool)
	vendors := []int{}
	for _, item := range order.Items {
		if !seen[item.VendorID] {
			seen[item.VendorID] = true
			vendors = append(vendors, item.VendorID)
		}
	}
	return OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		VendorIDs:   vendors,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}
}
