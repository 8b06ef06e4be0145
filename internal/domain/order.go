package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

type ShippingInfo struct {
	Address string `json:"shippingAddress"`
	City    string `json:"shippingCity"`
	Zip     string `json:"shippingZip"`
	Country string `json:"shippingCountry"`
}

type Order struct {
	ID            int             `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerID    int             `json:"customerId"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Shipping      ShippingInfo    `json:"shipping"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        OrderStatus     `json:"status"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OrderItem captures price and fulfilling vendor at order time; neither follows later catalog changes.
type OrderItem struct {
	ID        int             `json:"id"`
	OrderID   int             `json:"orderId"`
	ProductID int             `json:"productId"`
	VendorID  int             `json:"vendorId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasVendor reports whether at least one line is fulfilled by vendorID.
func (o *Order) HasVendor(vendorID int) bool {
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

// ItemsTotal sums the line totals of the order's items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

type OrderLine struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
	// VendorID is a client hint only; attribution always comes from the product record.
	VendorID int `json:"vendorId"`
}

type CreateOrderRequest struct {
	Items         []OrderLine `json:"items"`
	Address       string      `json:"shippingAddress"`
	City          string      `json:"shippingCity"`
	Zip           string      `json:"shippingZip"`
	Country       string      `json:"shippingCountry"`
	PaymentMethod string      `json:"paymentMethod"`
}

func (r CreateOrderRequest) Shipping() ShippingInfo {
	return ShippingInfo{Address: r.Address, City: r.City, Zip: r.Zip, Country: r.Country}
}

type OrderRepository interface {
	// Create writes the order header and all of its items as one unit.
	Create(ctx context.Context, order *Order) (*Order, error)
	FindByID(ctx context.Context, id int) (*Order, error)
	FindByCustomer(ctx context.Context, customerID int) ([]Order, error)
	// FindByVendor returns orders with at least one line of vendorID, items restricted to that vendor.
	FindByVendor(ctx context.Context, vendorID int) ([]Order, error)
	// FindAll returns one page of every order, newest first.
	FindAll(ctx context.Context, limit, offset int) ([]Order, error)
	// UpdateStatus sets status to next only while it still equals from; otherwise ErrConflict.
	UpdateStatus(ctx context.Context, id int, from, next OrderStatus) (*Order, error)
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// NormalizePage clamps a requested page to [1, MaxPageSize] items and a non-negative offset.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further status change is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusDelivered
}
