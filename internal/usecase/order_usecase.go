package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"marketplace/internal/domain"
	"marketplace/internal/policy"
)

const maxOrderNumberAttempts = 3

var tracer = otel.Tracer("marketplace/usecase")

type OrderUseCase interface {
	CreateOrder(ctx context.Context, caller domain.Caller, req domain.CreateOrderRequest, idempotencyKey string) (*domain.Order, error)
	GetOrder(ctx context.Context, caller domain.Caller, id int) (*domain.Order, error)
	ListCustomerOrders(ctx context.Context, caller domain.Caller) ([]domain.Order, error)
	ListVendorOrders(ctx context.Context, caller domain.Caller) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, caller domain.Caller, id int, status domain.OrderStatus) (*domain.Order, error)
}

var _ OrderUseCase = (*orderUseCase)(nil)

type orderUseCase struct {
	orderRepo domain.OrderRepository
	ledger    domain.InventoryLedger
	status    *statusChanger
	opts      options
	log       *logrus.Logger
}

func NewOrderUseCase(repo domain.OrderRepository, ledger domain.InventoryLedger, logger *logrus.Logger, opts ...Option) OrderUseCase {
	o := buildOptions(opts)
	return &orderUseCase{
		orderRepo: repo,
		ledger:    ledger,
		status:    newStatusChanger(repo, ledger, o, logger),
		opts:      o,
		log:       logger,
	}
}

// CreateOrder reserves every line in request order and persists the order with its items.
// Lines are reserved one at a time, each in its own atomic step; if any line or the final write
// fails, the reservations already taken by this call are released before returning. Between the
// decrement and the release another order may observe the lower stock.
func (uc *orderUseCase) CreateOrder(ctx context.Context, caller domain.Caller, req domain.CreateOrderRequest, idempotencyKey string) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderUseCase.CreateOrder")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			uc.opts.orderFailed(failureReason(err))
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("customer.id", caller.ID), attribute.Int("order.lines", len(req.Items)))

	if caller.Role != domain.RoleCustomer || caller.ID <= 0 {
		uc.log.Warnf("Use Case: Caller %d with role %s attempted to create an order", caller.ID, caller.Role)
		return nil, domain.NewOrderError("create order", domain.ErrForbidden, "only customers can create orders")
	}
	if err := validateCreateRequest(req); err != nil {
		uc.log.Warnf("Use Case: Rejected order request from customer %d: %v", caller.ID, err)
		return nil, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" && uc.opts.idempotency != nil {
		existingID, claimed, claimErr := uc.opts.idempotency.Claim(ctx, caller.ID, idempotencyKey)
		if claimErr != nil {
			return nil, claimErr
		}
		if !claimed {
			uc.log.Infof("Use Case: Replaying order %d for customer %d (idempotency key reused)", existingID, caller.ID)
			return uc.orderRepo.FindByID(ctx, existingID)
		}
		defer func() {
			store := uc.opts.idempotency
			if err != nil {
				if fErr := store.Forget(context.WithoutCancel(ctx), caller.ID, idempotencyKey); fErr != nil {
					uc.log.Errorf("Use Case: Failed to release idempotency key for customer %d: %v", caller.ID, fErr)
				}
				return
			}
			if cErr := store.Complete(context.WithoutCancel(ctx), caller.ID, idempotencyKey, order.ID); cErr != nil {
				uc.log.Errorf("Use Case: Failed to store idempotency result for order %d: %v", order.ID, cErr)
			}
		}()
	}

	uc.log.Infof("Use Case: Reserving inventory for %d lines (customer %d)", len(req.Items), caller.ID)
	reservations, err := uc.reserveLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order = &domain.Order{
		CustomerID:    caller.ID,
		Shipping:      req.Shipping(),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Status:        domain.StatusPending,
		Items:         make([]domain.OrderItem, 0, len(reservations)),
	}
	total := decimal.Zero
	for _, res := range reservations {
		item := domain.OrderItem{
			ProductID: res.ProductID,
			VendorID:  res.VendorID,
			Quantity:  res.Quantity,
			UnitPrice: res.UnitPrice,
		}
		total = total.Add(item.LineTotal())
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = total

	created, err := uc.persist(ctx, order)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to save order for customer %d after reserving stock: %v. Rolling back reservations...", caller.ID, err)
		uc.compensate(ctx, reservations)
		return nil, fmt.Errorf("failed to save order after reserving stock: %w", err)
	}

	uc.opts.orderCreated()
	uc.status.publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, created, caller.ID))
	span.SetAttributes(attribute.Int("order.id", created.ID), attribute.String("order.number", created.OrderNumber))
	uc.log.Infof("Use Case: Order %d (%s) created for customer %d, total %s", created.ID, created.OrderNumber, caller.ID, created.TotalAmount.StringFixed(2))
	return created, nil
}

// reserveLines takes one reservation per line. On failure it releases what it took and returns the line error.
func (uc *orderUseCase) reserveLines(ctx context.Context, lines []domain.OrderLine) ([]domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "OrderUseCase.reserveLines")
	defer span.End()

	reservations := make([]domain.Reservation, 0, len(lines))
	for i, line := range lines {
		res, err := uc.ledger.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			uc.log.Warnf("Use Case: Reservation failed for line %d (product %d, quantity %d): %v", i+1, line.ProductID, line.Quantity, err)
			uc.compensate(ctx, reservations)
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if line.VendorID != 0 && line.VendorID != res.VendorID {
			uc.log.Warnf("Use Case: Line %d claims vendor %d but product %d belongs to vendor %d; using the product's vendor",
				i+1, line.VendorID, line.ProductID, res.VendorID)
		}
		reservations = append(reservations, *res)
	}
	return reservations, nil
}

// compensate releases reservations in reverse order. It runs even if ctx was cancelled.
func (uc *orderUseCase) compensate(ctx context.Context, reservations []domain.Reservation) {
	if len(reservations) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	released := 0
	for i := len(reservations) - 1; i >= 0; i-- {
		res := reservations[i]
		if err := uc.ledger.Release(ctx, res.ProductID, res.Quantity); err != nil {
			uc.log.Errorf("Use Case: CRITICAL! Failed to release %d of product %d: %v. Manual stock adjustment required!", res.Quantity, res.ProductID, err)
			continue
		}
		released++
	}
	uc.opts.compensated(released)
	uc.log.Warnf("Use Case: Released %d of %d reservations", released, len(reservations))
}

// persist writes the order, drawing a fresh order number when the previous one collided.
func (uc *orderUseCase) persist(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = uc.opts.orderNumbers()
		var created *domain.Order
		created, err = uc.orderRepo.Create(ctx, order)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		uc.log.Warnf("Use Case: Order number %s collided (attempt %d)", order.OrderNumber, attempt)
	}
	return nil, err
}

func (uc *orderUseCase) GetOrder(ctx context.Context, caller domain.Caller, id int) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.NewOrderError("get order", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
	}
	order, err := uc.orderRepo.FindByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Could not load order %d for caller %d: %v", id, caller.ID, err)
		return nil, err
	}
	if !policy.CanView(order, caller) {
		uc.log.Warnf("Use Case: Caller %d (%s) denied access to order %d", caller.ID, caller.Role, id)
		return nil, domain.NewOrderError("get order", domain.ErrForbidden, "you do not have access to this order")
	}
	return order, nil
}

func (uc *orderUseCase) ListCustomerOrders(ctx context.Context, caller domain.Caller) ([]domain.Order, error) {
	if caller.Role != domain.RoleCustomer {
		return nil, domain.NewOrderError("list orders", domain.ErrForbidden, "only customers can view their orders")
	}
	orders, err := uc.orderRepo.FindByCustomer(ctx, caller.ID)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for customer %d: %v", caller.ID, err)
		return nil, fmt.Errorf("could not retrieve orders for customer %d: %w", caller.ID, err)
	}
	uc.log.Infof("Use Case: Retrieved %d orders for customer %d", len(orders), caller.ID)
	return orders, nil
}

func (uc *orderUseCase) ListVendorOrders(ctx context.Context, caller domain.Caller) ([]domain.Order, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewOrderError("list orders", domain.ErrForbidden, "only vendors can view their orders")
	}
	orders, err := uc.orderRepo.FindByVendor(ctx, caller.ID)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for vendor %d: %v", caller.ID, err)
		return nil, fmt.Errorf("could not retrieve orders for vendor %d: %w", caller.ID, err)
	}
	uc.log.Infof("Use Case: Retrieved %d orders for vendor %d", len(orders), caller.ID)
	return orders, nil
}

func (uc *orderUseCase) UpdateOrderStatus(ctx context.Context, caller domain.Caller, id int, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderUseCase.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.Int("order.id", id), attribute.String("order.status", string(status)))

	if id <= 0 {
		return nil, domain.NewOrderError("update status", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
	}
	if !domain.IsValidStatus(status) {
		return nil, domain.Invalidf("update status", "invalid status value '%s'", status)
	}
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewOrderError("update status", domain.ErrForbidden, "only vendors can update order status")
	}

	current, err := uc.orderRepo.FindByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Could not get current order %d for status update: %v", id, err)
		return nil, err
	}
	if !policy.CanMutateStatus(current, caller) {
		uc.log.Warnf("Use Case: Vendor %d has no lines in order %d", caller.ID, id)
		return nil, domain.NewOrderError("update status", domain.ErrForbidden, "you do not have access to this order")
	}
	return uc.status.change(ctx, caller.ID, current, status)
}

func validateCreateRequest(req domain.CreateOrderRequest) error {
	const op = "create order"
	if len(req.Items) == 0 {
		return domain.Invalidf(op, "order must contain at least one item")
	}
	for i, line := range req.Items {
		if line.ProductID <= 0 {
			return domain.Invalidf(op, "item %d: invalid product ID", i+1)
		}
		if line.Quantity <= 0 {
			return domain.Invalidf(op, "item %d (product %d): quantity must be positive", i+1, line.ProductID)
		}
	}
	required := []struct {
		field, value string
	}{
		{"shippingAddress", req.Address},
		{"shippingCity", req.City},
		{"shippingZip", req.Zip},
		{"shippingCountry", req.Country},
		{"paymentMethod", req.PaymentMethod},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.Invalidf(op, "%s cannot be empty", r.field)
		}
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalid):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
