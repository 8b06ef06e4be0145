package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/domain"
)

// statusChanger applies a status transition shared by the vendor and admin paths.
type statusChanger struct {
	orderRepo domain.OrderRepository
	ledger    domain.InventoryLedger
	opts      options
	log       *logrus.Logger
}

func newStatusChanger(repo domain.OrderRepository, ledger domain.InventoryLedger, opts options, logger *logrus.Logger) *statusChanger {
	return &statusChanger{
		orderRepo: repo,
		ledger:    ledger,
		opts:      opts,
		log:       logger,
	}
}

// change moves current to next. CANCELLED and DELIVERED are final. Entering CANCELLED returns every
// item's quantity to stock; the compare-and-set update guarantees that happens at most once.
func (s *statusChanger) change(ctx context.Context, actorID int, current *domain.Order, next domain.OrderStatus) (*domain.Order, error) {
	if current.Status == next {
		s.log.Infof("Use Case: Order %d already has status '%s'", current.ID, next)
		return current, nil
	}
	if current.Status.IsTerminal() {
		s.log.Warnf("Use Case: Attempt to change status of order %d from final status '%s'", current.ID, current.Status)
		return nil, domain.Invalidf("update status", "cannot change status of a %s order", current.Status)
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, current.ID, current.Status, next)
	if err != nil {
		s.log.Errorf("Use Case: Repository failed to update status for order %d: %v", current.ID, err)
		return nil, err
	}
	if updated.Items == nil {
		updated.Items = current.Items
	}

	trace.SpanFromContext(ctx).AddEvent("order.status_changed", trace.WithAttributes(
		attribute.Int("order.id", updated.ID),
		attribute.String("order.status.from", string(current.Status)),
		attribute.String("order.status.to", string(next)),
	))

	if next == domain.StatusCancelled {
		s.restock(ctx, current)
	}

	s.opts.statusChanged(next)
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderStatusChanged, updated, actorID))
	s.log.Infof("Use Case: Order %d status changed from '%s' to '%s' by user %d", updated.ID, current.Status, updated.Status, actorID)
	return updated, nil
}

func (s *statusChanger) restock(ctx context.Context, order *domain.Order) {
	ctx = context.WithoutCancel(ctx)
	s.log.Infof("Use Case: Order %d cancelled. Returning %d items to inventory.", order.ID, len(order.Items))
	for _, item := range order.Items {
		if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Errorf("Use Case: CRITICAL! Failed to return %d of product %d for cancelled order %d: %v. Manual stock adjustment needed!",
				item.Quantity, item.ProductID, order.ID, err)
		}
	}
}

func (s *statusChanger) publish(ctx context.Context, event domain.OrderEvent) {
	if s.opts.publisher == nil {
		return
	}
	if err := s.opts.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warnf("Use Case: Order %d committed but %s event was not published: %v", event.OrderID, event.Type, err)
	}
}

func describeStatusChange(from, to domain.OrderStatus) string {
	return fmt.Sprintf("Updated order status from %s to %s", from, to)
}
