package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
)

type AdminUseCase interface {
	// OverrideOrderStatus changes any order's status regardless of line ownership and records it in the admin log.
	OverrideOrderStatus(ctx context.Context, caller domain.Caller, id int, status domain.OrderStatus) (*domain.Order, error)
	ListAdminLogs(ctx context.Context, caller domain.Caller, limit int) ([]domain.AdminLog, error)
	// ListAllOrders pages through every order, newest first, with all items.
	ListAllOrders(ctx context.Context, caller domain.Caller, limit, offset int) ([]domain.Order, error)
}

type adminUseCase struct {
	orderRepo domain.OrderRepository
	logs      domain.AdminLogRepository
	status    *statusChanger
	log       *logrus.Logger
}

func NewAdminUseCase(repo domain.OrderRepository, ledger domain.InventoryLedger, logs domain.AdminLogRepository, logger *logrus.Logger, opts ...Option) AdminUseCase {
	return &adminUseCase{
		orderRepo: repo,
		logs:      logs,
		status:    newStatusChanger(repo, ledger, buildOptions(opts), logger),
		log:       logger,
	}
}

func (uc *adminUseCase) OverrideOrderStatus(ctx context.Context, caller domain.Caller, id int, status domain.OrderStatus) (*domain.Order, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.NewOrderError("override status", domain.ErrForbidden, "admin access required")
	}
	if id <= 0 {
		return nil, domain.NewOrderError("override status", domain.ErrNotFound, fmt.Sprintf("order with id %d not found", id))
	}
	if !domain.IsValidStatus(status) {
		return nil, domain.Invalidf("override status", "invalid status value '%s'", status)
	}

	current, err := uc.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := current.Status
	if previous.IsTerminal() && previous != status {
		uc.log.Warnf("Use Case: Admin %d attempted to move order %d out of final status '%s'", caller.ID, id, previous)
		return nil, domain.Invalidf("override status", "cannot change status of a %s order: final statuses are locked for admins too", previous)
	}
	updated, err := uc.status.change(ctx, caller.ID, current, status)
	if err != nil {
		return nil, err
	}
	if previous == updated.Status {
		return updated, nil
	}

	entry := &domain.AdminLog{
		AdminID:    caller.ID,
		Action:     domain.ActionOrderStatusUpdated,
		EntityType: domain.EntityOrder,
		EntityID:   id,
		Details:    describeStatusChange(previous, updated.Status),
	}
	if err := uc.logs.Record(context.WithoutCancel(ctx), entry); err != nil {
		uc.log.Errorf("Use Case: Order %d status overridden by admin %d but admin log entry failed: %v", id, caller.ID, err)
	}
	return updated, nil
}

func (uc *adminUseCase) ListAdminLogs(ctx context.Context, caller domain.Caller, limit int) ([]domain.AdminLog, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.NewOrderError("list admin logs", domain.ErrForbidden, "admin access required")
	}
	logs, err := uc.logs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve admin logs: %w", err)
	}
	return logs, nil
}

func (uc *adminUseCase) ListAllOrders(ctx context.Context, caller domain.Caller, limit, offset int) ([]domain.Order, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.NewOrderError("list all orders", domain.ErrForbidden, "admin access required")
	}
	limit, offset = domain.NormalizePage(limit, offset)
	orders, err := uc.orderRepo.FindAll(ctx, limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for admin %d: %v", caller.ID, err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	uc.log.Infof("Use Case: Admin %d retrieved %d orders (limit %d, offset %d)", caller.ID, len(orders), limit, offset)
	return orders, nil
}
