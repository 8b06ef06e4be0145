// Package policy decides who may see or change an order.
package policy

import "marketplace/internal/domain"

// CanView allows the customer who placed the order and any vendor fulfilling at least one line.
// The placing customer keeps access whatever role the account holds now.
func CanView(order *domain.Order, caller domain.Caller) bool {
	if order == nil || caller.ID <= 0 {
		return false
	}
	if order.CustomerID == caller.ID {
		return true
	}
	return isLineVendor(order, caller)
}

// CanMutateStatus allows any vendor with at least one line. Status is per order, not per line,
// so a vendor owning one line changes the whole order.
func CanMutateStatus(order *domain.Order, caller domain.Caller) bool {
	if order == nil || caller.ID <= 0 {
		return false
	}
	return isLineVendor(order, caller)
}

func isLineVendor(order *domain.Order, caller domain.Caller) bool {
	return caller.Role == domain.RoleVendor && order.HasVendor(caller.ID)
}
