package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/internal/domain"
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:         1,
		CustomerID: 10,
		Items: []domain.OrderItem{
			{ProductID: 1, VendorID: 20, Quantity: 1},
			{ProductID: 2, VendorID: 30, Quantity: 2},
		},
	}
}

func TestCanView(t *testing.T) {
	order := sampleOrder()

	tests := []struct {
		name   string
		caller domain.Caller
		want   bool
	}{
		{"customer who placed it", domain.Caller{ID: 10, Role: domain.RoleCustomer}, true},
		{"vendor of first line", domain.Caller{ID: 20, Role: domain.RoleVendor}, true},
		{"vendor of second line", domain.Caller{ID: 30, Role: domain.RoleVendor}, true},
		{"other customer", domain.Caller{ID: 11, Role: domain.RoleCustomer}, false},
		{"vendor without lines", domain.Caller{ID: 40, Role: domain.RoleVendor}, false},
		{"admin", domain.Caller{ID: 99, Role: domain.RoleAdmin}, false},
		{"placing customer now a vendor", domain.Caller{ID: 10, Role: domain.RoleVendor}, true},
		{"placing customer now an admin", domain.Caller{ID: 10, Role: domain.RoleAdmin}, true},
		{"vendor id used with customer role", domain.Caller{ID: 20, Role: domain.RoleCustomer}, false},
		{"anonymous", domain.Caller{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(order, tt.caller))
		})
	}
}

func TestCanMutateStatus(t *testing.T) {
	order := sampleOrder()

	assert.True(t, CanMutateStatus(order, domain.Caller{ID: 20, Role: domain.RoleVendor}))
	assert.True(t, CanMutateStatus(order, domain.Caller{ID: 30, Role: domain.RoleVendor}))
	assert.False(t, CanMutateStatus(order, domain.Caller{ID: 10, Role: domain.RoleCustomer}))
	assert.False(t, CanMutateStatus(order, domain.Caller{ID: 40, Role: domain.RoleVendor}))
	assert.False(t, CanMutateStatus(order, domain.Caller{ID: 99, Role: domain.RoleAdmin}))
	assert.False(t, CanMutateStatus(nil, domain.Caller{ID: 20, Role: domain.RoleVendor}))
}

func TestStrangerNeverAllowed(t *testing.T) {
	order := sampleOrder()
	for _, role := range []domain.Role{domain.RoleCustomer, domain.RoleVendor, domain.RoleAdmin} {
		stranger := domain.Caller{ID: 77, Role: role}
		assert.False(t, CanView(order, stranger), role)
		assert.False(t, CanMutateStatus(order, stranger), role)
	}
}
