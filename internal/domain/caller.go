package domain

import "strings"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleVendor   Role = "VENDOR"
	RoleAdmin    Role = "ADMIN"
)

// Caller is the identity supplied by the authorization boundary. The core trusts it as given.
type Caller struct {
	ID   int
	Role Role
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}
