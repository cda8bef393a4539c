package enums

import "fmt"

// UserRole distinguishes customer accounts from vendor accounts.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleVendor   UserRole = "vendor"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleVendor:
		return true
	}
	return false
}

// ParseUserRole validates a raw role string from a request body.
func ParseUserRole(raw string) (UserRole, error) {
	role := UserRole(raw)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role: %q", raw)
	}
	return role, nil
}
