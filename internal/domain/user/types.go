package user

import "errors"

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleOperator, RoleAdmin:
		return true
	default:
		return false
	}
}

func NewRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// CanOperate reports whether the role may act on other buyers' payments and orders.
func (r Role) CanOperate() bool {
	return r == RoleOperator || r == RoleAdmin
}
