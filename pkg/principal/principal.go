// Package principal carries the caller identity established by the auth
// middleware. The shop core never authenticates anyone itself.
package principal

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

type Principal struct {
	UserID      uuid.UUID
	Role        string
	Permissions []string
	Email       string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsSeller covers both merchant roles.
func (p Principal) IsSeller() bool { return p.Role == RoleSeller || p.Role == RoleVendor }

func (p Principal) Can(permission string) bool {
	return p.IsAdmin() || slices.Contains(p.Permissions, permission)
}

func (p Principal) Anonymous() bool { return p.UserID == uuid.Nil }

type ctxKey struct{}

func IntoContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
