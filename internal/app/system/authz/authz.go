// internal/app/system/authz/authz.go

// Package authz carries the authenticated principal into service calls.
//
// Handlers pull the principal from the request context once and pass it
// explicitly to every service operation; services never look at the request.
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   primitive.ObjectID
	Role string
}

// IsAdmin reports whether p holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// IsZero reports whether p is the anonymous principal.
func (p Principal) IsZero() bool { return p.ID.IsZero() }

// RequireAdmin returns a Forbidden failure unless p is an admin.
func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return apperr.Forbiddenf("admin access required")
	}
	return nil
}

// RequireSelfOrAdmin returns a Forbidden failure unless p is userID or an admin.
func RequireSelfOrAdmin(p Principal, userID primitive.ObjectID) error {
	if p.ID == userID || p.IsAdmin() {
		return nil
	}
	return apperr.Forbiddenf("not allowed to act on another user")
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal carried by ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && !p.IsZero()
}

// FromRequest returns the principal of r, if any.
func FromRequest(r *http.Request) (Principal, bool) {
	return FromContext(r.Context())
}
