package authz

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRequireAdmin(t *testing.T) {
	admin := Principal{ID: primitive.NewObjectID(), Role: "admin"}
	user := Principal{ID: primitive.NewObjectID(), Role: "user"}

	if err := RequireAdmin(admin); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
	if err := RequireAdmin(user); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("user: got %v, want forbidden", err)
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	admin := Principal{ID: primitive.NewObjectID(), Role: "admin"}
	user := Principal{ID: primitive.NewObjectID(), Role: "user"}
	other := primitive.NewObjectID()

	tests := []struct {
		name string
		p    Principal
		id   primitive.ObjectID
		ok   bool
	}{
		{"self", user, user.ID, true},
		{"admin on other", admin, other, true},
		{"user on other", user, other, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireSelfOrAdmin(tt.p, tt.id)
			if (err == nil) != tt.ok {
				t.Errorf("got %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context returned a principal")
	}
	p := Principal{ID: primitive.NewObjectID(), Role: "user"}
	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithPrincipal(r.Context(), p))
	got, ok := FromRequest(r)
	if !ok || got != p {
		t.Errorf("FromRequest: got %+v, %v", got, ok)
	}
}
