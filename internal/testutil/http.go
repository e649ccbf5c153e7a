package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminPrincipal returns a principal with the admin role.
func AdminPrincipal() authz.Principal {
	return authz.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
}

// UserPrincipal returns a principal with the user role.
func UserPrincipal() authz.Principal {
	return authz.Principal{ID: primitive.NewObjectID(), Role: models.RoleUser}
}

// PrincipalOf returns the principal of a fixture user.
func PrincipalOf(u models.User) authz.Principal {
	return authz.Principal{ID: u.ID, Role: u.Role}
}

// WithPrincipal adds p to the request context, bypassing token middleware.
func WithPrincipal(r *http.Request, p authz.Principal) *http.Request {
	return r.WithContext(authz.WithPrincipal(r.Context(), p))
}

// NewJSONRequest creates a request whose body is body encoded as JSON.
// A nil body sends no body.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encode request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into dst.
func (r *ResponseRecorder) DecodeJSON(t *testing.T, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response body %q: %v", r.Body.String(), err)
	}
}
