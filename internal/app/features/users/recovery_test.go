package users_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/dalemusser/classhub/internal/testutil"
)

func TestVerifyEmailRoutes(t *testing.T) {
	e := newEnv(t, 20)
	rec := e.do(t, nil, "POST", "/register", map[string]any{"name": "Ada Lovelace", "email": "ada@example.com", "password": "correct horse"})
	rec.AssertStatus(t, http.StatusCreated)
	var u models.User
	rec.DecodeJSON(t, &u)
	p := testutil.PrincipalOf(u)

	e.do(t, nil, "POST", "/me/verify", map[string]any{"code": "123456"}).AssertStatus(t, http.StatusUnauthorized)
	e.do(t, &p, "POST", "/me/verify", map[string]any{}).AssertStatus(t, http.StatusBadRequest)

	e.do(t, &p, "POST", "/me/verify/resend", nil).AssertStatus(t, http.StatusOK)
	code := e.mail.code(t, events.EmailVerification, "ada@example.com")

	rec = e.do(t, &p, "POST", "/me/verify", map[string]any{"code": code})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"email_verified":true`)

	e.do(t, &p, "POST", "/me/verify", map[string]any{"code": code}).AssertStatus(t, http.StatusConflict)
}

func TestPasswordResetRoutes(t *testing.T) {
	e := newEnv(t, 20)
	e.do(t, nil, "POST", "/register", map[string]any{"name": "Ada Lovelace", "email": "ada@example.com", "password": "correct horse"}).
		AssertStatus(t, http.StatusCreated)

	// same reply whether or not the account exists
	known := e.do(t, nil, "POST", "/password/forgot", map[string]any{"email": "ada@example.com"})
	known.AssertStatus(t, http.StatusOK)
	unknown := e.do(t, nil, "POST", "/password/forgot", map[string]any{"email": "nobody@example.com"})
	unknown.AssertStatus(t, http.StatusOK)
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("forgot replies differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}

	code := e.mail.code(t, events.PasswordReset, "ada@example.com")
	e.do(t, nil, "POST", "/password/reset", map[string]any{"email": "ada@example.com", "code": code, "password": "short"}).
		AssertStatus(t, http.StatusBadRequest)
	e.do(t, nil, "POST", "/password/reset", map[string]any{"email": "ada@example.com", "code": code, "password": "brand new secret"}).
		AssertStatus(t, http.StatusOK)

	e.do(t, nil, "POST", "/login", map[string]any{"email": "ada@example.com", "password": "brand new secret"}).
		AssertStatus(t, http.StatusOK)
}

func TestPasswordRecovery_Throttled(t *testing.T) {
	e := newEnv(t, 1)
	body := map[string]any{"email": "nobody@example.com"}

	e.do(t, nil, "POST", "/password/forgot", body).AssertStatus(t, http.StatusOK)
	rec := e.do(t, nil, "POST", "/password/reset", map[string]any{"email": "nobody@example.com", "code": "123456", "password": "brand new secret"})
	rec.AssertStatus(t, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestCreateUserRoute(t *testing.T) {
	e := newEnv(t, 20)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := testutil.PrincipalOf(e.fx.CreateAdmin(ctx, "Root", "admin@example.com"))
	member := testutil.PrincipalOf(e.fx.CreateMember(ctx, "Karim", "karim@example.com"))
	g := e.fx.CreateGroup(ctx, "Compilers")
	e.fx.CreateLecture(ctx, g.ID, "Parsing")

	body := map[string]any{
		"name":     "Grace Hopper",
		"email":    "grace@example.com",
		"password": "0123456789",
		"group_id": g.ID.Hex(),
	}
	e.do(t, &member, "POST", "/", body).AssertStatus(t, http.StatusForbidden)

	bad := map[string]any{"name": "Grace Hopper", "email": "x@example.com", "password": "0123456789", "group_id": "nope"}
	e.do(t, &admin, "POST", "/", bad).AssertStatus(t, http.StatusBadRequest)

	rec := e.do(t, &admin, "POST", "/", body)
	rec.AssertStatus(t, http.StatusCreated)
	var u models.User
	rec.DecodeJSON(t, &u)
	if !u.EmailVerified || len(u.Memberships) != 1 || u.Memberships[0].Status != models.StatusApproved {
		t.Fatalf("created: %+v", u)
	}
	if got := e.fx.Group(ctx, g.ID); !got.HasMember(u.ID) {
		t.Error("created user should be on the roster")
	}

	e.do(t, &admin, "POST", "/", body).AssertStatus(t, http.StatusConflict)
}
