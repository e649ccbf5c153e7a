package users_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/classhub/internal/app/features/users"
	"github.com/dalemusser/classhub/internal/app/services/accounts"
	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/system/auth"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
	"github.com/dalemusser/classhub/internal/app/system/paging"
	"github.com/dalemusser/classhub/internal/app/system/ratelimit"
	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/dalemusser/classhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	router chi.Router
	fx     *testutil.Fixtures
	tokens *auth.Manager
	mail   *mailbox
}

// mailbox keeps published account events so tests can read emailed codes.
type mailbox struct {
	mu  sync.Mutex
	evs []events.Event
}

func (m *mailbox) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evs = append(m.evs, e)
	return nil
}

func (m *mailbox) code(t *testing.T, kind events.Kind, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.evs) - 1; i >= 0; i-- {
		if e := m.evs[i]; e.Kind == kind && e.To == to {
			return e.Data["code"]
		}
	}
	t.Fatalf("no %s mailed to %s", kind, to)
	return ""
}

func newEnv(t *testing.T, loginsPerIP int) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	tokens, err := auth.NewManager("0123456789abcdef0123456789abcdef", time.Hour, logger)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	logins := ratelimit.NewLoginLimiter(loginsPerIP)
	t.Cleanup(logins.Close)

	mail := &mailbox{}
	h := users.NewHandler(
		accounts.New(db, tokens, mail, accounts.Config{AdminEmail: "admin@example.com"}, logger),
		coursework.New(db, events.NewBus(16), logger),
		logins,
		logger,
	)
	return &env{router: users.Routes(h), fx: testutil.NewFixtures(t, db), tokens: tokens, mail: mail}
}

func (e *env) do(t *testing.T, p *authz.Principal, method, target string, body any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, target, body)
	if p != nil {
		req = testutil.WithPrincipal(req, *p)
	}
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t, 20)
	reg := map[string]any{"name": "Ada Lovelace", "email": "Ada@Example.com", "password": "correct horse"}

	rec := e.do(t, nil, "POST", "/register", reg)
	rec.AssertStatus(t, http.StatusCreated)
	var u models.User
	rec.DecodeJSON(t, &u)
	if u.Email != "ada@example.com" || u.Role != models.RoleUser {
		t.Fatalf("registered: %+v", u)
	}
	if rec.Body.String() == "" || strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response leaks password fields: %s", rec.Body.String())
	}

	e.do(t, nil, "POST", "/register", reg).AssertStatus(t, http.StatusConflict)

	e.do(t, nil, "POST", "/login", map[string]any{"email": "ada@example.com", "password": "wrong password"}).
		AssertStatus(t, http.StatusUnauthorized)

	rec = e.do(t, nil, "POST", "/login", map[string]any{"email": "ada@example.com", "password": "correct horse"})
	rec.AssertStatus(t, http.StatusOK)
	var sess struct {
		Token string `json:"token"`
	}
	rec.DecodeJSON(t, &sess)
	p, err := e.tokens.Parse(sess.Token)
	if err != nil || p.ID != u.ID {
		t.Fatalf("token principal: %+v %v", p, err)
	}
}

func TestRegister_Validation(t *testing.T) {
	e := newEnv(t, 20)
	e.do(t, nil, "POST", "/register", map[string]any{"name": "Al", "email": "x@example.com", "password": "short"}).
		AssertStatus(t, http.StatusBadRequest)
}

func TestLogin_Throttled(t *testing.T) {
	e := newEnv(t, 1)
	body := map[string]any{"email": "nobody@example.com", "password": "whatever123"}

	e.do(t, nil, "POST", "/login", body).AssertStatus(t, http.StatusUnauthorized)
	rec := e.do(t, nil, "POST", "/login", body)
	rec.AssertStatus(t, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestSelfAndProfile(t *testing.T) {
	e := newEnv(t, 20)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateMember(ctx, "Lina Haddad", "lina@example.com")
	p := testutil.PrincipalOf(u)

	e.do(t, nil, "GET", "/me", nil).AssertStatus(t, http.StatusUnauthorized)

	rec := e.do(t, &p, "GET", "/me", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "lina@example.com")

	rec = e.do(t, &p, "PATCH", "/me", map[string]any{"name": "Lina H.", "phone": "555-0101"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "555-0101")

	e.do(t, &p, "POST", "/me/feedback", map[string]any{"feedback": "Great course"}).
		AssertStatus(t, http.StatusOK)
}

func TestAdminEndpoints(t *testing.T) {
	e := newEnv(t, 20)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := testutil.PrincipalOf(e.fx.CreateAdmin(ctx, "Root", "admin@example.com"))
	u := e.fx.CreateMember(ctx, "Karim", "karim@example.com")
	member := testutil.PrincipalOf(u)

	e.do(t, &member, "GET", "/", nil).AssertStatus(t, http.StatusForbidden)

	rec := e.do(t, &admin, "GET", "/", nil)
	rec.AssertStatus(t, http.StatusOK)
	var page paging.Page[models.User]
	rec.DecodeJSON(t, &page)
	if len(page.Items) != 2 || page.HasNext {
		t.Fatalf("users: %+v", page)
	}
	e.do(t, &admin, "GET", "/?q=kar&limit=1", nil).AssertContains(t, "karim@example.com")

	e.do(t, &member, "POST", "/me/feedback", map[string]any{"feedback": "More labs"}).AssertStatus(t, http.StatusOK)
	rec = e.do(t, &admin, "GET", "/feedback", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "More labs")
	e.do(t, &admin, "DELETE", "/"+u.ID.Hex()+"/feedback", nil).AssertStatus(t, http.StatusOK)

	e.do(t, &admin, "PATCH", "/"+u.ID.Hex()+"/role", map[string]any{"role": "wizard"}).
		AssertStatus(t, http.StatusBadRequest)
	rec = e.do(t, &admin, "PATCH", "/"+u.ID.Hex()+"/role", map[string]any{"role": "admin"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"role":"admin"`)
}

func TestMemberReports(t *testing.T) {
	e := newEnv(t, 20)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := e.fx.CreateGroup(ctx, "Compilers")
	l := e.fx.CreateLecture(ctx, g.ID, "Parsing")
	u := e.fx.CreateMember(ctx, "Nour", "nour@example.com")
	other := testutil.PrincipalOf(e.fx.CreateMember(ctx, "Sami", "sami@example.com"))

	m := ledger.NewPending(g.ID, models.RequestJoin, "", time.Now().UTC())
	if err := ledger.Approve(&m, u.ID, []models.Lecture{l}, time.Now().UTC()); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	e.fx.SetMembership(ctx, u.ID, m)
	self := testutil.PrincipalOf(u)

	path := "/" + u.ID.Hex() + "/groups/" + g.ID.Hex()
	rec := e.do(t, &self, "GET", path+"/attendance", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total_absence":1`)

	e.do(t, &self, "GET", path+"/tasks", nil).AssertStatus(t, http.StatusOK)
	e.do(t, &other, "GET", path+"/attendance", nil).AssertStatus(t, http.StatusForbidden)
}

func TestDeleteSelf(t *testing.T) {
	e := newEnv(t, 20)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateMember(ctx, "Temp", "temp@example.com")
	p := testutil.PrincipalOf(u)
	other := testutil.PrincipalOf(e.fx.CreateMember(ctx, "Other", "other@example.com"))

	e.do(t, &other, "DELETE", "/"+u.ID.Hex(), nil).AssertStatus(t, http.StatusForbidden)
	e.do(t, &p, "DELETE", "/"+u.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
	e.do(t, &p, "GET", "/me", nil).AssertStatus(t, http.StatusNotFound)
}
