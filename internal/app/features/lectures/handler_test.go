package lectures_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/classhub/internal/app/features/lectures"
	"github.com/dalemusser/classhub/internal/app/services/coursework"
	"github.com/dalemusser/classhub/internal/app/system/authz"
	"github.com/dalemusser/classhub/internal/app/system/events"
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
	admin  authz.Principal
	member authz.Principal
	group  models.Group
}

func newEnv(t *testing.T, checkInsPerMinute int) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	checkIns := ratelimit.NewCheckInLimiter(checkInsPerMinute)
	t.Cleanup(checkIns.Close)

	h := lectures.NewHandler(coursework.New(db, events.NewBus(64), logger), checkIns, logger)
	e := &env{router: lectures.Routes(h), fx: testutil.NewFixtures(t, db)}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.admin = testutil.PrincipalOf(e.fx.CreateAdmin(ctx, "Admin", "admin@example.com"))
	e.group = e.fx.CreateGroup(ctx, "Operating Systems")
	u := e.fx.CreateMember(ctx, "Yara", "yara@example.com")
	now := time.Now().UTC()
	m := ledger.NewPending(e.group.ID, models.RequestJoin, "", now)
	if err := ledger.Approve(&m, u.ID, nil, now); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	e.fx.SetMembership(ctx, u.ID, m)
	e.member = testutil.PrincipalOf(u)
	return e
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

func (e *env) createLecture(t *testing.T, title string) models.Lecture {
	t.Helper()
	rec := e.do(t, &e.admin, "POST", "/", map[string]any{"group_id": e.group.ID.Hex(), "title": title})
	rec.AssertStatus(t, http.StatusCreated)
	var l models.Lecture
	rec.DecodeJSON(t, &l)
	if len(l.Code) != models.LectureCodeLength {
		t.Fatalf("admin view code: %q", l.Code)
	}
	return l
}

func TestCreate_Access(t *testing.T) {
	e := newEnv(t, 10)
	body := map[string]any{"group_id": e.group.ID.Hex(), "title": "L"}

	e.do(t, nil, "POST", "/", body).AssertStatus(t, http.StatusUnauthorized)
	e.do(t, &e.member, "POST", "/", body).AssertStatus(t, http.StatusForbidden)
	e.do(t, &e.admin, "POST", "/", map[string]any{"group_id": "nope", "title": "L"}).
		AssertStatus(t, http.StatusBadRequest)
}

func TestAttend(t *testing.T) {
	e := newEnv(t, 10)
	l := e.createLecture(t, "Scheduling")

	rec := e.do(t, &e.member, "GET", "/"+l.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusOK)
	if strings.Contains(rec.Body.String(), `"code"`) {
		t.Errorf("member view exposes the code: %s", rec.Body.String())
	}

	e.do(t, &e.member, "POST", "/"+l.ID.Hex()+"/attend", map[string]any{"code": "ZZZZZZ"}).
		AssertStatus(t, http.StatusBadRequest)

	rec = e.do(t, &e.member, "POST", "/"+l.ID.Hex()+"/attend", map[string]any{"code": strings.ToLower(l.Code)})
	rec.AssertStatus(t, http.StatusOK)
	var m models.Membership
	rec.DecodeJSON(t, &m)
	if m.TotalAttendance != 1 || m.TotalAbsence != 0 || m.AttendancePercentage != 100 {
		t.Fatalf("after check-in: %+v", m)
	}

	e.do(t, &e.member, "POST", "/"+l.ID.Hex()+"/attend", map[string]any{"code": l.Code}).
		AssertStatus(t, http.StatusConflict)

	rec = e.do(t, &e.admin, "GET", "/"+l.ID.Hex()+"/attendance", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, e.member.ID.Hex())
}

func TestAttend_Throttled(t *testing.T) {
	e := newEnv(t, 2)
	l := e.createLecture(t, "Memory")

	for i := 0; i < 2; i++ {
		e.do(t, &e.member, "POST", "/"+l.ID.Hex()+"/attend", map[string]any{"code": "WRONG1"}).
			AssertStatus(t, http.StatusBadRequest)
	}
	e.do(t, &e.member, "POST", "/"+l.ID.Hex()+"/attend", map[string]any{"code": l.Code}).
		AssertStatus(t, http.StatusTooManyRequests)
}

func TestTasks(t *testing.T) {
	e := newEnv(t, 10)
	l := e.createLecture(t, "File Systems")
	base := "/" + l.ID.Hex() + "/tasks"

	rec := e.do(t, &e.admin, "POST", base, map[string]any{
		"description": "Implement an inode table",
		"end_date":    time.Now().Add(48 * time.Hour).UTC(),
	})
	rec.AssertStatus(t, http.StatusCreated)
	var task models.Task
	rec.DecodeJSON(t, &task)

	rec = e.do(t, &e.member, "GET", base, nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "inode table")

	taskPath := base + "/" + task.ID.Hex()
	e.do(t, &e.member, "POST", taskPath+"/submit", map[string]any{"link": "javascript:alert(1)"}).
		AssertStatus(t, http.StatusBadRequest)
	rec = e.do(t, &e.member, "POST", taskPath+"/submit", map[string]any{"link": "https://github.com/yara/inodes"})
	rec.AssertStatus(t, http.StatusOK)
	var entry models.TaskEntry
	rec.DecodeJSON(t, &entry)
	if entry.SubmittedOnTime == nil || !*entry.SubmittedOnTime {
		t.Fatalf("submission entry: %+v", entry)
	}

	gradePath := taskPath + "/submissions/" + e.member.ID.Hex() + "/grade"
	e.do(t, &e.admin, "POST", gradePath, map[string]any{"feedback": "ok"}).
		AssertStatus(t, http.StatusBadRequest)
	rec = e.do(t, &e.admin, "POST", gradePath, map[string]any{"score": 9, "feedback": "Solid work"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Solid work")

	rec = e.do(t, &e.admin, "GET", taskPath+"/submissions", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "github.com/yara/inodes")

	e.do(t, &e.member, "GET", taskPath+"/submissions", nil).AssertStatus(t, http.StatusForbidden)

	rec = e.do(t, &e.admin, "PATCH", taskPath, map[string]any{"description": "Implement a journaled inode table"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "journaled")

	e.do(t, &e.admin, "DELETE", taskPath, nil).AssertStatus(t, http.StatusOK)
	e.do(t, &e.member, "GET", taskPath, nil).AssertStatus(t, http.StatusNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	e := newEnv(t, 10)
	l := e.createLecture(t, "Draft")

	rec := e.do(t, &e.admin, "PATCH", "/"+l.ID.Hex(), map[string]any{"title": "Virtual Memory"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Virtual Memory")

	e.do(t, &e.admin, "DELETE", "/"+l.ID.Hex(), nil).AssertStatus(t, http.StatusOK)
	e.do(t, &e.admin, "GET", "/"+l.ID.Hex(), nil).AssertStatus(t, http.StatusNotFound)
}
