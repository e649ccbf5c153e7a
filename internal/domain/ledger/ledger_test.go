package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/classhub/internal/domain/ledger"
	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func lecture(tasks ...models.Task) models.Lecture {
	return models.Lecture{ID: primitive.NewObjectID(), Tasks: tasks}
}

func task(desc string, end time.Time) models.Task {
	return models.Task{ID: primitive.NewObjectID(), Description: desc, EndDate: end}
}

func checkCounters(t *testing.T, m models.Membership) {
	t.Helper()
	if m.TotalAttendance+m.TotalAbsence != len(m.Attendance) {
		t.Fatalf("counters out of sync: present=%d absent=%d entries=%d",
			m.TotalAttendance, m.TotalAbsence, len(m.Attendance))
	}
	if m.TotalAttendance < 0 || m.TotalAbsence < 0 {
		t.Fatalf("negative counters: present=%d absent=%d", m.TotalAttendance, m.TotalAbsence)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		present, absent int
		want            float64
	}{
		{0, 0, 0},
		{1, 0, 100},
		{0, 3, 0},
		{1, 2, 33.33},
		{2, 1, 66.67},
		{1, 1, 50},
	}
	for _, tt := range tests {
		if got := ledger.Percentage(tt.present, tt.absent); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.present, tt.absent, got, tt.want)
		}
	}
}

func TestApproveThenLectureThenCheckIn(t *testing.T) {
	groupID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	m := ledger.NewPending(groupID, models.RequestJoin, "", t0)
	if err := ledger.Approve(&m, userID, nil, t0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if m.Status != models.StatusApproved {
		t.Fatalf("status: got %q, want approved", m.Status)
	}
	if len(m.Attendance) != 0 || m.AttendancePercentage != 0 {
		t.Fatalf("expected empty ledger, got %+v", m.Attendance)
	}

	l1 := lecture()
	if !ledger.LectureAdded(&m, l1.ID, t0) {
		t.Fatal("LectureAdded reported no change")
	}
	if m.TotalAbsence != 1 || m.TotalAttendance != 0 {
		t.Fatalf("after lecture: present=%d absent=%d", m.TotalAttendance, m.TotalAbsence)
	}

	if err := ledger.CheckIn(&m, l1.ID, t0.Add(time.Hour)); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if m.TotalAttendance != 1 || m.TotalAbsence != 0 {
		t.Fatalf("after check-in: present=%d absent=%d", m.TotalAttendance, m.TotalAbsence)
	}
	if m.AttendancePercentage != 100 {
		t.Errorf("percentage: got %v, want 100", m.AttendancePercentage)
	}
	a, _ := m.AttendanceFor(l1.ID)
	if a.Status != models.Present || a.AttendedAt == nil {
		t.Errorf("entry not marked present: %+v", a)
	}
	checkCounters(t, m)

	if err := ledger.CheckIn(&m, l1.ID, t0.Add(2*time.Hour)); !errors.Is(err, ledger.ErrAlreadyPresent) {
		t.Fatalf("second CheckIn: got %v, want ErrAlreadyPresent", err)
	}
	if m.TotalAttendance != 1 {
		t.Errorf("second check-in changed counters: %d", m.TotalAttendance)
	}
}

func TestNewApproved_AllowListFastPath(t *testing.T) {
	l1 := lecture(task("t1", t0))
	l2 := lecture()
	userID := primitive.NewObjectID()

	m := ledger.NewApproved(primitive.NewObjectID(), userID, models.RequestJoin, "", []models.Lecture{l1, l2}, t0)
	if m.Status != models.StatusApproved {
		t.Fatalf("status: got %q", m.Status)
	}
	if len(m.Attendance) != 2 || m.TotalAbsence != 2 {
		t.Fatalf("attendance: got %d entries, absent=%d", len(m.Attendance), m.TotalAbsence)
	}
	if len(m.Tasks) != 1 || m.Tasks[0].SubmissionLink != nil {
		t.Fatalf("tasks: got %+v", m.Tasks)
	}
	checkCounters(t, m)
}

func TestApprove_PreservesExistingAttendance(t *testing.T) {
	userID := primitive.NewObjectID()
	l1, l2 := lecture(), lecture()

	m := ledger.NewPending(primitive.NewObjectID(), models.RequestJoin, "", t0)
	at := t0
	m.Attendance = []models.AttendanceEntry{{LectureID: l1.ID, Status: models.Present, AttendedAt: &at}}

	if err := ledger.Approve(&m, userID, []models.Lecture{l1, l2}, t0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(m.Attendance) != 2 {
		t.Fatalf("attendance: got %d entries, want 2", len(m.Attendance))
	}
	if m.Attendance[0].Status != models.Present {
		t.Errorf("prior entry lost its status: %+v", m.Attendance[0])
	}
	if m.TotalAttendance != 1 || m.TotalAbsence != 1 || m.AttendancePercentage != 50 {
		t.Errorf("counters: %d/%d %v", m.TotalAttendance, m.TotalAbsence, m.AttendancePercentage)
	}
}

func TestTransitions_RequireStatus(t *testing.T) {
	userID := primitive.NewObjectID()
	tests := []struct {
		name   string
		status models.MembershipStatus
		apply  func(m *models.Membership) error
		ok     bool
	}{
		{"approve pending", models.StatusPending, func(m *models.Membership) error { return ledger.Approve(m, userID, nil, t0) }, true},
		{"approve approved", models.StatusApproved, func(m *models.Membership) error { return ledger.Approve(m, userID, nil, t0) }, false},
		{"approve special", models.StatusSpecial, func(m *models.Membership) error { return ledger.Approve(m, userID, nil, t0) }, false},
		{"special pending", models.StatusPending, func(m *models.Membership) error { return ledger.GrantSpecial(m, userID, nil, t0) }, true},
		{"special approved", models.StatusApproved, func(m *models.Membership) error { return ledger.GrantSpecial(m, userID, nil, t0) }, false},
		{"update special", models.StatusSpecial, func(m *models.Membership) error { return ledger.UpdateSpecial(m, userID, nil, t0) }, true},
		{"update pending", models.StatusPending, func(m *models.Membership) error { return ledger.UpdateSpecial(m, userID, nil, t0) }, false},
		{"reset approved", models.StatusApproved, func(m *models.Membership) error { return ledger.ResetToPending(m, t0) }, true},
		{"reset rejected", models.StatusRejected, func(m *models.Membership) error { return ledger.ResetToPending(m, t0) }, true},
		{"reset pending", models.StatusPending, func(m *models.Membership) error { return ledger.ResetToPending(m, t0) }, false},
		{"reset special", models.StatusSpecial, func(m *models.Membership) error { return ledger.ResetToPending(m, t0) }, false},
		{"reject pending", models.StatusPending, func(m *models.Membership) error { return ledger.CanReject(*m) }, true},
		{"reject approved", models.StatusApproved, func(m *models.Membership) error { return ledger.CanReject(*m) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ledger.NewPending(primitive.NewObjectID(), models.RequestJoin, "", t0)
			m.Status = tt.status
			before := m.Revision
			err := tt.apply(&m)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ledger.ErrInvalidTransition) {
				t.Fatalf("got %v, want ErrInvalidTransition", err)
			}
			if !tt.ok && m.Revision != before {
				t.Errorf("failed transition bumped revision")
			}
		})
	}
}

func TestResetToPending_KeepsLedgers(t *testing.T) {
	l1 := lecture(task("t", t0))
	m := ledger.NewApproved(primitive.NewObjectID(), primitive.NewObjectID(), models.RequestJoin, "", []models.Lecture{l1}, t0)
	if err := ledger.ResetToPending(&m, t0); err != nil {
		t.Fatalf("ResetToPending: %v", err)
	}
	if len(m.Attendance) != 1 || len(m.Tasks) != 1 {
		t.Errorf("ledgers changed: %d attendance, %d tasks", len(m.Attendance), len(m.Tasks))
	}
}

func TestSpecial_GrantAndUpdate(t *testing.T) {
	userID := primitive.NewObjectID()
	l1 := lecture(task("a", t0))
	l2 := lecture(task("b", t0), task("c", t0))
	l3 := lecture()

	m := ledger.NewPending(primitive.NewObjectID(), models.RequestInvite, "", t0)
	if err := ledger.GrantSpecial(&m, userID, []models.Lecture{l1, l2}, t0); err != nil {
		t.Fatalf("GrantSpecial: %v", err)
	}
	if len(m.Attendance) != 2 || len(m.Tasks) != 3 {
		t.Fatalf("grant: %d attendance, %d tasks", len(m.Attendance), len(m.Tasks))
	}
	if ledger.Eligible(m, l3.ID) {
		t.Error("special member eligible for lecture outside subset")
	}
	if ledger.LectureAdded(&m, l3.ID, t0) {
		t.Error("special member picked up a new lecture")
	}

	if err := ledger.CheckIn(&m, l1.ID, t0); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	ids := ledger.MergeSpecial(m.Special.Lectures, []primitive.ObjectID{l3.ID}, []primitive.ObjectID{l2.ID})
	if len(ids) != 2 || ids[0] != l1.ID || ids[1] != l3.ID {
		t.Fatalf("MergeSpecial: got %v", ids)
	}
	if err := ledger.UpdateSpecial(&m, userID, []models.Lecture{l1, l3}, t0); err != nil {
		t.Fatalf("UpdateSpecial: %v", err)
	}
	if len(m.Attendance) != 2 {
		t.Fatalf("attendance after update: %d", len(m.Attendance))
	}
	if a, _ := m.AttendanceFor(l1.ID); a.Status != models.Present {
		t.Errorf("kept lecture lost present status")
	}
	if len(m.Tasks) != 1 || m.Tasks[0].TaskName != "a" {
		t.Errorf("tasks after update: %+v", m.Tasks)
	}
	if m.TotalAttendance != 1 || m.TotalAbsence != 1 {
		t.Errorf("counters after update: %d/%d", m.TotalAttendance, m.TotalAbsence)
	}
	checkCounters(t, m)
}

func TestCheckIn_NotEligible(t *testing.T) {
	m := ledger.NewPending(primitive.NewObjectID(), models.RequestJoin, "", t0)
	if err := ledger.CheckIn(&m, primitive.NewObjectID(), t0); !errors.Is(err, ledger.ErrNotEligible) {
		t.Fatalf("got %v, want ErrNotEligible", err)
	}
}

func TestCheckIn_CreatesMissingEntry(t *testing.T) {
	m := ledger.NewApproved(primitive.NewObjectID(), primitive.NewObjectID(), models.RequestJoin, "", nil, t0)
	id := primitive.NewObjectID()
	if err := ledger.CheckIn(&m, id, t0); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if len(m.Attendance) != 1 || m.TotalAttendance != 1 {
		t.Fatalf("got %+v", m)
	}
	checkCounters(t, m)
}

func TestLectureRemoved(t *testing.T) {
	userID := primitive.NewObjectID()
	tk := task("x", t0)
	l1 := lecture(tk)
	l2 := lecture()

	m := ledger.NewApproved(primitive.NewObjectID(), userID, models.RequestJoin, "", []models.Lecture{l1, l2}, t0)
	if err := ledger.CheckIn(&m, l1.ID, t0); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if err := ledger.Grade(&m, tk.ID, 7, nil, t0); err != nil {
		t.Fatalf("Grade: %v", err)
	}

	if !ledger.LectureRemoved(&m, l1.ID, []primitive.ObjectID{tk.ID}, t0) {
		t.Fatal("LectureRemoved reported no change")
	}
	if len(m.Attendance) != 1 || m.TotalAttendance != 0 || m.TotalAbsence != 1 {
		t.Errorf("attendance after removal: %+v", m)
	}
	if len(m.Tasks) != 0 || m.TotalScore != 0 {
		t.Errorf("tasks after removal: %+v score=%v", m.Tasks, m.TotalScore)
	}
	checkCounters(t, m)

	if ledger.LectureRemoved(&m, l1.ID, nil, t0) {
		t.Error("second removal reported a change")
	}
}

func TestTaskAddedAndRemoved(t *testing.T) {
	l1 := lecture()
	other := primitive.NewObjectID()
	m := ledger.NewApproved(primitive.NewObjectID(), primitive.NewObjectID(), models.RequestJoin, "", []models.Lecture{l1}, t0)

	tk := task("new", t0)
	if !ledger.TaskAdded(&m, l1.ID, tk, t0) {
		t.Fatal("TaskAdded reported no change")
	}
	if ledger.TaskAdded(&m, l1.ID, tk, t0) {
		t.Error("duplicate TaskAdded reported a change")
	}

	pending := ledger.NewPending(other, models.RequestJoin, "", t0)
	if ledger.TaskAdded(&pending, l1.ID, tk, t0) {
		t.Error("pending member received a task")
	}

	if !ledger.TaskRemoved(&m, tk.ID, t0) {
		t.Fatal("TaskRemoved reported no change")
	}
	if len(m.Tasks) != 0 {
		t.Errorf("tasks: %+v", m.Tasks)
	}
}

func TestSubmitAndGrade(t *testing.T) {
	l1 := lecture()
	tk := task("essay", t0)
	m := ledger.NewApproved(primitive.NewObjectID(), primitive.NewObjectID(), models.RequestJoin, "", []models.Lecture{l1}, t0)
	ledger.TaskAdded(&m, l1.ID, tk, t0)

	ledger.Submit(&m, l1.ID, tk, "https://github.com/a/b", t0)
	e, _ := m.TaskFor(tk.ID)
	if e.SubmissionLink == nil || *e.SubmissionLink != "https://github.com/a/b" {
		t.Fatalf("link not recorded: %+v", e)
	}
	if e.SubmittedOnTime == nil || !*e.SubmittedOnTime {
		t.Errorf("submission at the deadline should be on time")
	}

	fb := "good"
	if err := ledger.Grade(&m, tk.ID, 9.5, &fb, t0); err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if m.TotalScore != 9.5 {
		t.Errorf("TotalScore: got %v, want 9.5", m.TotalScore)
	}

	ledger.Submit(&m, l1.ID, tk, "https://github.com/a/c", t0.Add(time.Minute))
	if len(m.Tasks) != 1 {
		t.Fatalf("resubmission duplicated entry: %d", len(m.Tasks))
	}
	e, _ = m.TaskFor(tk.ID)
	if *e.SubmissionLink != "https://github.com/a/c" {
		t.Errorf("link not overwritten: %s", *e.SubmissionLink)
	}
	if e.Score == nil || *e.Score != 9.5 || e.Feedback == nil || *e.Feedback != "good" {
		t.Errorf("resubmission cleared the grade: %+v", e)
	}
	if *e.SubmittedOnTime {
		t.Errorf("late resubmission marked on time")
	}

	if err := ledger.Grade(&m, primitive.NewObjectID(), 1, nil, t0); !errors.Is(err, ledger.ErrNoTaskEntry) {
		t.Errorf("Grade unknown task: got %v", err)
	}
}

func TestBuildTasks_MirrorsCanonicalSubmission(t *testing.T) {
	userID := primitive.NewObjectID()
	score := 4.0
	tk := task("t", t0)
	tk.Submissions = []models.Submission{{UserID: userID, Link: "https://drive.google.com/x", SubmittedAt: t0, SubmittedOnTime: true, Score: &score}}
	l := lecture(tk)

	out := ledger.BuildTasks([]models.Lecture{l}, userID)
	if len(out) != 1 || out[0].Score == nil || *out[0].Score != 4 {
		t.Fatalf("got %+v", out)
	}
	if out[0].LectureID != l.ID {
		t.Errorf("LectureID: got %v, want %v", out[0].LectureID, l.ID)
	}

	other := ledger.BuildTasks([]models.Lecture{l}, primitive.NewObjectID())
	if other[0].SubmissionLink != nil {
		t.Errorf("other user inherited submission")
	}
}

func TestLectureSequence_KeepsOneEntryPerLecture(t *testing.T) {
	m := ledger.NewApproved(primitive.NewObjectID(), primitive.NewObjectID(), models.RequestJoin, "", nil, t0)
	var live []primitive.ObjectID
	for i := 0; i < 5; i++ {
		id := primitive.NewObjectID()
		live = append(live, id)
		ledger.LectureAdded(&m, id, t0)
		ledger.LectureAdded(&m, id, t0)
	}
	ledger.LectureRemoved(&m, live[1], nil, t0)
	ledger.LectureRemoved(&m, live[3], nil, t0)
	if len(m.Attendance) != 3 {
		t.Fatalf("entries: got %d, want 3", len(m.Attendance))
	}
	checkCounters(t, m)
}
