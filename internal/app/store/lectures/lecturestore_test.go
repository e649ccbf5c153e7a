package lecturestore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	"github.com/dalemusser/classhub/internal/app/system/indexes"
	"github.com/dalemusser/classhub/internal/app/system/txn"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/dalemusser/classhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func codes(seq ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := seq[i%len(seq)]
		i++
		return c, nil
	}
}

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := lecturestore.NewCode()
		if err != nil {
			t.Fatalf("NewCode: %v", err)
		}
		if len(code) != models.LectureCodeLength {
			t.Errorf("len(%q) = %d, want %d", code, len(code), models.LectureCodeLength)
		}
		if code != strings.ToUpper(code) {
			t.Errorf("code %q is not upper-case", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected codes to vary")
	}
}

func TestStore_CreateAndUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := lecturestore.New(db)
	groupID := primitive.NewObjectID()

	created, err := store.Create(ctx, models.Lecture{GroupID: groupID, Title: "Intro"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Code == "" || created.Tasks == nil || created.Attendees == nil {
		t.Errorf("Create did not initialize lecture: %+v", created)
	}

	title := "Introduction"
	if err := store.UpdateInfo(ctx, created.ID, lecturestore.InfoUpdate{Title: &title, Resources: []string{"https://example.com/a"}}); err != nil {
		t.Fatalf("UpdateInfo: %v", err)
	}
	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != title || len(got.Resources) != 1 || got.Code != created.Code {
		t.Errorf("after update: %+v", got)
	}

	err = store.UpdateInfo(ctx, primitive.NewObjectID(), lecturestore.InfoUpdate{Title: &title})
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("UpdateInfo missing: got %v, want ErrNoDocuments", err)
	}

	second, err := store.Create(ctx, models.Lecture{GroupID: groupID, Title: "Second"})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	list, err := store.ListByGroup(ctx, groupID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByGroup: %d %v", len(list), err)
	}
	subset, err := store.ListByIDs(ctx, groupID, []primitive.ObjectID{second.ID, primitive.NewObjectID()})
	if err != nil || len(subset) != 1 || subset[0].ID != second.ID {
		t.Errorf("ListByIDs: %+v %v", subset, err)
	}

	n, err := store.DeleteByGroup(ctx, groupID)
	if err != nil || n != 2 {
		t.Errorf("DeleteByGroup: %d %v", n, err)
	}
}

func TestStore_TasksAndSubmissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := lecturestore.New(db)

	lec, err := store.Create(ctx, models.Lecture{GroupID: primitive.NewObjectID(), Title: "Lab"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	task, err := store.PushTask(ctx, lec.ID, models.Task{Description: "Essay", EndDate: time.Now().Add(time.Hour).UTC()})
	if err != nil {
		t.Fatalf("PushTask: %v", err)
	}
	if task.ID.IsZero() {
		t.Error("expected task ID")
	}

	userID := primitive.NewObjectID()
	first := models.Submission{UserID: userID, Link: "https://example.com/v1", SubmittedAt: time.Now().UTC(), SubmittedOnTime: true}
	if err := store.UpsertSubmission(ctx, lec.ID, task.ID, first); err != nil {
		t.Fatalf("UpsertSubmission: %v", err)
	}
	ok, err := store.GradeSubmission(ctx, lec.ID, task.ID, userID, 8, nil)
	if err != nil || !ok {
		t.Fatalf("GradeSubmission: %v %v", ok, err)
	}

	second := first
	second.Link = "https://example.com/v2"
	if err := store.UpsertSubmission(ctx, lec.ID, task.ID, second); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	got, _ := store.GetByID(ctx, lec.ID)
	if len(got.Tasks) != 1 || len(got.Tasks[0].Submissions) != 1 {
		t.Fatalf("expected one submission, got %+v", got.Tasks)
	}
	sub := got.Tasks[0].Submissions[0]
	if sub.Link != second.Link {
		t.Errorf("Link: got %q, want %q", sub.Link, second.Link)
	}
	if sub.Score == nil || *sub.Score != 8 {
		t.Errorf("resubmission should keep score, got %v", sub.Score)
	}

	ok, err = store.GradeSubmission(ctx, lec.ID, task.ID, primitive.NewObjectID(), 5, nil)
	if err != nil || ok {
		t.Errorf("grade without submission: %v %v", ok, err)
	}

	desc := "Long essay"
	ok, err = store.UpdateTask(ctx, lec.ID, task.ID, &desc, nil)
	if err != nil || !ok {
		t.Errorf("UpdateTask: %v %v", ok, err)
	}
	ok, err = store.UpdateTask(ctx, lec.ID, primitive.NewObjectID(), &desc, nil)
	if err != nil || ok {
		t.Errorf("UpdateTask missing: %v %v", ok, err)
	}

	ok, err = store.PullTask(ctx, lec.ID, task.ID)
	if err != nil || !ok {
		t.Errorf("PullTask: %v %v", ok, err)
	}
	err = store.UpsertSubmission(ctx, lec.ID, task.ID, first)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("submit to removed task: got %v, want ErrNoDocuments", err)
	}
}

func TestStore_AttendeesAndPullUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := lecturestore.New(db)

	lec, err := store.Create(ctx, models.Lecture{GroupID: primitive.NewObjectID(), Title: "Seminar"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	task, err := store.PushTask(ctx, lec.ID, models.Task{Description: "Quiz", EndDate: time.Now().Add(time.Hour).UTC()})
	if err != nil {
		t.Fatalf("PushTask: %v", err)
	}

	gone, stays := primitive.NewObjectID(), primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{gone, stays} {
		if err := store.AppendAttendee(ctx, lec.ID, id, time.Now().UTC()); err != nil {
			t.Fatalf("AppendAttendee: %v", err)
		}
		if err := store.UpsertSubmission(ctx, lec.ID, task.ID, models.Submission{UserID: id, Link: "https://example.com", SubmittedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("UpsertSubmission: %v", err)
		}
	}
	if err := store.AppendAttendee(ctx, primitive.NewObjectID(), gone, time.Now().UTC()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("AppendAttendee missing lecture: got %v", err)
	}

	if err := store.PullUserEverywhere(ctx, gone); err != nil {
		t.Fatalf("PullUserEverywhere: %v", err)
	}
	got, _ := store.GetByID(ctx, lec.ID)
	if got.AttendanceCount != 1 || len(got.Attendees) != 1 || got.Attendees[0].UserID != stays {
		t.Errorf("attendees after pull: count=%d %+v", got.AttendanceCount, got.Attendees)
	}
	if len(got.Tasks[0].Submissions) != 1 || got.Tasks[0].Submissions[0].UserID != stays {
		t.Errorf("submissions after pull: %+v", got.Tasks[0].Submissions)
	}
}

func TestStore_Create_SkipsTakenCodeInTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := lecturestore.New(db)
	groupID := primitive.NewObjectID()

	lecturestore.SetCodeSource(store, codes("TAKEN1"))
	if _, err := store.Create(ctx, models.Lecture{GroupID: groupID, Title: "First"}); err != nil {
		t.Fatalf("Create first: %v", err)
	}

	lecturestore.SetCodeSource(store, codes("TAKEN1", "FRESH1"))
	var created *models.Lecture
	err := txn.Run(ctx, db, zap.NewNop(), func(ctx context.Context) error {
		var err error
		created, err = store.Create(ctx, models.Lecture{GroupID: groupID, Title: "Second"})
		return err
	})
	if err != nil {
		t.Fatalf("Create in transaction: %v", err)
	}
	if created.Code != "FRESH1" {
		t.Errorf("Code: got %q, want FRESH1", created.Code)
	}

	lecturestore.SetCodeSource(store, codes("TAKEN1"))
	_, err = store.Create(ctx, models.Lecture{GroupID: groupID, Title: "Third"})
	if !errors.Is(err, lecturestore.ErrCodeExhausted) {
		t.Errorf("all codes taken: got %v, want ErrCodeExhausted", err)
	}
}
