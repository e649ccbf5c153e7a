package catalog_test

import (
	"testing"
	"time"

	"github.com/dalemusser/classhub/internal/app/services/catalog"
	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/dalemusser/classhub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func validInput() catalog.GroupInput {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	return catalog.GroupInput{
		Title:      "Go Basics",
		CourseType: models.CourseOnline,
		StartDate:  start,
		EndDate:    start.AddDate(0, 2, 0),
		Price:      100,
	}
}

func TestCreateGroup_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := testutil.AdminPrincipal()

	tests := []struct {
		name   string
		mutate func(*catalog.GroupInput)
	}{
		{"missing title", func(in *catalog.GroupInput) { in.Title = "  " }},
		{"bad course type", func(in *catalog.GroupInput) { in.CourseType = "hybrid" }},
		{"offline without location", func(in *catalog.GroupInput) { in.CourseType = models.CourseOffline }},
		{"negative price", func(in *catalog.GroupInput) { in.Price = -1 }},
		{"end before start", func(in *catalog.GroupInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) }},
		{"missing dates", func(in *catalog.GroupInput) { in.StartDate = time.Time{} }},
		{"bad image url", func(in *catalog.GroupInput) { in.ImageCourse = "not a url" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.CreateGroup(ctx, admin, in)
			if !apperr.Is(err, apperr.Validation) {
				t.Errorf("got %v, want validation failure", err)
			}
		})
	}

	_, err := svc.CreateGroup(ctx, testutil.UserPrincipal(), validInput())
	if !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("non-admin create: got %v, want forbidden", err)
	}
}

func TestCreateUpdateGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := testutil.AdminPrincipal()

	g, err := svc.CreateGroup(ctx, admin, validInput())
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	in := validInput()
	in.Title = "Go Advanced"
	in.CourseType = models.CourseOffline
	in.Location = "Room 4"
	updated, err := svc.UpdateGroup(ctx, admin, g.ID, in)
	if err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if updated.Title != "Go Advanced" || updated.Location != "Room 4" {
		t.Errorf("updated group: %+v", updated)
	}

	_, err = svc.UpdateGroup(ctx, admin, primitive.NewObjectID(), in)
	if !apperr.Is(err, apperr.NotFound) {
		t.Errorf("update missing: got %v, want not found", err)
	}

	if _, err := svc.AddAllowedEmails(ctx, admin, g.ID, []string{"a@example.com"}); err != nil {
		t.Fatalf("AddAllowedEmails: %v", err)
	}
	public, err := svc.GetGroup(ctx, testutil.UserPrincipal(), g.ID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if public.AllowedEmails != nil || public.Members != nil {
		t.Error("public view must hide roster and allow-list")
	}
	full, err := svc.GetGroup(ctx, admin, g.ID)
	if err != nil {
		t.Fatalf("GetGroup admin: %v", err)
	}
	if len(full.AllowedEmails) != 1 {
		t.Errorf("admin allow-list: %v", full.AllowedEmails)
	}

	list, err := svc.ListGroups(ctx, testutil.UserPrincipal())
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListGroups: got %d, want 1", len(list))
	}
}

func TestAllowList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.New(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := testutil.AdminPrincipal()

	g := fx.CreateGroup(ctx, "Go Basics")
	other := fx.CreateGroup(ctx, "Rust Basics", "shared@example.com", "keep@example.com")
	user := fx.CreateMember(ctx, "Known User", "known@example.com")

	added, err := svc.AddAllowedEmails(ctx, admin, g.ID, []string{" Known@Example.com ", "new@example.com", "new@example.com"})
	if err != nil {
		t.Fatalf("AddAllowedEmails: %v", err)
	}
	if len(added) != 2 {
		t.Errorf("added: got %v, want 2 entries", added)
	}
	_, err = svc.AddAllowedEmails(ctx, admin, g.ID, []string{"new@example.com"})
	if !apperr.Is(err, apperr.Conflict) {
		t.Errorf("re-add: got %v, want conflict", err)
	}
	_, err = svc.AddAllowedEmails(ctx, admin, g.ID, []string{"not-an-email"})
	if !apperr.Is(err, apperr.Validation) {
		t.Errorf("bad email: got %v, want validation", err)
	}

	entries, err := svc.ListAllowedEmails(ctx, admin, g.ID)
	if err != nil {
		t.Fatalf("ListAllowedEmails: %v", err)
	}
	var matched bool
	for _, e := range entries {
		if e.Email == "known@example.com" {
			matched = e.User != nil && e.User.ID == user.ID
		}
	}
	if !matched {
		t.Errorf("known@example.com should match its user: %+v", entries)
	}

	if _, err := svc.SetAllowedEmails(ctx, admin, g.ID, []string{"shared@example.com"}); err != nil {
		t.Fatalf("SetAllowedEmails: %v", err)
	}
	if got := fx.Group(ctx, g.ID).AllowedEmails; len(got) != 1 || got[0] != "shared@example.com" {
		t.Errorf("allow-list after set: %v", got)
	}
	if got := fx.Group(ctx, other.ID).AllowedEmails; len(got) != 1 || got[0] != "keep@example.com" {
		t.Errorf("other group's allow-list: got %v, want [keep@example.com]", got)
	}

	if err := svc.RemoveAllowedEmail(ctx, admin, g.ID, "shared@example.com"); err != nil {
		t.Fatalf("RemoveAllowedEmail: %v", err)
	}
	if err := svc.RemoveAllowedEmail(ctx, admin, g.ID, "shared@example.com"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("remove again: got %v, want not found", err)
	}
}

func TestDeleteGroup_Cascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := catalog.New(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := testutil.AdminPrincipal()

	g := fx.CreateGroup(ctx, "Go Basics")
	keep := fx.CreateGroup(ctx, "Keep")
	fx.CreateLecture(ctx, g.ID, "One")
	fx.CreateLecture(ctx, g.ID, "Two")
	kept := fx.CreateLecture(ctx, keep.ID, "Kept")
	user := fx.CreateMember(ctx, "Member", "m@example.com")
	fx.SetMembership(ctx, user.ID, models.Membership{GroupID: g.ID, Status: models.StatusApproved})
	fx.SetMembership(ctx, user.ID, models.Membership{GroupID: keep.ID, Status: models.StatusPending})

	if err := svc.DeleteGroup(ctx, admin, g.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	n, err := db.Collection("lectures").CountDocuments(ctx, bson.M{"group_id": g.ID})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if n != 0 {
		t.Errorf("lectures left for deleted group: %d", n)
	}
	fx.Lecture(ctx, kept.ID)

	u := fx.User(ctx, user.ID)
	if _, ok := u.Membership(g.ID); ok {
		t.Error("membership of deleted group should be pulled")
	}
	if _, ok := u.Membership(keep.ID); !ok {
		t.Error("other memberships must survive")
	}

	if err := svc.DeleteGroup(ctx, admin, g.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("delete again: got %v, want not found", err)
	}
}

// When the last step of the cascade fails, the lecture and membership
// deletions made before it are rolled back.
func TestDeleteGroup_FailureLeavesEverything(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireTransactions(t, db)
	svc := catalog.New(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// groups is a read-only view, so deleting the group document fails
	// after lectures and memberships have been written.
	now := time.Now().UTC()
	g := models.Group{
		ID:            primitive.NewObjectID(),
		Title:         "Go Basics",
		TitleCI:       text.Fold("Go Basics"),
		CourseType:    models.CourseOnline,
		StartDate:     now,
		EndDate:       now.AddDate(0, 3, 0),
		CourseDetails: []models.CourseDetail{},
		AboutCourse:   []string{},
		Members:       []models.RosterEntry{},
		AllowedEmails: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := db.Collection("group_rows").InsertOne(ctx, g); err != nil {
		t.Fatalf("insert group: %v", err)
	}
	if err := db.CreateView(ctx, "groups", "group_rows", mongo.Pipeline{}); err != nil {
		t.Fatalf("CreateView: %v", err)
	}
	fx.CreateLecture(ctx, g.ID, "One")
	fx.CreateLecture(ctx, g.ID, "Two")
	user := fx.CreateMember(ctx, "Member", "m@example.com")
	fx.SetMembership(ctx, user.ID, models.Membership{GroupID: g.ID, Status: models.StatusApproved})

	err := svc.DeleteGroup(ctx, testutil.AdminPrincipal(), g.ID)
	if !apperr.Is(err, apperr.ServerFault) {
		t.Fatalf("DeleteGroup: got %v, want server fault", err)
	}

	n, err := db.Collection("lectures").CountDocuments(ctx, bson.M{"group_id": g.ID})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if n != 2 {
		t.Errorf("lectures after failed delete: got %d, want 2", n)
	}
	if _, ok := fx.User(ctx, user.ID).Membership(g.ID); !ok {
		t.Error("membership should survive a failed delete")
	}
	n, err = db.Collection("group_rows").CountDocuments(ctx, bson.M{"_id": g.ID})
	if err != nil || n != 1 {
		t.Errorf("group after failed delete: %d %v", n, err)
	}
}
