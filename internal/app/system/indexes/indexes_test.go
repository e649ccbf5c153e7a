package indexes_test

import (
	"testing"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/indexes"
	"github.com/dalemusser/classhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users": {
			"uniq_users_email",
			"idx_users_membership_group_status",
			"idx_users_membership_attendance_lecture",
			"idx_users_nameci_id",
			"idx_users_role",
		},
		"groups":           {"idx_groups_titleci_id", "idx_groups_allowed_emails", "idx_groups_members_user"},
		"lectures":         {"uniq_lectures_code", "idx_lectures_group_created", "idx_lectures_tasks_id", "idx_lectures_submissions_user"},
		"contact_messages": {"idx_contact_replied_created"},
		"email_codes":      {"idx_email_codes_expires_ttl", "uniq_email_codes_user_purpose"},
	}
	for coll, names := range want {
		got := indexNames(t, db, coll)
		for _, name := range names {
			if !got[name] {
				t.Errorf("%s: missing index %q", coll, name)
			}
		}
	}
}

func TestEnsureAll_RenamesExistingIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("groups").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "allowed_emails", Value: 1}},
		Options: options.Index().SetName("legacy_allowed"),
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, db, "groups")
	if got["legacy_allowed"] || !got["idx_groups_allowed_emails"] {
		t.Errorf("groups indexes after reconcile: %v", got)
	}
}

func TestEnsureAll_UniqueIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	users := db.Collection("users")
	doc := func() bson.M {
		return bson.M{"_id": primitive.NewObjectID(), "email": "dup@example.com", "created_at": time.Now()}
	}
	if _, err := users.InsertOne(ctx, doc()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := users.InsertOne(ctx, doc()); !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second insert: got %v, want duplicate key error", err)
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	lectures := db.Collection("lectures")
	for i := 0; i < 2; i++ {
		if _, err := lectures.InsertOne(ctx, bson.M{"_id": primitive.NewObjectID(), "code": "ABC123"}); err != nil {
			t.Fatalf("seed lecture: %v", err)
		}
	}

	err := indexes.EnsureAll(ctx, db, zap.NewNop())
	if err == nil {
		t.Fatal("EnsureAll should fail when unique keys are duplicated")
	}
}
