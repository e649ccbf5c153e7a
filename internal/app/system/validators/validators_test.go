package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/validators"
	"github.com/dalemusser/classhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "groups", "lectures", "contact_messages"} {
		if !have[want] {
			t.Errorf("collection %q not created", want)
		}
	}
}

func TestEnsureAll_RejectsInvalidDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	now := time.Now().UTC()

	tests := []struct {
		name  string
		coll  string
		doc   bson.M
		valid bool
	}{
		{"user ok", "users", bson.M{"name": "Ada", "email": "ada@example.com", "role": "user", "memberships": bson.A{}}, true},
		{"user bad role", "users", bson.M{"name": "Ada", "email": "ada2@example.com", "role": "root"}, false},
		{"user bad membership status", "users", bson.M{
			"name": "Ada", "email": "ada3@example.com", "role": "user",
			"memberships": bson.A{bson.M{
				"group_id": primitive.NewObjectID(), "status": "waiting",
				"attendance": bson.A{}, "tasks": bson.A{}, "revision": int64(1),
			}},
		}, false},
		{"group ok", "groups", bson.M{"title": "Go", "course_type": "online", "start_date": now, "end_date": now, "price": 0.0}, true},
		{"group negative price", "groups", bson.M{"title": "Go", "course_type": "online", "start_date": now, "end_date": now, "price": -1.0}, false},
		{"lecture ok", "lectures", bson.M{"group_id": primitive.NewObjectID(), "title": "Intro", "code": "AB12CD"}, true},
		{"lecture lower-case code", "lectures", bson.M{"group_id": primitive.NewObjectID(), "title": "Intro", "code": "ab12cd"}, false},
		{"contact missing flag", "contact_messages", bson.M{"name": "N", "email": "n@example.com", "message": "hi"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if tt.valid && err != nil {
				t.Errorf("insert: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("insert should have been rejected")
			}
		})
	}
}
