package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	lecturestore "github.com/dalemusser/classhub/internal/app/store/lectures"
	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it again on the same request adds to the existing parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given role and no memberships.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Email:       email,
		Role:        role,
		Memberships: []models.Membership{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateMember creates a test user with the user role.
func (f *Fixtures) CreateMember(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleUser)
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateGroup creates an online test group with the given allow-list.
func (f *Fixtures) CreateGroup(ctx context.Context, title string, allowedEmails ...string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	if allowedEmails == nil {
		allowedEmails = []string{}
	}
	group := models.Group{
		ID:            primitive.NewObjectID(),
		Title:         title,
		TitleCI:       text.Fold(title),
		CourseType:    models.CourseOnline,
		StartDate:     now,
		EndDate:       now.AddDate(0, 3, 0),
		CourseDetails: []models.CourseDetail{},
		AboutCourse:   []string{},
		Members:       []models.RosterEntry{},
		AllowedEmails: allowedEmails,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("groups").InsertOne(ctx, group); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// CreateLecture creates a lecture in groupID with a fresh attendance code and
// the given tasks. It does not sync member ledgers.
func (f *Fixtures) CreateLecture(ctx context.Context, groupID primitive.ObjectID, title string, tasks ...models.Task) models.Lecture {
	f.t.Helper()

	code, err := lecturestore.NewCode()
	if err != nil {
		f.t.Fatalf("failed to generate lecture code: %v", err)
	}
	now := time.Now().UTC()
	for i := range tasks {
		if tasks[i].ID.IsZero() {
			tasks[i].ID = primitive.NewObjectID()
		}
		if tasks[i].Submissions == nil {
			tasks[i].Submissions = []models.Submission{}
		}
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	lecture := models.Lecture{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Title:     title,
		Resources: []string{},
		Code:      code,
		Tasks:     tasks,
		Attendees: []models.Attendee{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("lectures").InsertOne(ctx, lecture); err != nil {
		f.t.Fatalf("failed to create test lecture: %v", err)
	}
	return lecture
}

// SetMembership writes m onto userID, replacing any membership for the same
// group.
func (f *Fixtures) SetMembership(ctx context.Context, userID primitive.ObjectID, m models.Membership) {
	f.t.Helper()

	if m.Attendance == nil {
		m.Attendance = []models.AttendanceEntry{}
	}
	if m.Tasks == nil {
		m.Tasks = []models.TaskEntry{}
	}
	if m.Revision == 0 {
		m.Revision = 1
	}
	users := f.db.Collection("users")
	if _, err := users.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"memberships": bson.M{"group_id": m.GroupID}}}); err != nil {
		f.t.Fatalf("failed to clear membership: %v", err)
	}
	if _, err := users.UpdateByID(ctx, userID, bson.M{"$push": bson.M{"memberships": m}}); err != nil {
		f.t.Fatalf("failed to set membership: %v", err)
	}
}

// User reloads a user.
func (f *Fixtures) User(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()

	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("failed to load user %s: %v", id.Hex(), err)
	}
	return u
}

// Membership reloads a user's membership for groupID, failing the test when
// it is missing.
func (f *Fixtures) Membership(ctx context.Context, userID, groupID primitive.ObjectID) models.Membership {
	f.t.Helper()

	m, ok := f.User(ctx, userID).Membership(groupID)
	if !ok {
		f.t.Fatalf("user %s has no membership for group %s", userID.Hex(), groupID.Hex())
	}
	return m
}

// Lecture reloads a lecture.
func (f *Fixtures) Lecture(ctx context.Context, id primitive.ObjectID) models.Lecture {
	f.t.Helper()

	var l models.Lecture
	if err := f.db.Collection("lectures").FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		f.t.Fatalf("failed to load lecture %s: %v", id.Hex(), err)
	}
	return l
}

// Group reloads a group.
func (f *Fixtures) Group(ctx context.Context, id primitive.ObjectID) models.Group {
	f.t.Helper()

	var g models.Group
	if err := f.db.Collection("groups").FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		f.t.Fatalf("failed to load group %s: %v", id.Hex(), err)
	}
	return g
}
