// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/classhub/internal/app/system/paging"
	"github.com/dalemusser/classhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateEmail = errors.New("a user with this email already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a new user. Email is stored lower-cased.
func (s *Store) Create(ctx context.Context, u models.User) (*models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.NameCI = text.Fold(u.Name)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Memberships == nil {
		u.Memberships = []models.Membership{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListPage returns one keyset window of users ordered by folded name.
// A non-empty search matches a prefix of the folded name or of the email.
func (s *Store) ListPage(ctx context.Context, search string, cfg paging.KeysetConfig) ([]models.User, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(search); q != "" {
		prefix := "^" + regexp.QuoteMeta(text.Fold(q))
		filter["$or"] = bson.A{
			bson.M{"name_ci": bson.M{"$regex": prefix}},
			bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(strings.ToLower(q))}},
		}
	}
	if w := cfg.KeysetWindow("name_ci"); w != nil {
		filter = bson.M{"$and": bson.A{filter, w}}
	}

	find := options.Find()
	cfg.ApplyToFind(find, "name_ci")
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByEmails returns the users whose email is in emails.
func (s *Store) ListByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"email": bson.M{"$in": emails}})
}

// ListByGroup returns users holding a membership of groupID. When statuses
// is non-empty only memberships in one of those statuses match.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, statuses ...models.MembershipStatus) ([]models.User, error) {
	match := bson.M{"group_id": groupID}
	if len(statuses) > 0 {
		match["status"] = bson.M{"$in": statuses}
	}
	return s.find(ctx, bson.M{"memberships": bson.M{"$elemMatch": match}})
}

// ListReferencingLecture returns users whose membership ledgers or special
// subset mention lectureID or any of taskIDs.
func (s *Store) ListReferencingLecture(ctx context.Context, lectureID primitive.ObjectID, taskIDs []primitive.ObjectID) ([]models.User, error) {
	or := bson.A{
		bson.M{"memberships.attendance.lecture_id": lectureID},
		bson.M{"memberships.tasks.lecture_id": lectureID},
		bson.M{"memberships.special.lectures": lectureID},
	}
	if len(taskIDs) > 0 {
		or = append(or, bson.M{"memberships.tasks.task_id": bson.M{"$in": taskIDs}})
	}
	return s.find(ctx, bson.M{"$or": or})
}

// ListWithFeedback returns users that left feedback.
func (s *Store) ListWithFeedback(ctx context.Context) ([]models.User, error) {
	return s.find(ctx, bson.M{"feedback": bson.M{"$exists": true, "$ne": nil}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile sets name and phone. Empty name is left unchanged.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone string) error {
	set := bson.M{"phone": phone, "updated_at": time.Now().UTC()}
	if strings.TrimSpace(name) != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	return s.updateOne(ctx, id, bson.M{"$set": set})
}

// UpdateRole sets the user's role.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}})
}

// SetPasswordHash replaces the stored password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}})
}

// MarkEmailVerified records that the user proved ownership of their email.
func (s *Store) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"email_verified": true, "updated_at": time.Now().UTC()}})
}

// SetFeedback stores feedback, or clears it when feedback is nil.
func (s *Store) SetFeedback(ctx context.Context, id primitive.ObjectID, feedback *string) error {
	if feedback == nil {
		return s.updateOne(ctx, id, bson.M{"$unset": bson.M{"feedback": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}})
	}
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"feedback": *feedback, "updated_at": time.Now().UTC()}})
}

// Delete removes a user. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
