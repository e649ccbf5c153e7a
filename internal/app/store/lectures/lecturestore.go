// internal/app/store/lectures/lecturestore.go
package lecturestore

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// codeAttempts bounds how many generated codes are tried.
const codeAttempts = 5

var ErrCodeExhausted = errors.New("could not generate a unique lecture code")

type Store struct {
	c       *mongo.Collection
	newCode func() (string, error)
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("lectures"), newCode: NewCode}
}

// NewCode returns a random upper-case alphanumeric attendance code.
func NewCode() (string, error) {
	b := make([]byte, models.LectureCodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Create inserts l with a fresh id and a unique code. Codes in use are
// skipped before inserting, since a duplicate key error aborts an enclosing
// transaction.
func (s *Store) Create(ctx context.Context, l models.Lecture) (*models.Lecture, error) {
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	if l.Tasks == nil {
		l.Tasks = []models.Task{}
	}
	if l.Attendees == nil {
		l.Attendees = []models.Attendee{}
	}
	if l.Resources == nil {
		l.Resources = []string{}
	}
	l.AttendanceCount = 0
	l.CreatedAt = now
	l.UpdatedAt = now

	code, err := s.freeCode(ctx)
	if err != nil {
		return nil, err
	}
	l.Code = code
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return nil, err
	}
	return &l, nil
}

// freeCode returns a generated code that no stored lecture uses.
func (s *Store) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		err = s.c.FindOne(ctx, bson.M{"code": code}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrCodeExhausted
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lecture, error) {
	var l models.Lecture
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByGroup returns the group's lectures in creation order.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Lecture, error) {
	return s.find(ctx, bson.M{"group_id": groupID})
}

// ListByIDs returns those of ids that are lectures of groupID, in creation order.
func (s *Store) ListByIDs(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) ([]models.Lecture, error) {
	if len(ids) == 0 {
		return []models.Lecture{}, nil
	}
	return s.find(ctx, bson.M{"group_id": groupID, "_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Lecture, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Lecture{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InfoUpdate carries the optional fields of a lecture edit. Nil fields are
// left unchanged.
type InfoUpdate struct {
	Title       *string
	Description *string
	Article     *string
	Resources   []string
}

// UpdateInfo applies u to lecture id.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, u InfoUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Article != nil {
		set["article"] = *u.Article
	}
	if u.Resources != nil {
		set["resources"] = u.Resources
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a lecture by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every lecture of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AppendAttendee records a check-in on the lecture.
func (s *Store) AppendAttendee(ctx context.Context, lectureID, userID primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateByID(ctx, lectureID, bson.M{
		"$push": bson.M{"attendees": models.Attendee{UserID: userID, AttendedAt: at}},
		"$inc":  bson.M{"attendance_count": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// PullUserEverywhere removes userID's submissions and attendee records from
// every lecture, keeping attendance_count equal to the attendee list length.
func (s *Store) PullUserEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.c.UpdateMany(ctx,
		bson.M{"tasks.submissions.user_id": userID},
		bson.M{"$pull": bson.M{"tasks.$[].submissions": bson.M{"user_id": userID}}},
	); err != nil {
		return err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"attendees": bson.M{"$filter": bson.M{
			"input": "$attendees",
			"cond":  bson.M{"$ne": bson.A{"$$this.user_id", userID}},
		}}}}},
		{{Key: "$set", Value: bson.M{"attendance_count": bson.M{"$size": "$attendees"}}}},
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"attendees.user_id": userID}, pipeline)
	return err
}
