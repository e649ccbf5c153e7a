// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Exists reports whether a group with id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (*models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.TitleCI = text.Fold(g.Title)
	if g.Members == nil {
		g.Members = []models.RosterEntry{}
	}
	if g.AllowedEmails == nil {
		g.AllowedEmails = []string{}
	}
	if g.CourseDetails == nil {
		g.CourseDetails = []models.CourseDetail{}
	}
	if g.AboutCourse == nil {
		g.AboutCourse = []string{}
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns every group, soonest start first.
func (s *Store) List(ctx context.Context) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable course fields of g.ID. Roster and
// allow-list are not touched.
func (s *Store) Update(ctx context.Context, g models.Group) error {
	set := bson.M{
		"title":            g.Title,
		"title_ci":         text.Fold(g.Title),
		"course_type":      g.CourseType,
		"location":         g.Location,
		"start_date":       g.StartDate,
		"end_date":         g.EndDate,
		"price":            g.Price,
		"course_details":   g.CourseDetails,
		"about_course":     g.AboutCourse,
		"instructor_name":  g.InstructorName,
		"image_course":     g.ImageCourse,
		"image_instructor": g.ImageInstructor,
		"updated_at":       time.Now().UTC(),
	}
	res, err := s.c.UpdateByID(ctx, g.ID, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
