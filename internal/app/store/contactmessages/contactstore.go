// internal/app/store/contactmessages/contactstore.go
package contactstore

import (
	"context"
	"time"

	"github.com/dalemusser/classhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("contact_messages")}
}

func (s *Store) Create(ctx context.Context, m models.ContactMessage) (*models.ContactMessage, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.IsReplied = false
	m.AdminReply = ""
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	var m models.ContactMessage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns messages newest first. When unrepliedOnly is set, replied
// messages are skipped.
func (s *Store) List(ctx context.Context, unrepliedOnly bool) ([]models.ContactMessage, error) {
	filter := bson.M{}
	if unrepliedOnly {
		filter["is_replied"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ContactMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReplied stores the admin's reply.
func (s *Store) MarkReplied(ctx context.Context, id primitive.ObjectID, reply string) (*models.ContactMessage, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.ContactMessage
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"admin_reply": reply,
		"is_replied":  true,
		"updated_at":  time.Now().UTC(),
	}}, opts).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes a message. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
