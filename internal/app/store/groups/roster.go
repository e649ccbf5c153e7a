// internal/app/store/groups/roster.go
package groupstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddToRoster puts userID on the group's roster if not already there.
func (s *Store) AddToRoster(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "members.user_id": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{"members": bson.M{"user_id": userID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// RemoveFromRoster takes userID off the roster. It reports whether the user
// was on it.
func (s *Store) RemoveFromRoster(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$pull": bson.M{"members": bson.M{"user_id": userID}}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// PullUserFromAllRosters takes userID off every roster.
func (s *Store) PullUserFromAllRosters(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"members.user_id": userID},
		bson.M{"$pull": bson.M{"members": bson.M{"user_id": userID}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
